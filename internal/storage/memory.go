package storage

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/heybro-bot/internal/models"
)

type MemoryStorage struct {
	mu       sync.RWMutex
	users    map[int64]*models.User
	checkIns map[int64][]models.CheckIn
	vents    map[int64][]models.VentEntry
	now      func() time.Time
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:    make(map[int64]*models.User),
		checkIns: make(map[int64][]models.CheckIn),
		vents:    make(map[int64][]models.VentEntry),
		now:      time.Now,
	}
}

// User methods
func (s *MemoryStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userLocked(id), nil
}

func (s *MemoryStorage) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.LastUsedAt = s.now()
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *MemoryStorage) ModifyUser(ctx context.Context, id int64, fn func(*models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.userLocked(id)
	if err := fn(user); err != nil {
		return nil, err
	}
	user.ID = id
	user.LastUsedAt = s.now()
	s.users[id] = cloneUser(user)
	return user, nil
}

// userLocked returns a copy of the stored user or a fresh default one.
func (s *MemoryStorage) userLocked(id int64) *models.User {
	if user, exists := s.users[id]; exists {
		return cloneUser(user)
	}
	return &models.User{
		ID:               id,
		ChatID:           id,
		Settings:         models.DefaultSettings(),
		RemindersEnabled: false,
		LastUsedAt:       s.now(),
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Goals = slices.Clone(u.Goals)
	return &c
}

func (s *MemoryStorage) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// Journal methods
func (s *MemoryStorage) SaveCheckIn(ctx context.Context, checkIn *models.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if checkIn.ID == "" {
		checkIn.ID = uuid.New().String()
	}
	if checkIn.CreatedAt.IsZero() {
		checkIn.CreatedAt = s.now()
	}
	s.checkIns[checkIn.UserID] = append(s.checkIns[checkIn.UserID], *checkIn)

	if user, exists := s.users[checkIn.UserID]; exists && checkIn.CreatedAt.After(user.LastCheckInAt) {
		user.LastCheckInAt = checkIn.CreatedAt
	}
	return nil
}

// GetCheckIns returns the latest check-ins first.
func (s *MemoryStorage) GetCheckIns(ctx context.Context, userID int64, limit int) ([]models.CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return latestFirst(s.checkIns[userID], limit), nil
}

func (s *MemoryStorage) SaveVent(ctx context.Context, entry *models.VentEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.vents[entry.UserID] = append(s.vents[entry.UserID], *entry)
	return nil
}

// GetVents returns the latest entries first.
func (s *MemoryStorage) GetVents(ctx context.Context, userID int64, limit int) ([]models.VentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return latestFirst(s.vents[userID], limit), nil
}

func (s *MemoryStorage) DeleteVent(ctx context.Context, userID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.vents[userID]
	for i, e := range entries {
		if e.ID == id {
			s.vents[userID] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

func latestFirst[T any](items []T, limit int) []T {
	n := len(items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, items[i])
	}
	return out
}

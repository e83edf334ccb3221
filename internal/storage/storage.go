package storage

import (
	"context"
	"errors"

	"github.com/xaenox/heybro-bot/internal/models"
)

var ErrNotFound = errors.New("not found")

// Storage keeps per-user data for the lifetime of the process.
type Storage interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	// ModifyUser applies fn to the stored user, or to a default one, and saves
	// the result atomically. Nothing is saved when fn returns an error.
	ModifyUser(ctx context.Context, id int64, fn func(*models.User) error) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	Close() error

	JournalStorage
}

// JournalStorage holds mood check-ins and vent entries.
type JournalStorage interface {
	SaveCheckIn(ctx context.Context, checkIn *models.CheckIn) error
	GetCheckIns(ctx context.Context, userID int64, limit int) ([]models.CheckIn, error)
	SaveVent(ctx context.Context, entry *models.VentEntry) error
	GetVents(ctx context.Context, userID int64, limit int) ([]models.VentEntry, error)
	DeleteVent(ctx context.Context, userID int64, id string) error
}

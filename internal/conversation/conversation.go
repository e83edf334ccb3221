package conversation

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/heybro-bot/internal/models"
	"github.com/xaenox/heybro-bot/internal/responder"
)

var ErrEmptyMessage = errors.New("message is empty")

// Conversation is an append-only chat log with its settings.
type Conversation struct {
	mu        sync.RWMutex
	responder responder.Responder
	settings  models.ConversationSettings
	messages  []models.Message
	now       func() time.Time
}

type Option func(*Conversation)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) { c.now = now }
}

// New starts a conversation with a welcome message in the current tone.
func New(r responder.Responder, settings models.ConversationSettings, opts ...Option) *Conversation {
	c := &Conversation{
		responder: r,
		settings:  settings,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.messages) == 0 {
		c.appendLocked(models.RoleAssistant, r.Welcome(settings.Tone))
	}
	return c
}

// Submit records the user's text and the assistant's reply to it.
func (c *Conversation) Submit(text string) (user, reply models.Message, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, models.Message{}, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	user = c.appendLocked(models.RoleUser, text)
	reply = c.appendLocked(models.RoleAssistant, c.responder.Reply(text, c.settings))
	return user, reply, nil
}

func (c *Conversation) appendLocked(role models.Role, content string) models.Message {
	ts := c.now()
	if n := len(c.messages); n > 0 && ts.Before(c.messages[n-1].Timestamp) {
		ts = c.messages[n-1].Timestamp
	}
	msg := models.Message{
		ID:        uuid.New().String(),
		Content:   content,
		Role:      role,
		Timestamp: ts,
	}
	c.messages = append(c.messages, msg)
	return msg
}

func (c *Conversation) Settings() models.ConversationSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

func (c *Conversation) SetTone(tone models.Tone) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Tone = tone
}

// ToggleManToMan flips man-to-man mode and returns the new value.
func (c *Conversation) ToggleManToMan() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.ManToManMode = !c.settings.ManToManMode
	return c.settings.ManToManMode
}

// Messages returns a copy of the log, oldest first.
func (c *Conversation) Messages() []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Message(nil), c.messages...)
}

// Recent returns up to n of the latest messages, oldest first.
func (c *Conversation) Recent(n int) []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n <= 0 || n > len(c.messages) {
		n = len(c.messages)
	}
	return append([]models.Message(nil), c.messages[len(c.messages)-n:]...)
}

package models

import (
	"time"
	"unicode/utf8"
)

// Tone is the conversational style used to pick a reply variant.
type Tone string

const (
	ToneFriendly   Tone = "friendly"
	ToneBlunt      Tone = "blunt"
	ToneSupportive Tone = "supportive"
)

// Tones lists every recognized tone.
func Tones() []Tone {
	return []Tone{ToneFriendly, ToneBlunt, ToneSupportive}
}

func (t Tone) Valid() bool {
	switch t {
	case ToneFriendly, ToneBlunt, ToneSupportive:
		return true
	}
	return false
}

// ConversationSettings controls how the chat companion answers.
type ConversationSettings struct {
	Tone         Tone `json:"tone"`
	ManToManMode bool `json:"man_to_man_mode"`
}

func DefaultSettings() ConversationSettings {
	return ConversationSettings{Tone: ToneFriendly, ManToManMode: false}
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry of a conversation log
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// User represents a bot user with their preferences
type User struct {
	ID               int64                `json:"id"`
	ChatID           int64                `json:"chat_id"`
	Settings         ConversationSettings `json:"settings"`
	RemindersEnabled bool                 `json:"reminders_enabled"`
	Goals            []string             `json:"goals"`
	LastCheckInAt    time.Time            `json:"last_check_in_at"`
	LastUsedAt       time.Time            `json:"last_used_at"`
}

// VentEntry is a private note nobody answers.
type VentEntry struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

const ventPreviewLen = 40

func (v VentEntry) Preview() string {
	if utf8.RuneCountInString(v.Content) <= ventPreviewLen {
		return v.Content
	}
	return string([]rune(v.Content)[:ventPreviewLen]) + "..."
}

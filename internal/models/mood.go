package models

import (
	"strings"
	"time"
)

type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodSad      Mood = "sad"
	MoodAngry    Mood = "angry"
	MoodStressed Mood = "stressed"
	MoodNumb     Mood = "numb"
	MoodOther    Mood = "other"
)

func Moods() []Mood {
	return []Mood{MoodHappy, MoodSad, MoodAngry, MoodStressed, MoodNumb, MoodOther}
}

// ParseMood matches a mood name case-insensitively.
func ParseMood(s string) (Mood, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range Moods() {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Score places a mood on a 1 (low) to 5 (good) scale for mood history.
func (m Mood) Score() int {
	switch m {
	case MoodHappy:
		return 5
	case MoodStressed, MoodOther:
		return 3
	case MoodAngry, MoodNumb:
		return 2
	case MoodSad:
		return 1
	}
	return 0
}

// CheckIn is a single mood check-in with an optional note.
type CheckIn struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Mood      Mood      `json:"mood"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

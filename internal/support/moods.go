package support

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/xaenox/heybro-bot/internal/models"
)

// TimeFrame is the window of mood history to look at.
type TimeFrame string

const (
	TimeFrameWeek  TimeFrame = "week"
	TimeFrameMonth TimeFrame = "month"
)

// ParseTimeFrame defaults to a week when s is empty.
func ParseTimeFrame(s string) (TimeFrame, error) {
	switch TimeFrame(strings.ToLower(strings.TrimSpace(s))) {
	case "", TimeFrameWeek:
		return TimeFrameWeek, nil
	case TimeFrameMonth:
		return TimeFrameMonth, nil
	}
	return "", fmt.Errorf("unknown time frame %q", s)
}

// Since is the earliest instant inside the frame ending at now.
func (f TimeFrame) Since(now time.Time) time.Time {
	if f == TimeFrameMonth {
		return now.AddDate(0, -1, 0)
	}
	return now.AddDate(0, 0, -7)
}

// MoodSummary describes the check-ins of one time frame.
type MoodSummary struct {
	Frame TimeFrame
	// Entries are oldest first.
	Entries []models.CheckIn
	Counts  map[models.Mood]int
	// Average is the mean mood score, zero without entries.
	Average float64
}

func SummarizeMoods(checkIns []models.CheckIn, frame TimeFrame, now time.Time) MoodSummary {
	since := frame.Since(now)
	sum := MoodSummary{Frame: frame, Counts: make(map[models.Mood]int)}

	total := 0
	for _, c := range checkIns {
		if c.CreatedAt.Before(since) || c.CreatedAt.After(now) {
			continue
		}
		sum.Entries = append(sum.Entries, c)
		sum.Counts[c.Mood]++
		total += c.Mood.Score()
	}
	slices.SortStableFunc(sum.Entries, func(a, b models.CheckIn) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if len(sum.Entries) > 0 {
		sum.Average = float64(total) / float64(len(sum.Entries))
	}
	return sum
}

// Dominant returns the most frequent mood, preferring the latest on ties.
func (s MoodSummary) Dominant() (models.Mood, bool) {
	var best models.Mood
	for i := len(s.Entries) - 1; i >= 0; i-- {
		m := s.Entries[i].Mood
		if best == "" || s.Counts[m] > s.Counts[best] {
			best = m
		}
	}
	return best, best != ""
}

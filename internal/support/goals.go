package support

import (
	"errors"
	"strings"
)

// MaxGoals is how many personal goals a user can work on at once.
const MaxGoals = 3

var (
	ErrGoalLimit     = errors.New("goal limit reached")
	ErrDuplicateGoal = errors.New("goal already set")
	ErrEmptyGoal     = errors.New("goal is empty")
	ErrNoSuchGoal    = errors.New("no such goal")
)

var suggestedGoals = []string{
	"Get through breakup",
	"Feel more confident",
	"Manage stress better",
	"Improve sleep",
	"Reduce anxiety",
	"Develop healthier habits",
	"Find work-life balance",
	"Build better relationships",
}

func SuggestedGoals() []string {
	return append([]string(nil), suggestedGoals...)
}

// AddGoal returns goals with goal appended. The input slice is not modified.
func AddGoal(goals []string, goal string) ([]string, error) {
	if len(goals) >= MaxGoals {
		return goals, ErrGoalLimit
	}
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return goals, ErrEmptyGoal
	}
	for _, g := range goals {
		if g == goal {
			return goals, ErrDuplicateGoal
		}
	}
	out := make([]string, 0, len(goals)+1)
	return append(append(out, goals...), goal), nil
}

// RemoveGoal drops the goal at the zero-based index.
func RemoveGoal(goals []string, index int) ([]string, error) {
	if index < 0 || index >= len(goals) {
		return goals, ErrNoSuchGoal
	}
	out := make([]string, 0, len(goals)-1)
	out = append(out, goals[:index]...)
	return append(out, goals[index+1:]...), nil
}

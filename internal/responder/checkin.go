package responder

import "github.com/xaenox/heybro-bot/internal/models"

// FollowUp is the nudge shown after a difficult check-in.
type FollowUp struct {
	Headline string
	Body     string
}

// CheckInFollowUp returns a follow-up for sad, angry and stressed moods.
func CheckInFollowUp(mood models.Mood) (FollowUp, bool) {
	switch mood {
	case models.MoodSad:
		return FollowUp{
			Headline: "Feeling down today?",
			Body:     "It's okay to not feel okay. Taking small steps can help.",
		}, true
	case models.MoodAngry:
		return FollowUp{
			Headline: "Dealing with frustration?",
			Body:     "Anger is normal. Finding healthy outlets makes a difference.",
		}, true
	case models.MoodStressed:
		return FollowUp{
			Headline: "Managing stress?",
			Body:     "Stress affects us all. Simple techniques can help you regain control.",
		}, true
	}
	return FollowUp{}, false
}

package support

import "math/rand"

var pepTalks = []string{
	"You're doing better than you think. Keep pushing forward.",
	"Strength isn't about never falling; it's about getting back up every time you do.",
	"The work you're putting in now is building the foundation for your future self.",
	"It's okay to not have all the answers. What matters is that you're asking the questions.",
	"Progress isn't always visible day to day, but looking back, you'll see how far you've come.",
	"Your struggles don't define you, but how you respond to them does.",
	"Sometimes the bravest thing you can do is admit when you're not okay.",
	"Your worth isn't measured by your productivity or success.",
	"The strongest men know when to ask for help.",
	"You don't need to carry the weight of the world alone.",
	"One day at a time. Sometimes one hour at a time. You've got this.",
	"The path forward isn't always clear, but taking one step is better than standing still.",
	"Your presence matters. The people in your life value you more than you know.",
	"Feeling lost is part of the journey, not a sign you've failed.",
	"The strongest decision you can make is to prioritize your mental health.",
	"Real strength comes from vulnerability, not from hiding your struggles.",
	"You've overcome tough times before, and you'll overcome this too.",
	"It takes courage to face your fears. You're braver than you realize.",
	"Don't compare your behind-the-scenes to everyone else's highlight reel.",
	"You're not meant to have it all figured out. Nobody does.",
}

func PepTalks() []string {
	return append([]string(nil), pepTalks...)
}

// RandomPepTalk picks a pep talk using rng, or the global source when rng is nil.
func RandomPepTalk(rng *rand.Rand) string {
	if rng == nil {
		return pepTalks[rand.Intn(len(pepTalks))]
	}
	return pepTalks[rng.Intn(len(pepTalks))]
}

// BreathStep is one phase of the box-style breathing exercise.
type BreathStep struct {
	Instruction string
	Seconds     int
}

func BreathworkSteps() []BreathStep {
	return []BreathStep{
		{"Breathe in slowly", 4},
		{"Hold", 4},
		{"Breathe out slowly", 6},
		{"Pause", 2},
	}
}

// GroundingSteps is the 5-4-3-2-1 grounding exercise.
func GroundingSteps() []string {
	return []string{
		"Name 5 things you can see around you",
		"Notice 4 things you can touch or feel",
		"Acknowledge 3 things you can hear",
		"Identify 2 things you can smell",
		"Recognize 1 thing you can taste",
	}
}

func JournalPrompts() []string {
	return []string{
		"What's the main thing on your mind right now?",
		"What's one small win you've had today or this week?",
		"What's something that's been bothering you that you haven't told anyone?",
		"If you could talk to yourself from a year ago, what would you say?",
		"What's one thing you can do today to make tomorrow better?",
	}
}

package responder

import (
	"fmt"
	"strings"

	"github.com/xaenox/heybro-bot/internal/models"
)

// VariantKey picks one phrasing of a rule.
type VariantKey struct {
	Tone         models.Tone
	ManToManMode bool
}

// ReplyRule maps a set of trigger keywords to one reply per tone and mode.
type ReplyRule struct {
	Name     string
	Keywords []string
	Variants map[VariantKey]string
}

// Matches reports whether any keyword occurs in the already lowercased text.
func (r ReplyRule) Matches(lowered string) bool {
	for _, kw := range r.Keywords {
		if kw != "" && strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Validate checks that the rule defines all six tone/mode variants.
func (r ReplyRule) Validate() error {
	for _, tone := range models.Tones() {
		for _, mtm := range []bool{false, true} {
			if _, ok := r.Variants[VariantKey{Tone: tone, ManToManMode: mtm}]; !ok {
				return fmt.Errorf("rule %q: missing variant for tone=%s man_to_man=%t", r.Name, tone, mtm)
			}
		}
	}
	return nil
}

func (r ReplyRule) variant(tone models.Tone, manToMan bool) string {
	return r.Variants[VariantKey{Tone: tone, ManToManMode: manToMan}]
}

func variants(friendly, friendlyShort, blunt, bluntShort, supportive, supportiveShort string) map[VariantKey]string {
	return map[VariantKey]string{
		{models.ToneFriendly, false}:   friendly,
		{models.ToneFriendly, true}:    friendlyShort,
		{models.ToneBlunt, false}:      blunt,
		{models.ToneBlunt, true}:       bluntShort,
		{models.ToneSupportive, false}: supportive,
		{models.ToneSupportive, true}:  supportiveShort,
	}
}

// DefaultRules returns the keyword rules in priority order: stress, sadness, anger.
func DefaultRules() []ReplyRule {
	return []ReplyRule{
		{
			Name:     "stress",
			Keywords: []string{"stress", "anxious", "worried"},
			Variants: variants(
				"I can hear that you're feeling stressed. That's completely normal, and it happens to all of us. Something that might help is taking a few deep breaths - try breathing in for 4 counts, holding for 4, and exhaling for 6. Do this about 5 times and see if it helps calm your nervous system.",
				"Stress happens. Try deep breathing - in for 4, hold for 4, out for 6. Repeat 5 times.",
				"Look, everyone gets stressed. It's how you handle it that matters. Try some deep breathing right now. Then consider exercise - it's not just for your body, it crushes stress too. Cut back on alcohol if that's in the picture, and prioritize sleep. Basic stuff, but it works.",
				"Everyone gets stressed. It's how you handle it that matters. Deep breathing. Exercise. Cut the alcohol. Sleep more.",
				"I've definitely been there with the stress, man. When I was going through a rough patch, physical activity helped me the most. Even just a 10-minute walk can help reset your mind. What kind of physical activities do you enjoy? We could think about how to fit those in more regularly.",
				"I've been there with the stress, man. Physical activity helped me the most. Even a 10-min walk can reset your mind.",
			),
		},
		{
			Name:     "sadness",
			Keywords: []string{"sad", "depress", "down"},
			Variants: variants(
				"I'm sorry to hear you're feeling down. Those emotions are valid, even though they're difficult to experience. Could you try to name three small things that brought you any amount of joy recently? They can be really small things - like the taste of your coffee or a moment of sunshine.",
				"Feeling down is tough. Name 3 small things that brought you any joy recently, no matter how small.",
				"Depression hits hard, I know. But sitting with it without action won't help. What's one tiny action you can take right now? Not tomorrow, not when you 'feel better' - right now. Even just washing your face or stepping outside for 2 minutes counts.",
				"Depression hits hard. But sitting with it won't help. What's one tiny action you can take right now?",
				"I hear you, brother. Those dark days are brutal, and they can make you feel totally isolated. But you're not alone in this - not by a long shot. When I was going through it, what helped most was telling someone close to me. Have you been able to open up to anyone about how you're feeling?",
				"I hear you, brother. Those dark days are brutal. You're not alone in this. What helped me was telling someone close to me.",
			),
		},
		{
			Name:     "anger",
			Keywords: []string{"angry", "pissed", "furious"},
			Variants: variants(
				"It sounds like you're feeling pretty angry right now, and that's a completely normal emotion. If possible, can you step away from the situation for about 5 minutes? Sometimes giving yourself that brief space allows your body's stress response to calm down a bit, so you can think more clearly.",
				"Anger is normal. Step away for 5 minutes if you can. Come back when your body feels calmer.",
				"Anger always feels justified in the moment. But acting on it rarely makes things better. Channel it into something physical instead - pushups, a run, or even hitting a pillow. Your body needs to process that energy somehow. After that, you can think about what's really going on underneath the anger.",
				"Anger feels justified in the moment. But acting on it rarely helps. Channel it into something physical instead.",
				"I get it, man. Sometimes life just pisses you off and there's no way around that feeling. Been there plenty of times myself. First thing, take a minute to just breathe before you do or say anything. Then, when you're ready, let's figure out what's got you so fired up and what we can actually do about it.",
				"I get it, man. Sometimes life just pisses you off. Take a minute to breathe before you do anything else.",
			),
		},
	}
}

// DefaultFallback is the rule used when no keyword rule matches.
func DefaultFallback() ReplyRule {
	return ReplyRule{
		Name: "default",
		Variants: variants(
			"I appreciate you sharing that with me. It helps me understand what you're going through better. Is there anything specific about this situation that's been particularly challenging for you?",
			"I hear you. What else is on your mind?",
			"Alright, I understand the situation. Let's not overthink this - what's the next concrete step you're considering? Sometimes we need to break things down to move forward.",
			"Got it. What's the next step you're thinking about?",
			"I'm with you on this one, brother. We all face these kinds of challenges. Based on what you've shared, what do you think might be the best way forward? I'm here to talk through options if that helps.",
			"I'm with you on this one. What do you think is the best way forward?",
		),
	}
}

var welcomeMessages = map[models.Tone]string{
	models.ToneFriendly:   "Hey there! I'm HeyBro, your mental health buddy. How can I support you today?",
	models.ToneBlunt:      "Hey. I'm HeyBro. No judgment, no BS. What's on your mind?",
	models.ToneSupportive: "Hey bro, I've got your back. Whatever you're going through, we'll work through it together. What's up?",
}

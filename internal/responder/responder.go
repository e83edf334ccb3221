package responder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xaenox/heybro-bot/internal/models"
	"go.uber.org/zap"
)

// Responder picks the assistant's answer to a user message.
type Responder interface {
	Reply(text string, settings models.ConversationSettings) string
	Welcome(tone models.Tone) string
}

var (
	defaultRules    = DefaultRules()
	defaultFallback = DefaultFallback()
)

// SelectReply returns the canned reply for text under the given settings.
// It never fails: unknown tones are answered in the friendly tone.
func SelectReply(text string, settings models.ConversationSettings) string {
	return selectReply(defaultRules, defaultFallback, text, settings)
}

// WelcomeMessage returns the greeting that opens a conversation.
func WelcomeMessage(tone models.Tone) string {
	return welcomeMessages[resolveTone(tone)]
}

func selectReply(rules []ReplyRule, fallback ReplyRule, text string, settings models.ConversationSettings) string {
	tone := resolveTone(settings.Tone)
	lowered := strings.ToLower(text)
	for _, rule := range rules {
		if rule.Matches(lowered) {
			return rule.variant(tone, settings.ManToManMode)
		}
	}
	return fallback.variant(tone, settings.ManToManMode)
}

func resolveTone(tone models.Tone) models.Tone {
	if tone.Valid() {
		return tone
	}
	return models.ToneFriendly
}

// RuleResponder is a Responder over an ordered rule list.
type RuleResponder struct {
	rules    []ReplyRule
	fallback ReplyRule
	logger   *zap.Logger
}

var _ Responder = (*RuleResponder)(nil)

// NewRuleResponder validates every rule up front so that replies can never
// come back empty. Rules are tried in the order given.
func NewRuleResponder(logger *zap.Logger, fallback ReplyRule, rules ...ReplyRule) (*RuleResponder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var errs []error
	for _, r := range rules {
		if len(r.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("rule %q: no trigger keywords", r.Name))
		}
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := fallback.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("fallback: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &RuleResponder{
		rules:    append([]ReplyRule(nil), rules...),
		fallback: fallback,
		logger:   logger,
	}, nil
}

// NewDefaultResponder wires the built-in HeyBro rules.
func NewDefaultResponder(logger *zap.Logger) *RuleResponder {
	r, err := NewRuleResponder(logger, DefaultFallback(), DefaultRules()...)
	if err != nil {
		// built-in tables are complete; reaching this is a programming error
		panic(err)
	}
	return r
}

func (r *RuleResponder) Reply(text string, settings models.ConversationSettings) string {
	r.checkTone(settings.Tone)
	return selectReply(r.rules, r.fallback, text, settings)
}

func (r *RuleResponder) Welcome(tone models.Tone) string {
	r.checkTone(tone)
	return WelcomeMessage(tone)
}

func (r *RuleResponder) checkTone(tone models.Tone) {
	if !tone.Valid() {
		r.logger.Warn("Unrecognized tone, answering as friendly",
			zap.String("tone", string(tone)))
	}
}

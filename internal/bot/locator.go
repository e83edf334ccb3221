package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/heybro-bot/internal/location"
)

const (
	shareLocationLabel = "📍 Share my location"
	declineLabel       = "No thanks"
)

type fixResult struct {
	coords location.Coordinates
	err    error
}

// locationHub routes incoming location messages to the chat that asked for
// them. Overlapping requests for one chat share a single prompt and answer.
type locationHub struct {
	mu      sync.Mutex
	pending map[int64][]chan fixResult
}

func newLocationHub() *locationHub {
	return &locationHub{pending: make(map[int64][]chan fixResult)}
}

// register adds a waiter for chatID. first is false when another request is
// already waiting, in which case no new prompt should be sent.
func (h *locationHub) register(chatID int64) (ch chan fixResult, first bool) {
	ch = make(chan fixResult, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	first = len(h.pending[chatID]) == 0
	h.pending[chatID] = append(h.pending[chatID], ch)
	return ch, first
}

func (h *locationHub) unregister(chatID int64, ch chan fixResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	waiters := h.pending[chatID]
	for i, w := range waiters {
		if w == ch {
			waiters = append(waiters[:i:i], waiters[i+1:]...)
			break
		}
	}
	if len(waiters) == 0 {
		delete(h.pending, chatID)
		return
	}
	h.pending[chatID] = waiters
}

func (h *locationHub) waiting(chatID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending[chatID]) > 0
}

// deliver hands res to every pending request of chatID, if any.
func (h *locationHub) deliver(chatID int64, res fixResult) bool {
	h.mu.Lock()
	waiters := h.pending[chatID]
	delete(h.pending, chatID)
	h.mu.Unlock()

	for _, ch := range waiters {
		ch <- res
	}
	return len(waiters) > 0
}

func (h *locationHub) deliverLocation(chatID int64, loc *tgbotapi.Location) bool {
	return h.deliver(chatID, fixResult{coords: location.Coordinates{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	}})
}

func (h *locationHub) deliverDenial(chatID int64) bool {
	return h.deliver(chatID, fixResult{err: location.NewError(location.PermissionDenied, nil)})
}

func isDecline(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), declineLabel)
}

// chatLocator asks one chat to share its location through a reply keyboard.
// Telegram always sends a fresh position, so MaxAge and HighAccuracy need no
// handling here.
type chatLocator struct {
	chatID int64
	hub    *locationHub
	out    sender
}

var _ location.Locator = (*chatLocator)(nil)

func (l *chatLocator) RequestFix(ctx context.Context, opts location.FixOptions) (location.Coordinates, error) {
	ch, first := l.hub.register(l.chatID)
	defer l.hub.unregister(l.chatID, ch)

	if first {
		if err := l.prompt(); err != nil {
			return location.Coordinates{}, err
		}
	}

	select {
	case res := <-ch:
		return res.coords, res.err
	case <-ctx.Done():
		return location.Coordinates{}, ctx.Err()
	}
}

func (l *chatLocator) prompt() error {
	prompt := tgbotapi.NewMessage(l.chatID,
		"To show the most relevant support near you, I can use your current location. "+
			"It is only used during this session and never stored.")
	keyboard := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButtonLocation(shareLocationLabel),
		tgbotapi.NewKeyboardButton(declineLabel),
	))
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true
	prompt.ReplyMarkup = keyboard

	if _, err := l.out.Send(prompt); err != nil {
		return location.NewError(location.PositionUnavailable,
			fmt.Errorf("failed to send location prompt: %w", err))
	}
	return nil
}

package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/heybro-bot/internal/location"
	"github.com/xaenox/heybro-bot/internal/models"
	"github.com/xaenox/heybro-bot/internal/responder"
	"github.com/xaenox/heybro-bot/internal/storage"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSender struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	actions  []tgbotapi.ChatActionConfig
	err      error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.messages = append(f.messages, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if action, ok := c.(tgbotapi.ChatActionConfig); ok {
		f.actions = append(f.actions, action)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeSender) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return f.messages[len(f.messages)-1]
}

type fakeGeocoder struct {
	region location.Region
	err    error
}

func (g *fakeGeocoder) ReverseGeocode(ctx context.Context, c location.Coordinates) (location.Region, error) {
	return g.region, g.err
}

func newTestBot(t *testing.T, geocoder location.Geocoder) (*Bot, *fakeSender, *storage.MemoryStorage) {
	t.Helper()
	return newTestBotWithOptions(t, geocoder, Options{})
}

func newTestBotWithOptions(t *testing.T, geocoder location.Geocoder, opts Options) (*Bot, *fakeSender, *storage.MemoryStorage) {
	t.Helper()
	out := &fakeSender{}
	store := storage.NewMemoryStorage()
	b := newBot(out, store, responder.NewDefaultResponder(zap.NewNop()), geocoder, opts, zap.NewNop())
	t.Cleanup(b.Stop)
	return b, out, store
}

func command(chatID int64, text string) *tgbotapi.Message {
	cmd, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func text(chatID int64, s string) *tgbotapi.Message {
	return &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: s}
}

func TestChatReplyUsesSettings(t *testing.T) {
	b, out, _ := newTestBot(t, nil)

	b.handleMessage(text(1, "Work has me so stressed"))
	require.Equal(t, 1, out.count())
	assert.Equal(t, responder.SelectReply("stressed", models.DefaultSettings()), out.last().Text)
	assert.Len(t, out.actions, 1)

	b.handleMessage(command(1, "/tone blunt"))
	b.handleMessage(command(1, "/mtm"))
	b.handleMessage(text(1, "I'm stressed"))
	assert.Equal(t, responder.SelectReply("stressed", models.ConversationSettings{Tone: models.ToneBlunt, ManToManMode: true}), out.last().Text)
}

func TestSettingsArePersisted(t *testing.T) {
	b, out, store := newTestBot(t, nil)
	ctx := context.Background()

	b.handleMessage(command(7, "/tone supportive"))
	assert.Equal(t, "Tone set to supportive.", out.last().Text)
	b.handleMessage(command(7, "/mtm"))

	user, err := store.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationSettings{Tone: models.ToneSupportive, ManToManMode: true}, user.Settings)

	b.handleMessage(command(7, "/tone loud"))
	assert.Contains(t, out.last().Text, "Current tone: supportive")
}

func TestStartSendsWelcome(t *testing.T) {
	b, out, _ := newTestBot(t, nil)

	b.handleMessage(command(3, "/start"))
	assert.True(t, strings.HasPrefix(out.last().Text, responder.WelcomeMessage(models.ToneFriendly)))
}

func TestHistory(t *testing.T) {
	b, out, _ := newTestBot(t, nil)

	b.handleMessage(text(2, "hello there"))
	b.handleMessage(command(2, "/history"))
	last := out.last()
	assert.Equal(t, tgbotapi.ModeMarkdownV2, last.ParseMode)
	assert.Contains(t, last.Text, "hello there")
}

func TestCheckIn(t *testing.T) {
	b, out, store := newTestBot(t, nil)
	ctx := context.Background()

	b.handleMessage(command(4, "/checkin"))
	assert.Contains(t, out.last().Text, "How are you feeling today?")

	b.handleMessage(command(4, "/checkin sad rough day at work"))
	f, ok := responder.CheckInFollowUp(models.MoodSad)
	require.True(t, ok)
	assert.Contains(t, out.last().Text, f.Headline)

	checkIns, err := store.GetCheckIns(ctx, 4, 0)
	require.NoError(t, err)
	require.Len(t, checkIns, 1)
	assert.Equal(t, models.MoodSad, checkIns[0].Mood)
	assert.Equal(t, "rough day at work", checkIns[0].Note)

	user, err := store.GetUser(ctx, 4)
	require.NoError(t, err)
	assert.False(t, user.LastCheckInAt.IsZero())
}

func TestVentLifecycle(t *testing.T) {
	b, out, store := newTestBot(t, nil)
	ctx := context.Background()

	b.handleMessage(command(5, "/vent everything is too loud today"))
	assert.Equal(t, "Saved. No one will see this but you.", out.last().Text)

	vents, err := store.GetVents(ctx, 5, 0)
	require.NoError(t, err)
	require.Len(t, vents, 1)

	b.handleMessage(command(5, "/vents"))
	assert.Contains(t, out.last().Text, shortID(vents[0].ID))

	b.handleMessage(command(5, "/unvent nope"))
	assert.Equal(t, "I couldn't find a vent with that id.", out.last().Text)

	b.handleMessage(command(5, "/unvent "+shortID(vents[0].ID)))
	assert.Equal(t, "Deleted.", out.last().Text)

	vents, err = store.GetVents(ctx, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, vents)
}

func TestRemindToggle(t *testing.T) {
	b, out, store := newTestBot(t, nil)

	b.handleMessage(command(6, "/remind on"))
	assert.Equal(t, "Daily check-in reminders are on.", out.last().Text)
	user, err := store.GetUser(context.Background(), 6)
	require.NoError(t, err)
	assert.True(t, user.RemindersEnabled)

	b.handleMessage(command(6, "/remind maybe"))
	assert.Equal(t, "Send /remind on or /remind off.", out.last().Text)
}

func TestUnknownCommand(t *testing.T) {
	b, out, _ := newTestBot(t, nil)

	b.handleMessage(command(1, "/dance"))
	assert.Contains(t, out.last().Text, "Unknown command")
}

func TestSupportWithoutLocation(t *testing.T) {
	b, out, _ := newTestBot(t, nil)

	b.handleMessage(command(1, "/support"))
	last := out.last()
	assert.Equal(t, tgbotapi.ModeMarkdownV2, last.ParseMode)
	assert.Contains(t, last.Text, "Crisis Text Line")
	assert.NotContains(t, last.Text, "SAMHSA")
	assert.Contains(t, last.Text, "/locate")
}

func locate(t *testing.T, b *Bot, out *fakeSender, chatID int64, answer *tgbotapi.Message) tgbotapi.MessageConfig {
	t.Helper()
	before := out.count()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.handleMessage(command(chatID, "/locate"))
	}()

	require.Eventually(t, func() bool { return b.hub.waiting(chatID) && out.count() > before },
		time.Second, 5*time.Millisecond)
	prompt := out.last()
	assert.IsType(t, tgbotapi.ReplyKeyboardMarkup{}, prompt.ReplyMarkup)

	b.handleMessage(answer)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("locate did not finish")
	}
	return out.last()
}

func TestLocateShareLocation(t *testing.T) {
	geo := &fakeGeocoder{region: location.Region{City: "Austin", Country: "United States", CountryCode: "US"}}
	b, out, _ := newTestBot(t, geo)

	res := locate(t, b, out, 9, &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 9},
		Location: &tgbotapi.Location{Latitude: 30.27, Longitude: -97.74},
	})
	assert.Equal(t, "Got it, you're around Austin, United States.", res.Text)

	b.handleMessage(command(9, "/support"))
	assert.Contains(t, out.last().Text, "SAMHSA")

	b.handleMessage(command(9, "/local"))
	assert.Contains(t, out.last().Text, "Austin")
}

func TestLocateDecline(t *testing.T) {
	b, out, _ := newTestBot(t, &fakeGeocoder{})

	res := locate(t, b, out, 11, text(11, "No thanks"))
	assert.Contains(t, res.Text, "Location permission denied.")

	st := b.session(context.Background(), 11).location.State()
	assert.Equal(t, location.StatusDenied, st.Status)
	require.NotNil(t, st.LastError)
	assert.ErrorIs(t, st.LastError, location.ErrPermissionDenied)

	b.handleMessage(command(11, "/local"))
	assert.Contains(t, out.last().Text, "Location permission denied.")
}

func TestLocateReverseLookupFailure(t *testing.T) {
	geo := &fakeGeocoder{err: errors.New("boom")}
	b, out, _ := newTestBot(t, geo)

	res := locate(t, b, out, 12, &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 12},
		Location: &tgbotapi.Location{Latitude: 1, Longitude: 2},
	})
	assert.Equal(t, "Got your location, but I couldn't work out the city. I'll show general resources.", res.Text)

	st := b.session(context.Background(), 12).location.State()
	assert.Equal(t, location.StatusGranted, st.Status)
	assert.True(t, st.HasCoordinates())
}

func TestLocationWithoutPendingRequest(t *testing.T) {
	b, out, _ := newTestBot(t, nil)

	b.handleMessage(&tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 1},
		Location: &tgbotapi.Location{Latitude: 1, Longitude: 2},
	})
	assert.Contains(t, out.last().Text, "/support")
}

func TestLocatorPromptFailure(t *testing.T) {
	out := &fakeSender{err: errors.New("network down")}
	l := &chatLocator{chatID: 1, hub: newLocationHub(), out: out}

	_, err := l.RequestFix(context.Background(), location.DefaultFixOptions())
	assert.ErrorIs(t, err, location.ErrPositionUnavailable)
	assert.False(t, l.hub.waiting(1))
}

func TestLocatorHonoursContext(t *testing.T) {
	l := &chatLocator{chatID: 1, hub: newLocationHub(), out: &fakeSender{}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.RequestFix(ctx, location.DefaultFixOptions())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, l.hub.waiting(1))
}

func TestHubDeliverWithoutRequest(t *testing.T) {
	h := newLocationHub()
	assert.False(t, h.deliverDenial(1))

	ch, first := h.register(1)
	assert.True(t, first)
	assert.True(t, h.deliverDenial(1))
	res := <-ch
	assert.ErrorIs(t, res.err, location.ErrPermissionDenied)
	assert.False(t, h.waiting(1))
}

func TestSendCheckInReminder(t *testing.T) {
	b, out, _ := newTestBot(t, nil)

	require.NoError(t, b.SendCheckInReminder(context.Background(), models.User{ID: 8, ChatID: 8}))
	assert.Equal(t, int64(8), out.last().ChatID)
	assert.Contains(t, out.last().Text, "/checkin")

	out.err = errors.New("blocked")
	assert.Error(t, b.SendCheckInReminder(context.Background(), models.User{ID: 8, ChatID: 8}))
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `Call 988\. Now\!`, escapeMarkdown("Call 988. Now!"))
	assert.Equal(t, `a\\b`, escapeMarkdown(`a\b`))
}

func TestLocationSharedAfterTimeoutIsUsed(t *testing.T) {
	geo := &fakeGeocoder{region: location.Region{City: "Austin", Country: "United States", CountryCode: "US"}}
	b, out, _ := newTestBotWithOptions(t, geo, Options{Fix: location.FixOptions{Timeout: 20 * time.Millisecond}})

	b.handleMessage(command(13, "/locate"))
	assert.Contains(t, out.last().Text, "timed out")
	require.False(t, b.hub.waiting(13))

	b.handleMessage(&tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 13},
		Location: &tgbotapi.Location{Latitude: 30.27, Longitude: -97.74},
	})
	assert.Equal(t, "Got it, you're around Austin, United States.", out.last().Text)

	st := b.session(context.Background(), 13).location.State()
	assert.Equal(t, location.StatusGranted, st.Status)
	require.NotNil(t, st.Coordinates)
	assert.Equal(t, 30.27, st.Coordinates.Latitude)

	b.handleMessage(command(13, "/support"))
	assert.Contains(t, out.last().Text, "SAMHSA")
	assert.NotContains(t, out.last().Text, "/locate")
}

func TestOverlappingRequestsShareOnePrompt(t *testing.T) {
	out := &fakeSender{}
	hub := newLocationHub()
	l := &chatLocator{chatID: 1, hub: hub, out: out}

	results := make(chan location.Coordinates, 2)
	for i := 0; i < 2; i++ {
		go func() {
			c, err := l.RequestFix(context.Background(), location.DefaultFixOptions())
			assert.NoError(t, err)
			results <- c
		}()
	}

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.pending[1]) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, out.count())

	require.True(t, hub.deliverLocation(1, &tgbotapi.Location{Latitude: 1, Longitude: 2}))
	for i := 0; i < 2; i++ {
		select {
		case c := <-results:
			assert.Equal(t, location.Coordinates{Latitude: 1, Longitude: 2}, c)
		case <-time.After(time.Second):
			t.Fatal("request was not answered")
		}
	}
	assert.False(t, hub.waiting(1))
}

func TestConcurrentUserUpdatesKeepBothChanges(t *testing.T) {
	b, _, store := newTestBot(t, nil)

	var wg sync.WaitGroup
	for _, m := range []*tgbotapi.Message{command(14, "/remind on"), command(14, "/tone blunt"), command(14, "/goal Improve sleep")} {
		wg.Add(1)
		go func(m *tgbotapi.Message) {
			defer wg.Done()
			b.handleMessage(m)
		}(m)
	}
	wg.Wait()

	user, err := store.GetUser(context.Background(), 14)
	require.NoError(t, err)
	assert.True(t, user.RemindersEnabled)
	assert.Equal(t, models.ToneBlunt, user.Settings.Tone)
	assert.Equal(t, []string{"Improve sleep"}, user.Goals)
}

func TestMoods(t *testing.T) {
	b, out, store := newTestBot(t, nil)
	ctx := context.Background()

	b.handleMessage(command(15, "/moods"))
	assert.Equal(t, "No check-ins this week yet. Log one with /checkin <mood>.", out.last().Text)

	now := time.Now()
	require.NoError(t, store.SaveCheckIn(ctx, &models.CheckIn{UserID: 15, Mood: models.MoodAngry, CreatedAt: now.AddDate(0, 0, -20)}))
	require.NoError(t, store.SaveCheckIn(ctx, &models.CheckIn{UserID: 15, Mood: models.MoodHappy, Note: "gym", CreatedAt: now.Add(-time.Hour)}))

	b.handleMessage(command(15, "/moods week"))
	week := out.last().Text
	assert.Contains(t, week, "happy (gym)")
	assert.NotContains(t, week, "angry")
	assert.Contains(t, week, "Check-ins: 1, average 5.0 out of 5.")

	b.handleMessage(command(15, "/moods month"))
	assert.Contains(t, out.last().Text, "angry")
	assert.Contains(t, out.last().Text, "Check-ins: 2")

	b.handleMessage(command(15, "/moods year"))
	assert.Equal(t, "Send /moods week or /moods month.", out.last().Text)
}

func TestGoals(t *testing.T) {
	b, out, store := newTestBot(t, nil)
	ctx := context.Background()

	b.handleMessage(command(16, "/goals"))
	assert.Contains(t, out.last().Text, "Suggested goals:")
	assert.Contains(t, out.last().Text, "4. Improve sleep")

	b.handleMessage(command(16, "/goal 4"))
	assert.Contains(t, out.last().Text, "1. Improve sleep")

	b.handleMessage(command(16, "/goal  Improve sleep "))
	assert.Equal(t, "That goal is already on your list.", out.last().Text)

	b.handleMessage(command(16, "/goal Call my brother"))
	b.handleMessage(command(16, "/goal Run twice a week"))
	b.handleMessage(command(16, "/goal One too many"))
	assert.Contains(t, out.last().Text, "You already have 3 goals.")

	user, err := store.GetUser(ctx, 16)
	require.NoError(t, err)
	assert.Equal(t, []string{"Improve sleep", "Call my brother", "Run twice a week"}, user.Goals)

	b.handleMessage(command(16, "/ungoal 2"))
	assert.Contains(t, out.last().Text, "2. Run twice a week")
	b.handleMessage(command(16, "/ungoal 9"))
	assert.Equal(t, "There's no goal with that number. See /goals.", out.last().Text)

	user, err = store.GetUser(ctx, 16)
	require.NoError(t, err)
	assert.Equal(t, []string{"Improve sleep", "Run twice a week"}, user.Goals)
}

func TestGoalSuggestionOutOfRange(t *testing.T) {
	b, out, _ := newTestBot(t, nil)

	b.handleMessage(command(17, "/goal 42"))
	assert.Equal(t, "There's no suggestion with that number. See /goals.", out.last().Text)
}

func TestDashboard(t *testing.T) {
	b, out, _ := newTestBot(t, nil)

	b.handleMessage(command(18, "/dashboard"))
	text := out.last().Text
	assert.Contains(t, text, "Welcome, Bro.")
	assert.Contains(t, text, "Use /checkin <mood>.")
	assert.Contains(t, text, "no check-ins yet")
	assert.Contains(t, text, "Goals: none yet.")

	b.handleMessage(command(18, "/checkin stressed deadline"))
	b.handleMessage(command(18, "/goal Manage stress better"))
	b.handleMessage(command(18, "/dashboard"))
	text = out.last().Text
	assert.Contains(t, text, "Daily check-in: done today.")
	assert.Contains(t, text, "This week: 1 check-ins, average 3.0 out of 5, mostly stressed.")
	assert.Contains(t, text, "Goals: Manage stress better")
}

func TestCirclesInPlace(t *testing.T) {
	b, out, _ := newTestBot(t, nil)

	b.handleMessage(command(19, "/circles in vancouver"))
	assert.Contains(t, out.last().Text, "Vancouver")
	assert.NotContains(t, out.last().Text, "Austin")

	b.handleMessage(command(19, "/circles growth in Austin"))
	assert.Contains(t, out.last().Text, "Austin")

	b.handleMessage(command(19, "/circles growth in zoom"))
	assert.Equal(t, "No circles match your search yet.", out.last().Text)
}

func TestParseCircleArgs(t *testing.T) {
	cases := []struct {
		in, term, place string
	}{
		{"", "", ""},
		{"growth", "growth", ""},
		{"in Austin", "", "Austin"},
		{"mental health in zoom", "mental health", "zoom"},
		{"time in in Vancouver", "time in", "Vancouver"},
	}
	for _, c := range cases {
		term, place := parseCircleArgs(c.in)
		assert.Equal(t, c.term, term, c.in)
		assert.Equal(t, c.place, place, c.in)
	}
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/heybro-bot/internal/conversation"
	"github.com/xaenox/heybro-bot/internal/location"
	"github.com/xaenox/heybro-bot/internal/models"
	"github.com/xaenox/heybro-bot/internal/responder"
	"github.com/xaenox/heybro-bot/internal/storage"
	"github.com/xaenox/heybro-bot/internal/support"
	"go.uber.org/zap"
)

// sender is the part of *tgbotapi.BotAPI the bot writes through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Options struct {
	UpdateTimeout int
	Debug         bool
	TypingDelay   time.Duration
	HistorySize   int
	Fix           location.FixOptions
}

type Bot struct {
	api       *tgbotapi.BotAPI
	out       sender
	storage   storage.Storage
	responder responder.Responder
	geocoder  location.Geocoder
	hub       *locationHub
	opts      Options
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

// session is the live state of one chat.
type session struct {
	conv     *conversation.Conversation
	location *location.Machine
}

func New(token string, store storage.Storage, r responder.Responder, geocoder location.Geocoder, opts Options, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = opts.Debug
	logger.Info("Authorized on account", zap.String("username", api.Self.UserName))

	b := newBot(api, store, r, geocoder, opts, logger)
	b.api = api
	return b, nil
}

func newBot(out sender, store storage.Storage, r responder.Responder, geocoder location.Geocoder, opts Options, logger *zap.Logger) *Bot {
	if opts.UpdateTimeout <= 0 {
		opts.UpdateTimeout = 60
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 10
	}
	if opts.Fix.Timeout <= 0 {
		opts.Fix = location.DefaultFixOptions()
	}
	return &Bot{
		out:       out,
		storage:   store,
		responder: r,
		geocoder:  geocoder,
		hub:       newLocationHub(),
		opts:      opts,
		logger:    logger,
		sessions:  make(map[int64]*session),
	}
}

func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.opts.UpdateTimeout

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		go b.handleMessage(update.Message)
	}

	return nil
}

// Stop ends the update loop and tears down every session.
func (b *Bot) Stop() {
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.sessions {
		s.location.Close()
		delete(b.sessions, id)
	}
}

func (b *Bot) session(ctx context.Context, chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions[chatID]; ok {
		return s
	}

	settings := models.DefaultSettings()
	if user, err := b.storage.GetUser(ctx, chatID); err != nil {
		b.logger.Error("Failed to load user settings",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	} else {
		settings = user.Settings
	}

	opts := []location.Option{
		location.WithFixOptions(b.opts.Fix),
		location.WithLogger(b.logger.With(zap.Int64("chat_id", chatID))),
	}
	if b.geocoder != nil {
		opts = append(opts, location.WithGeocoder(b.geocoder))
	}
	machine := location.NewMachine(&chatLocator{chatID: chatID, hub: b.hub, out: b.out}, opts...)
	// Telegram cannot report a stored permission; the machine stays in prompt.
	machine.QueryInitialStatus(ctx)

	s := &session{
		conv:     conversation.New(b.responder, settings),
		location: machine,
	}
	b.sessions[chatID] = s
	return s
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	ctx := context.Background()
	chatID := message.Chat.ID

	// Answers to a pending location prompt
	if message.Location != nil {
		if !b.hub.deliverLocation(chatID, message.Location) {
			b.handleLateLocation(ctx, chatID, message.Location)
		}
		return
	}
	if isDecline(message.Text) && b.hub.deliverDenial(chatID) {
		return
	}

	// Handle commands
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	b.handleChat(ctx, message)
}

// handleLateLocation takes a location shared without a pending prompt, e.g.
// after the prompt timed out, as a fresh fix.
func (b *Bot) handleLateLocation(ctx context.Context, chatID int64, loc *tgbotapi.Location) {
	s := b.session(ctx, chatID)
	coords := location.Coordinates{Latitude: loc.Latitude, Longitude: loc.Longitude}
	if !s.location.AcceptFix(coords) {
		b.logger.Debug("Ignoring shared location", zap.Int64("chat_id", chatID))
	}
	b.sendLocationResult(chatID, s.location.State())
}

func (b *Bot) handleChat(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	s := b.session(ctx, chatID)

	if strings.TrimSpace(message.Text) == "" {
		b.sendMessage(chatID, "I can only read text for now. Type whatever is on your mind.")
		return
	}

	b.typing(chatID)
	if b.opts.TypingDelay > 0 {
		time.Sleep(b.opts.TypingDelay)
	}

	_, reply, err := s.conv.Submit(message.Text)
	if err != nil {
		if !errors.Is(err, conversation.ErrEmptyMessage) {
			b.logger.Error("Failed to submit message",
				zap.Error(err),
				zap.Int64("chat_id", chatID))
		}
		b.sendErrorMessage(chatID, "Sorry, I'm having trouble responding right now. Please try again later.")
		return
	}

	b.sendMessage(chatID, reply.Content)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(ctx, message)
	case "help":
		b.handleHelp(message)
	case "tone":
		b.handleTone(ctx, message)
	case "mtm":
		b.handleManToMan(ctx, message)
	case "history":
		b.handleHistory(ctx, message)
	case "checkin":
		b.handleCheckIn(ctx, message)
	case "vent":
		b.handleVent(ctx, message)
	case "vents":
		b.handleVents(ctx, message)
	case "unvent":
		b.handleUnvent(ctx, message)
	case "pep":
		b.sendMessage(message.Chat.ID, support.RandomPepTalk(nil))
	case "reset":
		b.sendMessage(message.Chat.ID, formatReset())
	case "support":
		b.handleSupport(ctx, message)
	case "locate":
		b.handleLocate(ctx, message)
	case "circles":
		b.handleCircles(ctx, message, false)
	case "local":
		b.handleCircles(ctx, message, true)
	case "remind":
		b.handleRemind(ctx, message)
	case "moods":
		b.handleMoods(ctx, message)
	case "goals":
		b.handleGoals(ctx, message)
	case "goal":
		b.handleAddGoal(ctx, message)
	case "ungoal":
		b.handleRemoveGoal(ctx, message)
	case "dashboard":
		b.handleDashboard(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	s := b.session(ctx, message.Chat.ID)
	b.touchUser(ctx, message.Chat.ID)

	msgs := s.conv.Recent(1)
	welcome := b.responder.Welcome(s.conv.Settings().Tone)
	if len(msgs) == 1 && msgs[0].Role == models.RoleAssistant {
		welcome = msgs[0].Content
	}
	b.sendMessage(message.Chat.ID, welcome+"\n\nUse /help to see everything I can do.")
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Just type to talk. I'm here to listen.

Chat settings:
/tone friendly|blunt|supportive - How I talk to you
/mtm - Toggle Man-to-Man mode (no-fluff answers)
/history - Show our recent messages

Check in with yourself:
/checkin <mood> [note] - Moods: happy, sad, angry, stressed, numb, other
/moods [week|month] - Your mood history
/dashboard - Your week at a glance
/goals - Your personal goals and suggestions
/goal <text or suggestion number> - Add a goal (up to 3)
/ungoal <number> - Remove a goal
/vent <text> - Get it off your chest. No replies, only you can see it
/vents - Your saved vents
/unvent <id> - Delete a vent
/pep - A quick pep talk
/reset - Breathing and grounding exercise
/remind on|off - Daily check-in reminder

Support:
/support - Crisis resources
/locate - Share your location for local resources
/circles [search] [in <city or platform>] - Find men's circles
/local - Circles near you`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleTone(ctx context.Context, message *tgbotapi.Message) {
	s := b.session(ctx, message.Chat.ID)
	arg := models.Tone(strings.ToLower(strings.TrimSpace(message.CommandArguments())))
	if !arg.Valid() {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Current tone: %s. Pick one of: friendly, blunt, supportive.", s.conv.Settings().Tone))
		return
	}

	s.conv.SetTone(arg)
	b.updateUser(ctx, message.Chat.ID, func(u *models.User) error {
		u.Settings.Tone = arg
		return nil
	})
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Tone set to %s.", arg))
}

func (b *Bot) handleManToMan(ctx context.Context, message *tgbotapi.Message) {
	s := b.session(ctx, message.Chat.ID)
	on := s.conv.ToggleManToMan()
	b.updateUser(ctx, message.Chat.ID, func(u *models.User) error {
		u.Settings.ManToManMode = on
		return nil
	})

	if on {
		b.sendMessage(message.Chat.ID, "Man-to-Man mode on. Stripped-down, no-fluff responses.")
		return
	}
	b.sendMessage(message.Chat.ID, "Man-to-Man mode off.")
}

// updateUser applies fn to the stored user. Failures are logged; it reports
// whether the change was saved.
func (b *Bot) updateUser(ctx context.Context, chatID int64, fn func(*models.User) error) bool {
	if _, err := b.storage.ModifyUser(ctx, chatID, fn); err != nil {
		b.logger.Error("Failed to update user",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		return false
	}
	return true
}

// touchUser makes sure the chat is a known user, e.g. for reminders.
func (b *Bot) touchUser(ctx context.Context, chatID int64) bool {
	return b.updateUser(ctx, chatID, func(*models.User) error { return nil })
}

func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message) {
	s := b.session(ctx, message.Chat.ID)
	b.sendMarkdown(message.Chat.ID, formatHistory(s.conv.Recent(b.opts.HistorySize)))
}

func (b *Bot) handleCheckIn(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	mood, note, _ := strings.Cut(strings.TrimSpace(message.CommandArguments()), " ")
	m, ok := models.ParseMood(mood)
	if !ok {
		b.sendMessage(chatID, "How are you feeling today? Send /checkin followed by one of: happy, sad, angry, stressed, numb, other. You can add a note after it.")
		return
	}

	// the user must be known for the check-in to count towards reminders
	if !b.touchUser(ctx, chatID) {
		b.sendErrorMessage(chatID, "Sorry, I couldn't save your check-in. Please try again.")
		return
	}
	err := b.storage.SaveCheckIn(ctx, &models.CheckIn{
		UserID: chatID,
		Mood:   m,
		Note:   strings.TrimSpace(note),
	})
	if err != nil {
		b.logger.Error("Failed to save check-in",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Sorry, I couldn't save your check-in. Please try again.")
		return
	}

	text := "Thanks for checking in today!"
	if f, ok := responder.CheckInFollowUp(m); ok {
		text += fmt.Sprintf("\n\n%s %s Try /reset for a quick mental reset, or just talk to me.", f.Headline, f.Body)
	}
	b.sendMessage(chatID, text)
}

func (b *Bot) handleVent(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.CommandArguments())
	if text == "" {
		b.sendMessage(chatID, "Get it all out. No judgment, no advice, no responses. Send /vent followed by whatever you need to get off your chest.")
		return
	}

	if err := b.storage.SaveVent(ctx, &models.VentEntry{UserID: chatID, Content: text}); err != nil {
		b.logger.Error("Failed to save vent",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Sorry, I couldn't save that. Please try again.")
		return
	}
	b.sendMessage(chatID, "Saved. No one will see this but you.")
}

func (b *Bot) handleVents(ctx context.Context, message *tgbotapi.Message) {
	entries, err := b.storage.GetVents(ctx, message.Chat.ID, 10)
	if err != nil {
		b.logger.Error("Failed to get vents",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve your vents.")
		return
	}
	b.sendMessage(message.Chat.ID, formatVents(entries))
}

func (b *Bot) handleUnvent(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	prefix := strings.TrimSpace(message.CommandArguments())
	if prefix == "" {
		b.sendMessage(chatID, "Send /unvent followed by the id shown in /vents.")
		return
	}

	entries, err := b.storage.GetVents(ctx, chatID, 0)
	if err != nil {
		b.logger.Error("Failed to get vents",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Sorry, I couldn't delete that vent.")
		return
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.ID, prefix) {
			continue
		}
		if err := b.storage.DeleteVent(ctx, chatID, e.ID); err != nil {
			b.logger.Error("Failed to delete vent",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
				zap.String("vent_id", e.ID))
			b.sendErrorMessage(chatID, "Sorry, I couldn't delete that vent.")
			return
		}
		b.sendMessage(chatID, "Deleted.")
		return
	}
	b.sendMessage(chatID, "I couldn't find a vent with that id.")
}

func (b *Bot) handleSupport(ctx context.Context, message *tgbotapi.Message) {
	s := b.session(ctx, message.Chat.ID)

	// granted earlier but the fix was lost, e.g. it timed out
	if st := s.location.State(); st.Status == location.StatusGranted && !st.HasCoordinates() {
		s.location.ResolveLocation(ctx)
	}

	st := s.location.State()
	resources := support.FilterResources(support.DefaultCrisisResources(), st.Region)
	b.sendMarkdown(message.Chat.ID, formatResources(resources, st))
}

func (b *Bot) handleLocate(ctx context.Context, message *tgbotapi.Message) {
	s := b.session(ctx, message.Chat.ID)
	if s.location.State().Status == location.StatusUnavailable {
		b.sendMessage(message.Chat.ID, formatLocationResult(s.location.State()))
		return
	}

	s.location.RequestPermission(ctx)
	b.sendLocationResult(message.Chat.ID, s.location.State())
}

func (b *Bot) handleCircles(ctx context.Context, message *tgbotapi.Message, localOnly bool) {
	s := b.session(ctx, message.Chat.ID)

	if localOnly {
		switch s.location.State().Status {
		case location.StatusPrompt:
			s.location.RequestPermission(ctx)
		case location.StatusGranted:
			s.location.ResolveLocation(ctx)
		}
		st := s.location.State()
		if st.Status != location.StatusGranted {
			b.sendLocationResult(message.Chat.ID, st)
			return
		}
	}

	term, place := parseCircleArgs(message.CommandArguments())
	q := support.CircleQuery{Term: term, Place: place, LocalOnly: localOnly}
	circles := support.SearchCircles(support.DefaultCircles(), q, s.location.State())
	b.sendMarkdown(message.Chat.ID, formatCircles(circles))
}

func (b *Bot) handleRemind(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	var enabled bool
	switch strings.ToLower(strings.TrimSpace(message.CommandArguments())) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		b.sendMessage(chatID, "Send /remind on or /remind off.")
		return
	}

	ok := b.updateUser(ctx, chatID, func(u *models.User) error {
		u.RemindersEnabled = enabled
		return nil
	})
	if !ok {
		b.sendErrorMessage(chatID, "Sorry, I couldn't update your reminders.")
		return
	}

	if enabled {
		b.sendMessage(chatID, "Daily check-in reminders are on.")
		return
	}
	b.sendMessage(chatID, "Daily check-in reminders are off.")
}

func (b *Bot) handleMoods(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	frame, err := support.ParseTimeFrame(message.CommandArguments())
	if err != nil {
		b.sendMessage(chatID, "Send /moods week or /moods month.")
		return
	}

	summary, err := b.moodSummary(ctx, chatID, frame)
	if err != nil {
		b.sendErrorMessage(chatID, "Sorry, I couldn't load your mood history.")
		return
	}
	b.sendMessage(chatID, formatMoods(summary))
}

func (b *Bot) moodSummary(ctx context.Context, chatID int64, frame support.TimeFrame) (support.MoodSummary, error) {
	checkIns, err := b.storage.GetCheckIns(ctx, chatID, 0)
	if err != nil {
		b.logger.Error("Failed to get check-ins",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		return support.MoodSummary{}, err
	}
	return support.SummarizeMoods(checkIns, frame, time.Now()), nil
}

func (b *Bot) handleGoals(ctx context.Context, message *tgbotapi.Message) {
	user, err := b.storage.GetUser(ctx, message.Chat.ID)
	if err != nil {
		b.logger.Error("Failed to get user",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't load your goals.")
		return
	}
	b.sendMessage(message.Chat.ID, formatGoals(user.Goals))
}

func (b *Bot) handleAddGoal(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	arg := strings.TrimSpace(message.CommandArguments())
	if arg == "" {
		b.sendMessage(chatID, "Send /goal followed by what you're working on, or the number of a suggestion from /goals.")
		return
	}

	user, err := b.storage.ModifyUser(ctx, chatID, func(u *models.User) error {
		goal := arg
		if n, ok := parseIndex(arg); ok && len(u.Goals) == 0 {
			suggested := support.SuggestedGoals()
			if n >= len(suggested) {
				return support.ErrNoSuchGoal
			}
			goal = suggested[n]
		}
		updated, err := support.AddGoal(u.Goals, goal)
		if err != nil {
			return err
		}
		u.Goals = updated
		return nil
	})
	switch {
	case errors.Is(err, support.ErrGoalLimit):
		b.sendMessage(chatID, fmt.Sprintf("You already have %d goals. Remove one with /ungoal <number> first.", support.MaxGoals))
	case errors.Is(err, support.ErrDuplicateGoal):
		b.sendMessage(chatID, "That goal is already on your list.")
	case errors.Is(err, support.ErrNoSuchGoal):
		b.sendMessage(chatID, "There's no suggestion with that number. See /goals.")
	case errors.Is(err, support.ErrEmptyGoal):
		b.sendMessage(chatID, "Send /goal followed by what you're working on.")
	case err != nil:
		b.logger.Error("Failed to add goal",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Sorry, I couldn't save that goal.")
	default:
		b.sendMessage(chatID, formatGoals(user.Goals))
	}
}

func (b *Bot) handleRemoveGoal(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	n, ok := parseIndex(message.CommandArguments())
	if !ok {
		b.sendMessage(chatID, "Send /ungoal followed by the number shown in /goals.")
		return
	}

	user, err := b.storage.ModifyUser(ctx, chatID, func(u *models.User) error {
		updated, err := support.RemoveGoal(u.Goals, n)
		if err != nil {
			return err
		}
		u.Goals = updated
		return nil
	})
	switch {
	case errors.Is(err, support.ErrNoSuchGoal):
		b.sendMessage(chatID, "There's no goal with that number. See /goals.")
	case err != nil:
		b.logger.Error("Failed to remove goal",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Sorry, I couldn't remove that goal.")
	default:
		b.sendMessage(chatID, formatGoals(user.Goals))
	}
}

func (b *Bot) handleDashboard(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	user, err := b.storage.GetUser(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get user",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Sorry, I couldn't load your dashboard.")
		return
	}
	summary, err := b.moodSummary(ctx, chatID, support.TimeFrameWeek)
	if err != nil {
		b.sendErrorMessage(chatID, "Sorry, I couldn't load your dashboard.")
		return
	}
	b.sendMessage(chatID, formatDashboard(user, summary, time.Now()))
}

// SendCheckInReminder implements scheduler.Notifier.
func (b *Bot) SendCheckInReminder(ctx context.Context, user models.User) error {
	msg := tgbotapi.NewMessage(user.ChatID, "Hey, quick check-in. How are you feeling today? Send /checkin <mood> to log it. Turn these off with /remind off.")
	if _, err := b.out.Send(msg); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	return nil
}

func (b *Bot) sendLocationResult(chatID int64, st location.State) {
	msg := tgbotapi.NewMessage(chatID, formatLocationResult(st))
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.out.Send(msg); err != nil {
		b.logger.Error("Failed to send location result",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) typing(chatID int64) {
	if _, err := b.out.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug("Failed to send typing action",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.out.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.out.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.out.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/xaenox/heybro-bot/internal/models"
	"github.com/xaenox/heybro-bot/internal/storage"
	"github.com/xaenox/heybro-bot/pkg/config"
	"go.uber.org/zap"
)

// Notifier delivers the daily check-in nudge.
type Notifier interface {
	SendCheckInReminder(ctx context.Context, user models.User) error
}

// Start registers the daily reminder job and starts the scheduler.
func Start(n Notifier, store storage.Storage, cfg config.RemindersConfig, logger *zap.Logger) (gocron.Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load reminder timezone: %w", err)
	}
	hour, minute, err := cfg.Clock()
	if err != nil {
		return nil, err
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, minute, 0))),
		gocron.NewTask(func() {
			Run(context.Background(), n, store, loc, logger)
		}),
		gocron.WithName("check-in-reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("register reminder job: %w", err)
	}

	s.Start()
	logger.Info("Check-in reminders scheduled",
		zap.String("at", cfg.At),
		zap.String("timezone", loc.String()))
	return s, nil
}

// Run sends reminders to every user that is due right now.
func Run(ctx context.Context, n Notifier, store storage.Storage, loc *time.Location, logger *zap.Logger) {
	users, err := store.ListUsers(ctx)
	if err != nil {
		logger.Error("Failed to list users for reminders", zap.Error(err))
		return
	}

	for _, u := range RemindDue(time.Now(), loc, users) {
		if err := n.SendCheckInReminder(ctx, u); err != nil {
			logger.Error("Failed to send check-in reminder",
				zap.Error(err),
				zap.Int64("chat_id", u.ChatID))
		}
	}
}

// RemindDue selects users with reminders on who have not checked in on
// now's calendar day in loc.
func RemindDue(now time.Time, loc *time.Location, users []models.User) []models.User {
	today := now.In(loc).Format(time.DateOnly)

	var due []models.User
	for _, u := range users {
		if !u.RemindersEnabled {
			continue
		}
		if !u.LastCheckInAt.IsZero() && u.LastCheckInAt.In(loc).Format(time.DateOnly) == today {
			continue
		}
		due = append(due, u)
	}
	return due
}

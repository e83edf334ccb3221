package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/xaenox/heybro-bot/internal/bot"
	"github.com/xaenox/heybro-bot/internal/location"
	"github.com/xaenox/heybro-bot/internal/responder"
	"github.com/xaenox/heybro-bot/internal/scheduler"
	"github.com/xaenox/heybro-bot/internal/storage"
	"github.com/xaenox/heybro-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// TELEGRAM_TOKEN etc. from a local .env, if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to load .env", zap.Error(err))
	}

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Nothing leaves the process; users start fresh on every restart.
	logger.Info("Using in-memory storage")
	store := storage.NewMemoryStorage()
	defer store.Close()

	geocoder := location.NewNominatimGeocoder(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout)

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, store, responder.NewDefaultResponder(logger), geocoder, bot.Options{
		UpdateTimeout: cfg.Telegram.UpdateTimeout,
		Debug:         cfg.Telegram.Debug,
		TypingDelay:   cfg.Chat.TypingDelay,
		HistorySize:   cfg.Chat.HistorySize,
		Fix: location.FixOptions{
			HighAccuracy: cfg.Location.HighAccuracy,
			Timeout:      cfg.Location.Timeout,
		},
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	if cfg.Reminders.Enabled {
		s, err := scheduler.Start(b, store, cfg.Reminders, logger)
		if err != nil {
			logger.Fatal("Failed to start reminders", zap.Error(err))
		}
		defer func() {
			if err := s.Shutdown(); err != nil {
				logger.Error("Failed to stop reminders", zap.Error(err))
			}
		}()
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("Shutting down")
		b.Stop()
	}()

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}

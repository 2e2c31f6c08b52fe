package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"blofin-trading-bot/config"
	"blofin-trading-bot/internal/api"
	"blofin-trading-bot/internal/blofin"
	"blofin-trading-bot/internal/botctl"
	"blofin-trading-bot/internal/events"
	"blofin-trading-bot/internal/executor"
	"blofin-trading-bot/internal/notification"
	"blofin-trading-bot/internal/scanner"
	"blofin-trading-bot/internal/settings"
	"blofin-trading-bot/internal/trading"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg.Logging)
	logger.Info().Msg("configuration loaded")

	// Event bus
	bus := events.NewBus()

	// Notifications
	notifier := notification.NewManager(cfg.Notification.Enabled, logger)
	if cfg.Notification.Telegram.Enabled {
		notifier.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
			BotToken: cfg.Notification.Telegram.BotToken,
			ChatID:   cfg.Notification.Telegram.ChatID,
			Enabled:  cfg.Notification.Telegram.Enabled,
		}))
		logger.Info().Msg("telegram notifications enabled")
	}
	if cfg.Notification.Discord.Enabled {
		notifier.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
			WebhookURL: cfg.Notification.Discord.WebhookURL,
			Enabled:    cfg.Notification.Discord.Enabled,
		}))
		logger.Info().Msg("discord notifications enabled")
	}

	// Exchange client and the factory used for re-initialization after auth
	// failures
	newClient := func() (executor.Exchange, error) {
		return blofin.NewClient(cfg.Blofin.APIKey, cfg.Blofin.APISecret, cfg.Blofin.Passphrase, cfg.Blofin.BaseURL), nil
	}
	client, _ := newClient()
	exec := executor.New(client, newClient, logger)

	// Settings store: Redis when configured so parameters survive restarts,
	// in-memory otherwise
	var store settings.Store
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis connection failed")
		}
		store = settings.NewRedisStore(rdb, cfg.Trading)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis settings store")
	} else {
		store = settings.NewMemoryStore(cfg.Trading)
		logger.Info().Msg("using in-memory settings store")
	}

	// Worker components
	scan := scanner.New(exec, logger)
	positions := trading.NewPositionManager(exec, logger)
	bot := trading.NewBot(exec, scan, positions, store, notifier, bus, logger)
	controller := botctl.New(logger)

	// Control surface
	server := api.NewServer(cfg.Server, !cfg.Logging.Pretty, controller, bot, scan, store, bus, logger)
	server.Start()

	// Start trading immediately; the dashboard can stop/restart it
	if controller.Start(bot.Run) {
		logger.Info().Str("timeframe", cfg.Trading.Timeframe).Msg("trading worker started")
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	controller.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("api server shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}

// newLogger builds the root zerolog logger from the logging configuration
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Logger()
}

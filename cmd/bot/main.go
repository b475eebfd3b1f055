package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/toxguard/tgbot/internal/config"
	"github.com/toxguard/tgbot/internal/handlers"
	"github.com/toxguard/tgbot/internal/i18n"
	"github.com/toxguard/tgbot/internal/middleware"
	"github.com/toxguard/tgbot/internal/moderation"
	"github.com/toxguard/tgbot/internal/platform"
	"github.com/toxguard/tgbot/internal/services/cache"
	"github.com/toxguard/tgbot/internal/services/classifier"
	"github.com/toxguard/tgbot/internal/services/modlog"
	"github.com/toxguard/tgbot/internal/services/settings"
	"github.com/toxguard/tgbot/internal/services/storage"
	"github.com/toxguard/tgbot/internal/services/violations"
	"github.com/toxguard/tgbot/pkg/logger"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting toxicity moderation bot...")

	// Initialize bot
	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}

	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Runtime moderation settings (threshold, cache size, log channel)
	settingsStore := settings.NewStore(cfg.Moderation.SettingsFile, log)

	// Initialize metrics
	metrics := middleware.NewMetrics()

	// Initialize prediction cache and classifier
	predictionCache, err := cache.NewPredictionCache(settingsStore.CacheSize(), log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize prediction cache")
	}

	model := classifier.NewRemoteModel(&cfg.Classifier, metrics, log)
	classifierService := classifier.NewScorer(model, predictionCache, metrics, log)

	// Initialize violation-count storage
	storageManager, err := storage.NewManager(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	tracker := violations.NewTracker(storageManager, log)

	// Initialize moderation log
	modLog, err := modlog.New(cfg.Moderation.LogDir, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize moderation log")
	}

	// Initialize i18n
	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg, log)

	// Platform adapter and escalation engine
	actions := platform.NewTelegram(bot, log)
	engine := moderation.NewEngine(cfg, tracker, modLog, actions, settingsStore, localizer, metrics, log)

	// Start metrics server if enabled
	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Initialize handlers
	commandHandler := handlers.NewCommandHandler(
		bot,
		cfg,
		classifierService,
		modLog,
		settingsStore,
		localizer,
		metrics,
		log,
	)

	messageHandler := handlers.NewMessageHandler(
		classifierService,
		engine,
		settingsStore,
		rateLimiter,
		metrics,
		log,
	)

	// Use long polling
	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Bot.UpdateTimeout
	updates := bot.GetUpdatesChan(u)
	log.Info("Using long polling")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Main bot loop
	go func() {
		for update := range updates {
			if update.Message == nil {
				continue
			}

			if update.Message.IsCommand() {
				metrics.RecordCommandExecuted(update.Message.Command())

				if err := commandHandler.HandleCommand(ctx, update.Message); err != nil {
					log.WithError(err).Error("Failed to handle command")
				}
				continue
			}

			if err := messageHandler.HandleMessage(ctx, &update); err != nil {
				log.WithError(err).Error("Failed to handle message")
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("Shutdown signal received")

	bot.StopReceivingUpdates()

	// Cancel context to stop all goroutines
	cancel()

	// Give goroutines time to finish
	time.Sleep(2 * time.Second)

	log.Info("Bot stopped")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"shopdesk/config"
	"shopdesk/ingest"
	"shopdesk/middleware"
	"shopdesk/routes"
	"shopdesk/store"
	"shopdesk/utils"
	"shopdesk/worker"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.AppConfig

	utils.InitLogger(cfg.Environment, cfg.LogLevel)
	logger := utils.Logger("main")

	if err := utils.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.WithError(err).Warn("Sentry initialization failed, continuing without error reporting")
	}
	defer utils.FlushSentry()

	// Storage
	var dataStore store.Store
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		dataStore = store.NewMemoryStore()
	default:
		if err := config.ConnectDB(); err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		dataStore = store.NewGormStore(config.DB)
	}

	// Notifications
	var notifier worker.Notifier = worker.LogNotifier{}
	if cfg.TelegramBotToken != "" {
		notifier = worker.NewTelegramNotifier(dataStore, cfg.TelegramBotToken, cfg.TelegramAPIBase)
	}
	notificationWorker := worker.NewNotificationWorker(notifier, cfg.NotifyQueueSize, utils.Logger("notifications"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go notificationWorker.Start(ctx)

	pipeline := ingest.NewPipeline(dataStore, notificationWorker)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "shopdesk",
		ErrorHandler: utils.FiberErrorHandler,
		BodyLimit:    cfg.MaxBodyBytes,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins)))

	rateLimitStorage := middleware.RateLimitStorage(cfg.Redis)
	routes.SetupRoutes(app, routes.Dependencies{
		Store:            dataStore,
		Pipeline:         pipeline,
		Notifications:    notificationWorker,
		RateLimit:        cfg.CustomerWebhookRateLimit,
		RateLimitStorage: rateLimitStorage,
	})

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("Shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer shutdownCancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	// Start server
	logger.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Errorf("Server stopped: %v", err)
	}

	// Stop accepting notifications and deliver what is queued.
	cancel()
	notificationWorker.Wait()

	if rateLimitStorage != nil {
		if err := rateLimitStorage.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close rate limit storage")
		}
	}
	if err := config.CloseDB(); err != nil {
		logger.WithError(err).Warn("Failed to close database")
	}
	logger.Info("Shutdown complete")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	eventapp "github.com/orderhub/backend/internal/application/event"
	orderapp "github.com/orderhub/backend/internal/application/order"
	"github.com/orderhub/backend/internal/infrastructure/alert"
	"github.com/orderhub/backend/internal/infrastructure/broker"
	"github.com/orderhub/backend/internal/infrastructure/config"
	"github.com/orderhub/backend/internal/infrastructure/event"
	"github.com/orderhub/backend/internal/infrastructure/locking"
	"github.com/orderhub/backend/internal/infrastructure/logger"
	"github.com/orderhub/backend/internal/infrastructure/payment"
	"github.com/orderhub/backend/internal/infrastructure/persistence"
	"github.com/orderhub/backend/internal/interfaces/http/handler"
	"github.com/orderhub/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting OrderHub Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := persistence.AutoMigrate(db.DB); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connected and migrated")

	// Distributed locks
	lockService, err := locking.NewRedisLockService(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := lockService.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()

	// Message broker
	publisher, err := broker.NewRabbitMQPublisher(cfg.Broker.URL(), cfg.Broker.Exchange, log)
	if err != nil {
		log.Fatal("Failed to connect to broker", zap.Error(err))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("Error closing broker connection", zap.Error(err))
		}
	}()

	// Alerting
	notifier := alert.NewHTTPNotifier(alert.Config{
		WebhookURL:  cfg.Alerting.WebhookURL,
		EmailAPIURL: cfg.Alerting.EmailAPIURL,
		EmailTo:     cfg.Alerting.EmailTo,
		Timeout:     cfg.Alerting.Timeout,
	}, log)

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	outboxRepo := persistence.NewGormOutboxRepository(db.DB)
	deadLetterRepo := persistence.NewGormDeadLetterRepository(db.DB)

	// Event decode registry (the closed set of event types)
	registry := event.NewOrderEventRegistry()

	// Background workers
	instanceID := event.NewInstanceID()
	outboxPublisher := event.NewOutboxPublisher(
		outboxRepo, lockService, publisher, registry, notifier,
		event.PublisherConfig{
			PollInterval:   cfg.Outbox.PollInterval,
			BatchSize:      cfg.Outbox.BatchSize,
			MaxRetryCount:  cfg.Outbox.MaxRetryCount,
			AlertThreshold: cfg.Outbox.AlertThreshold,
			GlobalLockTTL:  cfg.Outbox.GlobalLockTTL,
			RecordLockTTL:  cfg.Outbox.RecordLockTTL,
		},
		instanceID, log,
	)
	deadLetterHandler := event.NewDeadLetterHandler(
		deadLetterRepo, publisher, registry, notifier,
		event.DeadLetterConfig{
			ReplayInterval: cfg.DeadLetter.ReplayInterval,
			ReplayCeiling:  cfg.DeadLetter.ReplayCeiling,
		},
		log,
	)

	workerCtx := context.Background()
	if cfg.Outbox.Enabled {
		outboxPublisher.Start(workerCtx)
	}
	if cfg.DeadLetter.Enabled {
		deadLetterHandler.Start(workerCtx)
	}

	// Application services
	paymentClient := payment.NewClient(cfg.Payment.APIURL, cfg.Payment.Timeout, log)
	orderService := orderapp.NewService(db, orderRepo, outboxRepo, paymentClient, log)
	eventService := eventapp.NewService(
		outboxRepo, deadLetterRepo, publisher, registry, deadLetterHandler,
		cfg.Outbox.MaxRetryCount, log,
	)

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.Setup(router.Handlers{
		Orders:      handler.NewOrderHandler(orderService),
		Outbox:      handler.NewOutboxHandler(eventService),
		DeadLetters: handler.NewDeadLetterHandler(eventService),
		System: handler.NewSystemHandler(map[string]handler.HealthCheck{
			"database": db.Ping,
			"redis": func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return lockService.Ping(ctx)
			},
			"broker": publisher.Ping,
		}),
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if cfg.Outbox.Enabled {
		if err := outboxPublisher.Stop(shutdownCtx); err != nil {
			log.Error("Outbox publisher shutdown failed", zap.Error(err))
		}
	}
	if cfg.DeadLetter.Enabled {
		if err := deadLetterHandler.Stop(shutdownCtx); err != nil {
			log.Error("Dead letter handler shutdown failed", zap.Error(err))
		}
	}

	log.Info("Shutdown complete")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apkanwar/BetterChallenges/internal/config"
	"github.com/apkanwar/BetterChallenges/internal/directory"
	"github.com/apkanwar/BetterChallenges/internal/handler"
	"github.com/apkanwar/BetterChallenges/internal/health"
	"github.com/apkanwar/BetterChallenges/internal/kafka"
	"github.com/apkanwar/BetterChallenges/internal/postgres"
	"github.com/apkanwar/BetterChallenges/internal/redis"
	"github.com/apkanwar/BetterChallenges/internal/service"
	"github.com/apkanwar/BetterChallenges/internal/websocket"
	"github.com/apkanwar/BetterChallenges/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	cache, err := redis.NewCache(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer cache.Close()
	logger.Info("connected to Redis")

	// Initialize PostgreSQL
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	store, err := postgres.NewStore(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := store.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Bind the device's stable participant identity
	userID, err := store.LoadOrCreateIdentity(ctx)
	if err != nil {
		logger.Error("failed to load device identity", "error", err)
		os.Exit(1)
	}
	logger.Info("device identity bound", "user_id", userID)

	// Initialize capability collaborators
	healthSource := health.NewSource(cache, logger)
	contactDirectory := directory.NewDirectory(store.Pool(), cache, logger)

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize services
	challengeService := service.NewChallengeService(
		store,
		healthSource,
		contactDirectory,
		cache,
		&cfg.Challenge,
		logger,
	)

	// Set the WebSocket hub on the service for broadcasting
	challengeService.SetHub(wsHub)

	// Load the persisted challenge collection
	if err := challengeService.Bootstrap(ctx, userID); err != nil {
		logger.Error("failed to bootstrap challenge collection", "error", err)
		os.Exit(1)
	}

	// Initialize rollover worker
	rolloverWorker := worker.NewRolloverWorker(challengeService, &cfg.Rollover, logger)

	// Carry over any snapshots that went stale while the server was down
	rolloverWorker.RunOnce(ctx)

	// Start rollover worker
	if cfg.Rollover.Enabled {
		if err := rolloverWorker.Start(ctx); err != nil {
			logger.Error("failed to start rollover worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Kafka consumer for snapshot ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, challengeService, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(challengeService, wsHub, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		logger.Info("WebSocket endpoint available at /ws")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop WebSocket hub
	wsHub.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop rollover worker
	if err := rolloverWorker.Stop(); err != nil {
		logger.Error("failed to stop rollover worker", "error", err)
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/converse-demo/converse/internal/api"
	"github.com/converse-demo/converse/internal/config"
	"github.com/converse-demo/converse/internal/conversation"
	"github.com/converse-demo/converse/internal/generation"
	"github.com/converse-demo/converse/internal/history"
	"github.com/converse-demo/converse/internal/notifications"
	"github.com/converse-demo/converse/internal/pacing"
	"github.com/converse-demo/converse/internal/platform"
	"github.com/converse-demo/converse/internal/posting"
	"github.com/converse-demo/converse/internal/reporting"
	"github.com/converse-demo/converse/internal/scheduler"
	"github.com/converse-demo/converse/internal/storage"
	"github.com/converse-demo/converse/internal/store"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting conversation generator")

	db, err := store.Open(cfg.DBDriver, cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repo := store.NewRepository(db)
	historyRepo := store.NewHistoryRepository(repo)
	analyticsRepo := store.NewAnalyticsRepository(repo)
	definitionRepo := store.NewDefinitionRepository(repo)

	slack := platform.NewSlackPlatform(cfg.SlackBotToken, cfg.SlackAPIURL, cfg.Debug)

	var archive conversation.Archiver
	if cfg.StorageAccount != "" {
		blobs, err := storage.NewAzureStorage(context.Background(), cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
		archive = storage.NewTranscriptArchive(blobs)
	}

	conversations := conversation.NewService(conversation.Deps{
		Platform:    slack,
		Generator:   generation.NewClient(newBackend(cfg), cfg.GenerationMaxTokens, cfg.GenerationRetries),
		Poster:      posting.NewPoster(slack, store.NewMessageRepository(repo)),
		Reactions:   posting.NewReactionApplier(slack),
		Recorder:    history.NewRecorder(historyRepo, analyticsRepo),
		Users:       store.NewUserRepository(repo),
		Definitions: definitionRepo,
		Archive:     archive,
		Pacing:      pacing.PerRun(cfg.PostInterval),
		RunTimeout:  cfg.RunTimeout,
		Registerer:  prometheus.DefaultRegisterer,
	})

	var reporter scheduler.Reporter
	if cfg.NotificationsEnabled() {
		reporter = reporting.NewService(cfg.ReportSchedule, historyRepo, analyticsRepo, notifications.NewService(cfg))
	} else {
		logrus.Info("No notification channel configured, usage reports disabled")
	}

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg.ReportSchedule, reporter, history.NewSweeper(historyRepo, cfg.HistoryStaleAfter))

	// Start scheduler
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	handler := api.NewHandler(conversations, definitionRepo, store.NewSelectionRepository(repo), db, cfg.APIToken)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     handler.Router(),
		ReadTimeout: 15 * time.Second,
		// synchronous generation requests can run for minutes
		WriteTimeout: cfg.RunTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func newBackend(cfg *config.Config) generation.Backend {
	if cfg.GenerationBackend == config.BackendAnthropic {
		return generation.NewAnthropicBackend(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}
	return generation.NewDevXPBackend(cfg.GenerationAPIURL, cfg.GenerationAPIKey, cfg.GenerationSource, cfg.GenerationTimeout)
}

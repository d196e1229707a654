package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/converse-demo/converse/internal/config"
	"github.com/converse-demo/converse/internal/conversation"
	"github.com/converse-demo/converse/internal/generation"
	"github.com/converse-demo/converse/internal/history"
	"github.com/converse-demo/converse/internal/pacing"
	"github.com/converse-demo/converse/internal/platform"
	"github.com/converse-demo/converse/internal/posting"
	"github.com/converse-demo/converse/internal/storage"
	"github.com/converse-demo/converse/internal/store"
)

// app holds the wired services a command needs
type app struct {
	cfg           *config.Config
	db            *store.DB
	repo          *store.Repository
	archive       *storage.TranscriptArchive
	conversations *conversation.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DBDriver, cfg.DatabaseURL, verbose)
	if err != nil {
		return nil, err
	}
	repo := store.NewRepository(db)

	a := &app{cfg: cfg, db: db, repo: repo}

	var archive conversation.Archiver
	if cfg.StorageAccount != "" {
		blobs, err := storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			db.Close()
			return nil, err
		}
		a.archive = storage.NewTranscriptArchive(blobs)
		archive = a.archive
	}

	var backend generation.Backend
	if cfg.GenerationBackend == config.BackendAnthropic {
		backend = generation.NewAnthropicBackend(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	} else {
		backend = generation.NewDevXPBackend(cfg.GenerationAPIURL, cfg.GenerationAPIKey, cfg.GenerationSource, cfg.GenerationTimeout)
	}

	slack := platform.NewSlackPlatform(cfg.SlackBotToken, cfg.SlackAPIURL, verbose)
	a.conversations = conversation.NewService(conversation.Deps{
		Platform:    slack,
		Generator:   generation.NewClient(backend, cfg.GenerationMaxTokens, cfg.GenerationRetries),
		Poster:      posting.NewPoster(slack, store.NewMessageRepository(repo)),
		Reactions:   posting.NewReactionApplier(slack),
		Recorder:    history.NewRecorder(store.NewHistoryRepository(repo), store.NewAnalyticsRepository(repo)),
		Users:       store.NewUserRepository(repo),
		Definitions: store.NewDefinitionRepository(repo),
		Archive:     archive,
		Pacing:      pacing.PerRun(cfg.PostInterval),
		RunTimeout:  cfg.RunTimeout,
		Registerer:  prometheus.NewRegistry(),
	})

	return a, nil
}

func (a *app) Close() {
	a.db.Close()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

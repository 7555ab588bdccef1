// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - shared wiring for every parley command.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/avelinek/parley/internal/api"
	"github.com/avelinek/parley/internal/chat"
	"github.com/avelinek/parley/internal/config"
	"github.com/avelinek/parley/internal/history"
	"github.com/avelinek/parley/internal/items"
	"github.com/avelinek/parley/internal/logging"
	"github.com/avelinek/parley/internal/model"
	"github.com/avelinek/parley/internal/session"
	"github.com/avelinek/parley/internal/store"
)

// App bundles the wired services a command handler needs.
type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Client  *api.Client
	Creds   *store.Credentials
	Session *session.Controller
	Chat    *chat.Controller
	Items   *items.Service
	Archive *history.Archive

	logFile *os.File
}

// Build assembles the full service stack from the config on disk.
// Global flags override individual config values.
func Build(args Args) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if args.Model != "" {
		cfg.Chat.DefaultModel = args.Model
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	level := cfg.Log.Level
	if args.Verbose {
		level = "debug"
	}
	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	log, logFile, err := logging.Open(logPath, level)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	if err := config.EnsureDir(); err != nil {
		return nil, err
	}

	statePath := filepath.Join(dir, "state.json")
	var kv store.KV
	if cfg.Store.Encrypt {
		kv, err = store.NewEncryptedFileKV(statePath, filepath.Join(dir, "state.key"))
	} else {
		kv, err = store.NewFileKV(statePath)
	}
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	creds := store.NewCredentials(kv)
	client := api.NewClient(cfg.API.BaseURL, creds).
		WithTimeout(cfg.Timeout()).
		WithRateLimit(rate.Limit(cfg.API.RequestsPerSec), 3).
		WithLogger(log)

	sess := session.NewController(client, creds).WithLogger(log)

	arch, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	chatCtrl := chat.NewController(client, kv, creds).
		WithLogger(log).
		WithArchive(arch).
		WithMaxMessages(cfg.Chat.MaxMessages).
		WithCooldown(cfg.Cooldown())
	if cfg.Chat.DefaultModel == "claude" {
		// Only applied when no model is persisted yet; a stored
		// choice wins.
		if _, ok := kv.Get(store.KeyModel); !ok {
			_ = chatCtrl.SetModel(model.ModelClaude)
		}
	}

	itemSvc := items.NewService(client).WithLogger(log)

	return &App{
		Config:  cfg,
		Log:     log,
		Client:  client,
		Creds:   creds,
		Session: sess,
		Chat:    chatCtrl,
		Items:   itemSvc,
		Archive: arch,
		logFile: logFile,
	}, nil
}

// Close releases the archive and log file handles.
func (a *App) Close() {
	if a.Archive != nil {
		_ = a.Archive.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Command server runs the Soundcheck backend: the sync engine pulling
// artists and shows from the external sources, the vote aggregator, the
// trending scorer, and the HTTP API, all under one supervisor tree.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/swbam/soundcheck/internal/api"
	"github.com/swbam/soundcheck/internal/config"
	"github.com/swbam/soundcheck/internal/events"
	"github.com/swbam/soundcheck/internal/logging"
	"github.com/swbam/soundcheck/internal/reconcile"
	"github.com/swbam/soundcheck/internal/source"
	"github.com/swbam/soundcheck/internal/store"
	"github.com/swbam/soundcheck/internal/supervisor"
	syncengine "github.com/swbam/soundcheck/internal/sync"
	"github.com/swbam/soundcheck/internal/trending"
	"github.com/swbam/soundcheck/internal/vote"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	logging.Info().
		Str("store", cfg.Store.Backend).
		Str("listen", cfg.Server.Addr()).
		Bool("scheduled_sync", cfg.Sync.Scheduled).
		Msg("Starting Soundcheck")

	st, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	catalog := source.NewCatalogClient(cfg.Catalog, cfg.Resilience)
	eventsClient := source.NewEventClient(cfg.Events, cfg.Resilience)
	reconciler := reconcile.New(st)
	orchestrator := syncengine.NewOrchestrator(cfg.Sync, catalog, eventsClient, reconciler, bus)

	aggregator := vote.NewAggregator(st)
	scorer := trending.NewScorer(st, cfg.Trending)

	handler := api.NewHandler(aggregator, scorer, orchestrator, bus, st)
	router := api.NewRouter(handler, cfg.Server)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))
	if cfg.Sync.Scheduled {
		tree.AddSyncService(syncengine.NewScheduler(orchestrator, cfg.Sync.Interval))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := tree.ServeBackground(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor stopped with error")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Fatal().Err(err).Msg("Supervisor tree failed")
		}
	}

	logging.Info().Msg("Soundcheck stopped")
}

// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swbam/soundcheck/internal/config"
	"github.com/swbam/soundcheck/internal/middleware"
)

// Router assembles the HTTP routes around a Handler.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter builds a Router from wired dependencies.
func NewRouter(handler *Handler, cfg config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all routes and the global middleware stack.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", voterHeader},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", router.handler.Health)
		r.Get("/trending/{entity}", router.handler.Trending)

		// Votes are rate limited per voter and IP so one browser cannot
		// flood the counters.
		r.With(httprate.Limit(
			router.voteRateLimit(),
			router.voteRateWindow(),
			httprate.WithKeyFuncs(voteRateKey, httprate.KeyByIP),
		)).Post("/votes", router.handler.CastVote)

		r.Post("/setlists/{setlistID}/recount", router.handler.RecountSetlist)

		r.Route("/sync", func(r chi.Router) {
			r.Post("/trigger", router.handler.TriggerSync)
			r.Get("/cycles", router.handler.ListSyncCycles)
			r.Get("/cycles/{cycleID}", router.handler.SyncCycleStatus)
			r.Delete("/cycles/{cycleID}", router.handler.CancelSyncCycle)
		})
	})

	return r
}

func (router *Router) corsOrigins() []string {
	if len(router.cfg.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return router.cfg.CORSOrigins
}

func (router *Router) voteRateLimit() int {
	if router.cfg.VoteRateLimit <= 0 {
		return 30
	}
	return router.cfg.VoteRateLimit
}

func (router *Router) voteRateWindow() time.Duration {
	if router.cfg.VoteRateWindow <= 0 {
		return time.Minute
	}
	return router.cfg.VoteRateWindow
}

func voteRateKey(r *http.Request) (string, error) {
	return r.Header.Get(voterHeader), nil
}

// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/swbam/soundcheck/internal/models"
	"github.com/swbam/soundcheck/internal/trending"
	"github.com/swbam/soundcheck/internal/vote"
)

// VoteCaster applies one voter's vote to a setlist entry and can audit
// a setlist's denormalized counters against the vote rows.
type VoteCaster interface {
	Cast(ctx context.Context, voterID, entryID string, direction models.VoteDirection) (models.Tally, vote.TransitionKind, error)
	Recount(ctx context.Context, setlistID string) (int, error)
}

// TrendingProvider computes ranked shows and artists for a timeframe.
type TrendingProvider interface {
	TrendingShows(ctx context.Context, tf trending.Timeframe, limit int) (*trending.Ranking[trending.ShowRank], error)
	TrendingArtists(ctx context.Context, tf trending.Timeframe, limit int) (*trending.Ranking[trending.ArtistRank], error)
}

// SyncManager controls background sync cycles.
type SyncManager interface {
	Trigger(typ models.SyncType) (models.SyncCycle, error)
	Status(id string) (models.SyncCycle, error)
	List() []models.SyncCycle
	Cancel(id string) error
	SourceStates() map[string]string
}

// Pinger is the slice of the store the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// VotePublisher fans applied votes out to in-process subscribers.
type VotePublisher interface {
	VoteApplied(voterID, entryID, transition string, tally models.Tally)
}

// Handler holds the dependencies behind every route.
type Handler struct {
	votes   VoteCaster
	scorer  TrendingProvider
	sync    SyncManager
	pub     VotePublisher
	store   Pinger
	started time.Time
}

// NewHandler wires a Handler. pub may be nil when no event bus runs.
func NewHandler(votes VoteCaster, scorer TrendingProvider, syncer SyncManager, pub VotePublisher, store Pinger) *Handler {
	return &Handler{
		votes:   votes,
		scorer:  scorer,
		sync:    syncer,
		pub:     pub,
		store:   store,
		started: time.Now().UTC(),
	}
}

// Health reports liveness: store reachability, per-source breaker
// states, and a summary of the most recent sync cycle. A failing store
// degrades the status but the endpoint still answers 200 so operators
// can read the detail.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"sources":        h.sync.SourceStates(),
	}

	if err := h.store.Ping(r.Context()); err != nil {
		payload["status"] = "degraded"
		payload["store"] = "unreachable"
	} else {
		payload["store"] = "ok"
	}

	if cycles := h.sync.List(); len(cycles) > 0 {
		latest := cycles[0]
		payload["last_cycle"] = map[string]any{
			"id":    latest.ID,
			"type":  latest.Type,
			"state": latest.State,
		}
		payload["sync_running"] = latest.State == models.CycleRunning
	} else {
		payload["sync_running"] = false
	}

	respondData(w, http.StatusOK, payload, 0)
}

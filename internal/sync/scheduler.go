// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package sync

import (
	"context"
	"errors"
	"time"

	"github.com/swbam/soundcheck/internal/logging"
	"github.com/swbam/soundcheck/internal/models"
)

// Scheduler triggers a full cycle on the configured interval. It satisfies
// suture.Service and lives in the supervision tree; manual triggers through
// the API keep working alongside it.
type Scheduler struct {
	orch     *Orchestrator
	interval time.Duration
}

// NewScheduler builds the interval loop around the orchestrator.
func NewScheduler(orch *Orchestrator, interval time.Duration) *Scheduler {
	return &Scheduler{orch: orch, interval: interval}
}

// Serve runs until the context is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("Sync scheduler started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cycle, err := s.orch.Trigger(models.SyncFull)
			if errors.Is(err, ErrCycleRunning) {
				logging.Warn().Msg("Skipping scheduled sync, previous cycle still running")
				continue
			}
			if err != nil {
				logging.Error().Err(err).Msg("Scheduled sync trigger failed")
				continue
			}
			logging.Info().Str("cycle_id", cycle.ID).Msg("Scheduled sync cycle started")
		}
	}
}

func (s *Scheduler) String() string {
	return "sync-scheduler"
}

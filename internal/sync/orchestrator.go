// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package sync drives the discovery/reconcile cycle against the two
// external sources. One cycle runs at a time; discovery queries fan out
// over a bounded worker pool while writes serialize per entity key.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/swbam/soundcheck/internal/config"
	"github.com/swbam/soundcheck/internal/logging"
	"github.com/swbam/soundcheck/internal/metrics"
	"github.com/swbam/soundcheck/internal/models"
	"github.com/swbam/soundcheck/internal/reconcile"
	"github.com/swbam/soundcheck/internal/source"
)

// ErrCycleRunning is returned by Trigger while a cycle is in flight.
var ErrCycleRunning = errors.New("sync: a cycle is already running")

// ErrCycleNotFound is returned for unknown cycle ids.
var ErrCycleNotFound = errors.New("sync: cycle not found")

// CyclePublisher receives completed-cycle notifications. Nil is allowed.
type CyclePublisher interface {
	CycleCompleted(cycle models.SyncCycle)
}

// Orchestrator owns the cycle lifecycle: trigger, status, cancel, and the
// scheduled interval loop.
type Orchestrator struct {
	cfg      config.SyncConfig
	catalog  source.Client
	events   source.Client
	rec      *reconcile.Reconciler
	registry *Registry
	keys     *KeyLocks
	pub      CyclePublisher

	running atomic.Bool
}

// NewOrchestrator wires the orchestrator. pub may be nil.
func NewOrchestrator(cfg config.SyncConfig, catalog, events source.Client, rec *reconcile.Reconciler, pub CyclePublisher) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		catalog:  catalog,
		events:   events,
		rec:      rec,
		registry: NewRegistry(),
		keys:     NewKeyLocks(),
		pub:      pub,
	}
}

// Trigger starts a cycle of the given type and returns its initial
// snapshot. The cycle runs in the background against its own deadline;
// only one cycle runs at a time.
func (o *Orchestrator) Trigger(typ models.SyncType) (models.SyncCycle, error) {
	if !typ.Valid() {
		return models.SyncCycle{}, fmt.Errorf("sync: invalid sync type %q", typ)
	}
	if !o.running.CompareAndSwap(false, true) {
		return models.SyncCycle{}, ErrCycleRunning
	}

	cycle := &models.SyncCycle{
		ID:        uuid.NewString(),
		Type:      typ,
		State:     models.CycleRunning,
		StartedAt: time.Now().UTC(),
		Queries:   len(o.cfg.Queries),
		Counts:    make(map[string]models.EntityCounts),
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Deadline)
	o.registry.Add(cycle, cancel)

	go func() {
		defer o.running.Store(false)
		defer cancel()
		o.runCycle(ctx, cycle.ID, typ)
	}()

	snap, _ := o.registry.Get(cycle.ID)
	return snap, nil
}

// Status returns the cycle snapshot for an id.
func (o *Orchestrator) Status(id string) (models.SyncCycle, error) {
	snap, ok := o.registry.Get(id)
	if !ok {
		return models.SyncCycle{}, ErrCycleNotFound
	}
	return snap, nil
}

// List returns all retained cycles, newest first.
func (o *Orchestrator) List() []models.SyncCycle {
	return o.registry.List()
}

// Cancel aborts a running cycle. Progress already committed stays.
func (o *Orchestrator) Cancel(id string) error {
	if _, ok := o.registry.Get(id); !ok {
		return ErrCycleNotFound
	}
	if !o.registry.Cancel(id) {
		return fmt.Errorf("sync: cycle %s already finished", id)
	}
	return nil
}

// SourceStates reports each source's breaker state for health checks.
func (o *Orchestrator) SourceStates() map[string]string {
	states := make(map[string]string, 2)
	for _, client := range []source.Client{o.catalog, o.events} {
		states[client.Name()] = client.Breaker().StateName()
	}
	return states
}

// sourcesFor maps the sync type to the clients a cycle drives.
func (o *Orchestrator) sourcesFor(typ models.SyncType) []source.Client {
	switch typ {
	case models.SyncCatalog:
		return []source.Client{o.catalog}
	case models.SyncEvents:
		return []source.Client{o.events}
	default:
		return []source.Client{o.catalog, o.events}
	}
}

// runCycle fans discovery queries out over the worker pool and grades the
// outcome when the pool drains.
func (o *Orchestrator) runCycle(ctx context.Context, cycleID string, typ models.SyncType) {
	start := time.Now()
	clients := o.sourcesFor(typ)

	// Breaker state at cycle start, per source; a source whose breaker
	// never closed and never served a call fails the whole cycle.
	openAtStart := make(map[string]bool, len(clients))
	var successes sync.Map
	for _, c := range clients {
		openAtStart[c.Name()] = c.Breaker().Open()
	}

	workers := max(1, o.cfg.Workers)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, query := range o.cfg.Queries {
		for _, client := range clients {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(client source.Client, query string) {
				defer wg.Done()
				defer func() { <-sem }()
				if o.runQuery(ctx, cycleID, client, query) {
					successes.Store(client.Name(), true)
				}
			}(client, query)
		}
	}
	wg.Wait()

	state := o.grade(ctx, cycleID, clients, openAtStart, &successes)
	finished := time.Now().UTC()
	o.registry.finish(cycleID, state, finished)

	metrics.SyncCyclesTotal.WithLabelValues(string(typ), string(state)).Inc()
	metrics.SyncCycleDuration.WithLabelValues(string(typ)).Observe(time.Since(start).Seconds())

	snap, _ := o.registry.Get(cycleID)
	totals := snap.Totals()
	logging.Info().
		Str("cycle_id", cycleID).
		Str("type", string(typ)).
		Str("state", string(state)).
		Int("created", totals.Created).
		Int("updated", totals.Updated).
		Int("skipped", totals.Skipped).
		Int("failed", totals.Failed).
		Dur("duration", time.Since(start)).
		Msg("Sync cycle finished")

	if o.pub != nil {
		o.pub.CycleCompleted(snap)
	}
}

// runQuery searches one client and reconciles every returned record.
// Returns whether the search itself succeeded; per-record failures are
// counted, never propagated.
func (o *Orchestrator) runQuery(ctx context.Context, cycleID string, client source.Client, query string) bool {
	records, err := client.Search(ctx, query, o.cfg.PageSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		logging.Warn().Err(err).
			Str("cycle_id", cycleID).
			Str("source", client.Name()).
			Str("query", query).
			Msg("Discovery query failed")
		o.registry.update(cycleID, func(c *models.SyncCycle) {
			c.Errors = append(c.Errors, fmt.Sprintf("%s %q: %v", client.Name(), query, err))
		})
		return false
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			return true
		}
		o.reconcileOne(ctx, cycleID, rec)
	}
	return true
}

// reconcileOne serializes on the record's entity key and books the
// outcome into the cycle counts.
func (o *Orchestrator) reconcileOne(ctx context.Context, cycleID string, rec models.RawRecord) {
	release := o.keys.Lock(reconcile.SerializationKey(rec))
	changes, err := o.rec.ReconcileRecord(ctx, rec)
	release()

	if err != nil {
		entity := string(rec.Kind)
		if rec.Kind == models.RawEvent {
			entity = "show"
		}
		metrics.SyncRecordsTotal.WithLabelValues(entity, "failed").Inc()
		logging.Warn().Err(err).
			Str("cycle_id", cycleID).
			Str("source", rec.Source).
			Str("external_id", rec.ExternalID).
			Msg("Record failed to reconcile")
		o.registry.update(cycleID, func(c *models.SyncCycle) {
			counts := c.Counts[entity]
			counts.Failed++
			c.Counts[entity] = counts
			c.Errors = append(c.Errors, fmt.Sprintf("%s %s: %v", rec.Source, rec.ExternalID, err))
		})
		return
	}

	o.registry.update(cycleID, func(c *models.SyncCycle) {
		for _, ch := range changes {
			counts := c.Counts[ch.Entity]
			switch ch.Outcome {
			case reconcile.OutcomeCreated:
				counts.Created++
			case reconcile.OutcomeUpdated:
				counts.Updated++
			case reconcile.OutcomeSkipped:
				counts.Skipped++
			}
			c.Counts[ch.Entity] = counts
			metrics.SyncRecordsTotal.WithLabelValues(ch.Entity, string(ch.Outcome)).Inc()
		}
	})
}

// grade turns the cycle's ending conditions into its terminal state.
func (o *Orchestrator) grade(ctx context.Context, cycleID string, clients []source.Client, openAtStart map[string]bool, successes *sync.Map) models.CycleState {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return models.CycleTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		return models.CycleCancelled
	}

	for _, c := range clients {
		_, served := successes.Load(c.Name())
		if openAtStart[c.Name()] && c.Breaker().Open() && !served {
			return models.CycleFailed
		}
	}

	snap, _ := o.registry.Get(cycleID)
	totals := snap.Totals()
	if attempted := totals.Attempted(); attempted > 0 {
		if frac := float64(totals.Failed) / float64(attempted); frac > o.cfg.DegradedThreshold {
			return models.CycleDegraded
		}
	}
	if len(snap.Errors) > 0 && totals.Attempted() == 0 {
		return models.CycleDegraded
	}
	return models.CycleHealthy
}

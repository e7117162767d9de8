// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package sync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/swbam/soundcheck/internal/models"
)

// maxRetainedCycles bounds the in-memory cycle history; oldest terminal
// cycles are evicted first.
const maxRetainedCycles = 100

// Registry tracks sync cycles by id for the status/cancel surface.
type Registry struct {
	mu      sync.RWMutex
	cycles  map[string]*models.SyncCycle
	cancels map[string]context.CancelFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		cycles:  make(map[string]*models.SyncCycle),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Add registers a running cycle and its cancel func.
func (r *Registry) Add(cycle *models.SyncCycle, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	r.cycles[cycle.ID] = cycle
	r.cancels[cycle.ID] = cancel
}

// Get returns a snapshot of the cycle, or false when unknown.
func (r *Registry) Get(id string) (models.SyncCycle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cycles[id]
	if !ok {
		return models.SyncCycle{}, false
	}
	return snapshotCycle(c), true
}

// List returns snapshots of all retained cycles, newest first.
func (r *Registry) List() []models.SyncCycle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.SyncCycle, 0, len(r.cycles))
	for _, c := range r.cycles {
		out = append(out, snapshotCycle(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Cancel fires the cycle's cancel func. It reports false when the cycle is
// unknown or already terminal.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[id]
	if !ok || c.State.Terminal() {
		return false
	}
	if cancel, ok := r.cancels[id]; ok {
		cancel()
	}
	return true
}

// Running reports whether any cycle is still in flight.
func (r *Registry) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cycles {
		if !c.State.Terminal() {
			return true
		}
	}
	return false
}

// update mutates a cycle under the registry lock.
func (r *Registry) update(id string, fn func(*models.SyncCycle)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cycles[id]; ok {
		fn(c)
	}
}

// finish marks the cycle terminal and drops its cancel func.
func (r *Registry) finish(id string, state models.CycleState, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[id]
	if !ok {
		return
	}
	c.State = state
	c.FinishedAt = &at
	delete(r.cancels, id)
}

// evictLocked keeps the history bounded. Callers hold the write lock.
func (r *Registry) evictLocked() {
	if len(r.cycles) < maxRetainedCycles {
		return
	}
	var oldestID string
	var oldest time.Time
	for id, c := range r.cycles {
		if !c.State.Terminal() {
			continue
		}
		if oldestID == "" || c.StartedAt.Before(oldest) {
			oldestID, oldest = id, c.StartedAt
		}
	}
	if oldestID != "" {
		delete(r.cycles, oldestID)
		delete(r.cancels, oldestID)
	}
}

func snapshotCycle(c *models.SyncCycle) models.SyncCycle {
	out := *c
	out.Counts = make(map[string]models.EntityCounts, len(c.Counts))
	for k, v := range c.Counts {
		out.Counts[k] = v
	}
	out.Errors = append([]string(nil), c.Errors...)
	if c.FinishedAt != nil {
		t := *c.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

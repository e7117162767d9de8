// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package models

import "time"

// SyncType selects which sources a cycle pulls from.
type SyncType string

// Sync types accepted by the trigger endpoint.
const (
	SyncFull    SyncType = "full"
	SyncCatalog SyncType = "catalog"
	SyncEvents  SyncType = "events"
)

// Valid reports whether t is a known sync type.
func (t SyncType) Valid() bool {
	switch t {
	case SyncFull, SyncCatalog, SyncEvents:
		return true
	}
	return false
}

// CycleState is the lifecycle/outcome state of one sync cycle.
type CycleState string

// Cycle states. Running is the only non-terminal state.
const (
	CycleRunning   CycleState = "running"
	CycleHealthy   CycleState = "healthy"
	CycleDegraded  CycleState = "degraded"
	CycleFailed    CycleState = "failed"
	CycleTimeout   CycleState = "timeout"
	CycleCancelled CycleState = "cancelled"
)

// Terminal reports whether the cycle has finished.
func (s CycleState) Terminal() bool {
	return s != CycleRunning
}

// EntityCounts accumulates per-entity reconcile outcomes within a cycle.
type EntityCounts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Attempted is the number of records that reached the reconciler.
func (c EntityCounts) Attempted() int {
	return c.Created + c.Updated + c.Skipped + c.Failed
}

// SyncCycle is the operator-visible record of one orchestrated sync pass.
// Counts are keyed by entity type (artist, venue, show, setlist).
type SyncCycle struct {
	ID         string                  `json:"id"`
	Type       SyncType                `json:"type"`
	State      CycleState              `json:"state"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt *time.Time              `json:"finished_at,omitempty"`
	Queries    int                     `json:"queries"`
	Counts     map[string]EntityCounts `json:"counts"`
	Errors     []string                `json:"errors,omitempty"`
}

// Totals sums counts across entity types.
func (c *SyncCycle) Totals() EntityCounts {
	var t EntityCounts
	for _, ec := range c.Counts {
		t.Created += ec.Created
		t.Updated += ec.Updated
		t.Skipped += ec.Skipped
		t.Failed += ec.Failed
	}
	return t
}

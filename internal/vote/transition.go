// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package vote maintains the per-voter vote rows and the denormalized
// counters on setlist entries. The state machine per (voter, entry) pair is
// NoVote -> Upvoted | Downvoted, Upvoted <-> Downvoted, either -> NoVote on
// repeat of the same direction.
package vote

import "github.com/swbam/soundcheck/internal/models"

// CounterOp says how a transition moves the entry's counters. Deltas are
// relative adjustments, never recomputations from a read, so concurrent
// voters cannot lose each other's updates.
type CounterOp struct {
	// Kind is one of Increment, Decrement, Replace.
	Kind CounterOpKind
	// DeltaUp / DeltaDown are applied together in one atomic store write.
	DeltaUp   int64
	DeltaDown int64
}

// CounterOpKind names the three counter movements.
type CounterOpKind string

// Counter op kinds.
const (
	// Increment: a fresh vote raises one counter.
	Increment CounterOpKind = "increment"
	// Decrement: a retraction lowers one counter.
	Decrement CounterOpKind = "decrement"
	// Replace: a direction switch lowers one counter and raises the
	// other in the same write.
	Replace CounterOpKind = "replace"
)

// Transition is the result of applying a requested direction to the
// voter's existing state.
type Transition struct {
	// Next is the vote row to persist; nil means the row is deleted
	// (retraction back to NoVote).
	Next *models.Vote
	// Op moves the entry counters.
	Op CounterOp
	// Kind labels the transition for logs and metrics.
	Kind TransitionKind
}

// TransitionKind labels what the vote amounted to.
type TransitionKind string

// Transition kinds.
const (
	TransitionCast    TransitionKind = "cast"
	TransitionRetract TransitionKind = "retract"
	TransitionSwitch  TransitionKind = "switch"
)

// Apply computes the state machine step. existing is nil for NoVote.
// The function is pure; persistence happens in the Aggregator.
func Apply(existing *models.Vote, voterID, entryID string, requested models.VoteDirection) Transition {
	if existing == nil {
		op := CounterOp{Kind: Increment}
		if requested == models.VoteUp {
			op.DeltaUp = 1
		} else {
			op.DeltaDown = 1
		}
		return Transition{
			Next: &models.Vote{VoterID: voterID, EntryID: entryID, Direction: requested},
			Op:   op,
			Kind: TransitionCast,
		}
	}

	if existing.Direction == requested {
		// Same button again: toggle off.
		op := CounterOp{Kind: Decrement}
		if requested == models.VoteUp {
			op.DeltaUp = -1
		} else {
			op.DeltaDown = -1
		}
		return Transition{Next: nil, Op: op, Kind: TransitionRetract}
	}

	op := CounterOp{Kind: Replace}
	if requested == models.VoteUp {
		op.DeltaUp, op.DeltaDown = 1, -1
	} else {
		op.DeltaUp, op.DeltaDown = -1, 1
	}
	return Transition{
		Next: &models.Vote{VoterID: voterID, EntryID: entryID, Direction: requested},
		Op:   op,
		Kind: TransitionSwitch,
	}
}

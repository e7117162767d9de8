// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package vote

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/swbam/soundcheck/internal/logging"
	"github.com/swbam/soundcheck/internal/metrics"
	"github.com/swbam/soundcheck/internal/models"
	"github.com/swbam/soundcheck/internal/store"
)

// Vote-path errors, surfaced synchronously to the caller and never retried.
var (
	// ErrNotFound is returned for an unrecognized setlist entry id.
	ErrNotFound = errors.New("vote: setlist entry not found")
	// ErrSetlistLocked is returned when the entry's setlist rejects votes.
	ErrSetlistLocked = errors.New("vote: setlist is locked")
)

// lockStripes sizes the keyed-mutex table. Votes by the same voter on the
// same entry serialize; unrelated votes almost never share a stripe.
const lockStripes = 256

// Aggregator applies vote transitions against the store.
type Aggregator struct {
	store store.Store
	now   func() time.Time
	locks [lockStripes]sync.Mutex
}

// NewAggregator builds an aggregator over the store.
func NewAggregator(st store.Store) *Aggregator {
	return &Aggregator{store: st, now: time.Now}
}

func (a *Aggregator) lockFor(voterID, entryID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(voterID))
	h.Write([]byte{0})
	h.Write([]byte(entryID))
	return &a.locks[h.Sum32()%lockStripes]
}

// Cast applies one vote request and returns the entry's resulting tally
// and what the request amounted to. Repeating the current direction
// retracts the vote; the opposite direction switches it, moving both
// counters in one atomic store write.
func (a *Aggregator) Cast(ctx context.Context, voterID, entryID string, direction models.VoteDirection) (models.Tally, TransitionKind, error) {
	if !direction.Valid() {
		metrics.VoteErrors.WithLabelValues("bad_direction").Inc()
		return models.Tally{}, "", fmt.Errorf("vote: invalid direction %q", direction)
	}

	entry, err := a.store.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.VoteErrors.WithLabelValues("entry_not_found").Inc()
			return models.Tally{}, "", ErrNotFound
		}
		return models.Tally{}, "", err
	}

	setlist, err := a.store.GetSetlist(ctx, entry.SetlistID)
	if err != nil {
		return models.Tally{}, "", fmt.Errorf("load setlist %s: %w", entry.SetlistID, err)
	}
	if setlist.Locked {
		metrics.VoteErrors.WithLabelValues("setlist_locked").Inc()
		return models.Tally{}, "", ErrSetlistLocked
	}

	mu := a.lockFor(voterID, entryID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := a.store.GetVote(ctx, voterID, entryID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.Tally{}, "", err
	}

	tr := Apply(existing, voterID, entryID, direction)

	now := a.now().UTC()
	if tr.Next != nil {
		tr.Next.CreatedAt = now
		if existing != nil {
			tr.Next.CreatedAt = existing.CreatedAt
		}
		tr.Next.UpdatedAt = now
		if err := a.store.PutVote(ctx, tr.Next); err != nil {
			return models.Tally{}, "", fmt.Errorf("persist vote: %w", err)
		}
	} else {
		if err := a.store.DeleteVote(ctx, voterID, entryID); err != nil {
			return models.Tally{}, "", fmt.Errorf("retract vote: %w", err)
		}
	}

	tally, err := a.store.AdjustCounters(ctx, entryID, tr.Op.DeltaUp, tr.Op.DeltaDown)
	if err != nil {
		return models.Tally{}, "", fmt.Errorf("adjust counters: %w", err)
	}

	metrics.VotesTotal.WithLabelValues(string(tr.Kind)).Inc()
	logging.Debug().
		Str("voter_id", voterID).
		Str("entry_id", entryID).
		Str("transition", string(tr.Kind)).
		Int64("upvotes", tally.Upvotes).
		Int64("downvotes", tally.Downvotes).
		Msg("Vote applied")
	return tally, tr.Kind, nil
}

// Recount recomputes every entry counter of a setlist from the vote rows.
// It is the repair pass for counter drift; normal operation never
// recomputes. Returns how many entries needed repair.
func (a *Aggregator) Recount(ctx context.Context, setlistID string) (int, error) {
	entries, err := a.store.ListEntries(ctx, setlistID)
	if err != nil {
		return 0, fmt.Errorf("list entries: %w", err)
	}

	repaired := 0
	for _, entry := range entries {
		votes, err := a.store.ListVotesByEntry(ctx, entry.ID)
		if err != nil {
			return repaired, fmt.Errorf("list votes for %s: %w", entry.ID, err)
		}
		var up, down int64
		for _, v := range votes {
			switch v.Direction {
			case models.VoteUp:
				up++
			case models.VoteDown:
				down++
			}
		}
		if up == entry.Upvotes && down == entry.Downvotes {
			continue
		}
		if err := a.store.SetCounters(ctx, entry.ID, up, down); err != nil {
			return repaired, fmt.Errorf("set counters for %s: %w", entry.ID, err)
		}
		repaired++
		metrics.RecountRepairs.Inc()
		logging.Warn().
			Str("entry_id", entry.ID).
			Int64("stored_up", entry.Upvotes).
			Int64("stored_down", entry.Downvotes).
			Int64("actual_up", up).
			Int64("actual_down", down).
			Msg("Counter drift repaired")
	}
	return repaired, nil
}

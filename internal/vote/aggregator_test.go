// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package vote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/swbam/soundcheck/internal/models"
	"github.com/swbam/soundcheck/internal/store"
)

func seedEntry(t *testing.T, st store.Store, locked bool) string {
	t.Helper()
	ctx := context.Background()
	if err := st.PutSetlist(ctx, &models.Setlist{ID: "sl1", ShowID: "sh1", Type: models.SetlistPredicted, Locked: locked}); err != nil {
		t.Fatalf("PutSetlist: %v", err)
	}
	if err := st.PutEntry(ctx, &models.SetlistEntry{ID: "e1", SetlistID: "sl1", SongID: "song1"}); err != nil {
		t.Fatalf("PutEntry: %v", err)
	}
	return "e1"
}

func TestCastRetractSwitchLifecycle(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	a := NewAggregator(st)
	entryID := seedEntry(t, st, false)

	tally, kind, err := a.Cast(ctx, "u1", entryID, models.VoteUp)
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if kind != TransitionCast || tally.Upvotes != 1 || tally.Downvotes != 0 {
		t.Errorf("cast: kind=%s tally=%+v", kind, tally)
	}

	tally, kind, err = a.Cast(ctx, "u1", entryID, models.VoteDown)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if kind != TransitionSwitch || tally.Upvotes != 0 || tally.Downvotes != 1 {
		t.Errorf("switch: kind=%s tally=%+v", kind, tally)
	}

	tally, kind, err = a.Cast(ctx, "u1", entryID, models.VoteDown)
	if err != nil {
		t.Fatalf("retract: %v", err)
	}
	if kind != TransitionRetract || tally.Upvotes != 0 || tally.Downvotes != 0 {
		t.Errorf("retract: kind=%s tally=%+v", kind, tally)
	}

	if _, err := st.GetVote(ctx, "u1", entryID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("vote row should be deleted after retraction, got %v", err)
	}
}

func TestCastOnLockedSetlist(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	a := NewAggregator(st)
	entryID := seedEntry(t, st, true)

	_, _, err := a.Cast(ctx, "u1", entryID, models.VoteUp)
	if !errors.Is(err, ErrSetlistLocked) {
		t.Errorf("expected ErrSetlistLocked, got %v", err)
	}
}

func TestCastOnUnknownEntry(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(store.NewMemoryStore())

	_, _, err := a.Cast(ctx, "u1", "nope", models.VoteUp)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCastInvalidDirection(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	a := NewAggregator(st)
	entryID := seedEntry(t, st, false)

	if _, _, err := a.Cast(ctx, "u1", entryID, "sideways"); err == nil {
		t.Error("expected error for invalid direction")
	}
}

func TestConcurrentVotersDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	a := NewAggregator(st)
	entryID := seedEntry(t, st, false)

	const voters = 50
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			dir := models.VoteUp
			if n%2 == 1 {
				dir = models.VoteDown
			}
			if _, _, err := a.Cast(ctx, fmt.Sprintf("voter-%d", n), entryID, dir); err != nil {
				t.Errorf("cast: %v", err)
			}
		}(i)
	}
	wg.Wait()

	entry, err := st.GetEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if entry.Upvotes != voters/2 || entry.Downvotes != voters/2 {
		t.Errorf("counters lost updates: %d/%d, want %d/%d",
			entry.Upvotes, entry.Downvotes, voters/2, voters/2)
	}
}

func TestConcurrentSwitchesStayConsistent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	a := NewAggregator(st)
	entryID := seedEntry(t, st, false)

	const voters = 20
	for i := 0; i < voters; i++ {
		if _, _, err := a.Cast(ctx, fmt.Sprintf("voter-%d", i), entryID, models.VoteUp); err != nil {
			t.Fatalf("seed cast: %v", err)
		}
	}

	// Everyone switches down at once.
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, _, err := a.Cast(ctx, fmt.Sprintf("voter-%d", n), entryID, models.VoteDown); err != nil {
				t.Errorf("switch: %v", err)
			}
		}(i)
	}
	wg.Wait()

	entry, _ := st.GetEntry(ctx, entryID)
	if entry.Upvotes != 0 || entry.Downvotes != voters {
		t.Errorf("after mass switch: %d/%d, want 0/%d", entry.Upvotes, entry.Downvotes, voters)
	}
}

func TestRecountRepairsDrift(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	a := NewAggregator(st)
	entryID := seedEntry(t, st, false)

	for i := 0; i < 3; i++ {
		if _, _, err := a.Cast(ctx, fmt.Sprintf("voter-%d", i), entryID, models.VoteUp); err != nil {
			t.Fatalf("cast: %v", err)
		}
	}

	// Inject drift as if a counter write was lost.
	if err := st.SetCounters(ctx, entryID, 7, 2); err != nil {
		t.Fatalf("SetCounters: %v", err)
	}

	repaired, err := a.Recount(ctx, "sl1")
	if err != nil {
		t.Fatalf("Recount: %v", err)
	}
	if repaired != 1 {
		t.Errorf("repaired = %d, want 1", repaired)
	}
	entry, _ := st.GetEntry(ctx, entryID)
	if entry.Upvotes != 3 || entry.Downvotes != 0 {
		t.Errorf("counters after recount: %d/%d, want 3/0", entry.Upvotes, entry.Downvotes)
	}

	// A clean setlist needs no repairs.
	repaired, err = a.Recount(ctx, "sl1")
	if err != nil || repaired != 0 {
		t.Errorf("second recount: repaired=%d err=%v", repaired, err)
	}
}

// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/swbam/soundcheck/internal/models"
	"github.com/swbam/soundcheck/internal/store"
)

func artistRecord(extID, name string, followers int64) models.RawRecord {
	return models.RawRecord{
		Kind:       models.RawArtist,
		Source:     "catalog",
		ExternalID: extID,
		Name:       name,
		Followers:  followers,
	}
}

func eventRecord(extID, artistName, date string) models.RawRecord {
	return models.RawRecord{
		Kind:       models.RawEvent,
		Source:     "events",
		ExternalID: extID,
		Name:       artistName + " live",
		ArtistName: artistName,
		Date:       date,
		Status:     "upcoming",
		Venue: &models.RawVenue{
			ExternalID: "ven-1",
			Name:       "The Fillmore",
			City:       "San Francisco",
			Capacity:   1150,
		},
	}
}

func checkOutcome(t *testing.T, changes []Change, entity string, want Outcome) {
	t.Helper()
	for _, c := range changes {
		if c.Entity == entity {
			if c.Outcome != want {
				t.Errorf("%s outcome = %s, want %s", entity, c.Outcome, want)
			}
			return
		}
	}
	t.Errorf("no change recorded for entity %s", entity)
}

func TestReconcileArtistIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := New(st)

	rec := artistRecord("cat-1", "Silk Road", 5000)

	changes, err := r.ReconcileRecord(ctx, rec)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	checkOutcome(t, changes, "artist", OutcomeCreated)

	changes, err = r.ReconcileRecord(ctx, rec)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	checkOutcome(t, changes, "artist", OutcomeSkipped)

	all, _ := st.ListArtists(ctx)
	if len(all) != 1 {
		t.Fatalf("expected 1 artist row, got %d", len(all))
	}
	if all[0].Slug != "silk-road" || all[0].Followers != 5000 {
		t.Errorf("unexpected row %+v", all[0])
	}
}

func TestReconcileArtistUpdatesMutableFieldsOnly(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := New(st)

	if _, err := r.ReconcileRecord(ctx, artistRecord("cat-1", "Silk Road", 5000)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	first, err := st.GetArtistByExternalID(ctx, "cat-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	// Renamed upstream with a new follower count.
	changes, err := r.ReconcileRecord(ctx, artistRecord("cat-1", "The Silk Road", 6200))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	checkOutcome(t, changes, "artist", OutcomeUpdated)

	got, err := st.GetArtistByExternalID(ctx, "cat-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("id rewritten: %s -> %s", first.ID, got.ID)
	}
	if got.Slug != "silk-road" {
		t.Errorf("slug must never change, got %q", got.Slug)
	}
	if got.Name != "The Silk Road" || got.Followers != 6200 {
		t.Errorf("mutable fields not applied: %+v", got)
	}
}

func TestSlugCollisionResolvesWithSuffix(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := New(st)

	// Two distinct artists, both named Silk.
	if _, err := r.ReconcileRecord(ctx, artistRecord("cat-1", "Silk", 100)); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := r.ReconcileRecord(ctx, artistRecord("cat-2", "Silk", 200)); err != nil {
		t.Fatalf("second: %v", err)
	}

	a1, err := st.GetArtistByExternalID(ctx, "cat-1")
	if err != nil || a1.Slug != "silk" {
		t.Errorf("first artist slug: %v %+v", err, a1)
	}
	a2, err := st.GetArtistByExternalID(ctx, "cat-2")
	if err != nil || a2.Slug != "silk-2" {
		t.Errorf("second artist slug: %v %+v", err, a2)
	}

	// Re-running both leaves slugs untouched.
	for _, rec := range []models.RawRecord{artistRecord("cat-1", "Silk", 100), artistRecord("cat-2", "Silk", 200)} {
		if _, err := r.ReconcileRecord(ctx, rec); err != nil {
			t.Fatalf("rerun: %v", err)
		}
	}
	a2, _ = st.GetArtistByExternalID(ctx, "cat-2")
	if a2.Slug != "silk-2" {
		t.Errorf("rerun changed slug to %q", a2.Slug)
	}
}

func TestSlugSuffixExhaustion(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := New(st)

	for i := 0; i < maxSlugAttempts; i++ {
		if _, err := r.ReconcileRecord(ctx, artistRecord("cat-"+string(rune('a'+i)), "Silk", 1)); err != nil {
			t.Fatalf("fill %d: %v", i, err)
		}
	}

	_, err := r.ReconcileRecord(ctx, artistRecord("cat-final", "Silk", 1))
	if !IsReconciliationError(err) {
		t.Fatalf("expected ReconciliationError, got %v", err)
	}
	if !errors.Is(err, ErrSlugExhausted) {
		t.Errorf("expected ErrSlugExhausted, got %v", err)
	}
}

func TestReconcileEventCreatesArtistVenueShow(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := New(st)

	changes, err := r.ReconcileRecord(ctx, eventRecord("ev-1", "Silk Road", "2026-09-12"))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	checkOutcome(t, changes, "artist", OutcomeCreated)
	checkOutcome(t, changes, "venue", OutcomeCreated)
	checkOutcome(t, changes, "show", OutcomeCreated)

	show, err := st.GetShowByExternalID(ctx, "ev-1")
	if err != nil {
		t.Fatalf("show lookup: %v", err)
	}
	if show.Status != models.ShowUpcoming {
		t.Errorf("unexpected status %s", show.Status)
	}

	// The new upcoming show gets its empty predicted setlist.
	sl, err := st.GetSetlistByShow(ctx, show.ID, models.SetlistPredicted)
	if err != nil {
		t.Fatalf("predicted setlist: %v", err)
	}
	entries, _ := st.ListEntries(ctx, sl.ID)
	if len(entries) != 0 {
		t.Errorf("predicted setlist should start empty, got %d entries", len(entries))
	}
}

func TestReconcileEventIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := New(st)

	rec := eventRecord("ev-1", "Silk Road", "2026-09-12")
	for i := 0; i < 3; i++ {
		if _, err := r.ReconcileRecord(ctx, rec); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	shows, _ := st.ListShows(ctx)
	if len(shows) != 1 {
		t.Errorf("expected 1 show row, got %d", len(shows))
	}
	artists, _ := st.ListArtists(ctx)
	if len(artists) != 1 {
		t.Errorf("expected 1 artist row, got %d", len(artists))
	}
	venues, _ := st.ListVenues(ctx)
	if len(venues) != 1 {
		t.Errorf("expected 1 venue row, got %d", len(venues))
	}
}

func TestReconcileEventStatusTransition(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := New(st)

	if _, err := r.ReconcileRecord(ctx, eventRecord("ev-1", "Silk Road", "2026-09-12")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	before, _ := st.GetShowByExternalID(ctx, "ev-1")

	cancelled := eventRecord("ev-1", "Silk Road", "2026-09-12")
	cancelled.Status = "cancelled"
	changes, err := r.ReconcileRecord(ctx, cancelled)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	checkOutcome(t, changes, "show", OutcomeUpdated)

	shows, _ := st.ListShows(ctx)
	if len(shows) != 1 {
		t.Fatalf("expected 1 show row, got %d", len(shows))
	}
	if shows[0].Status != models.ShowCancelled {
		t.Errorf("status = %s, want cancelled", shows[0].Status)
	}
	if shows[0].ID != before.ID {
		t.Errorf("id rewritten: %s -> %s", before.ID, shows[0].ID)
	}
}

func TestReconcileEventMalformedDate(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := New(st)

	rec := eventRecord("ev-1", "Silk Road", "next friday")
	if _, err := r.ReconcileRecord(ctx, rec); err == nil {
		t.Fatal("expected error for malformed date")
	}

	// Nothing persisted for the failed record.
	shows, _ := st.ListShows(ctx)
	if len(shows) != 0 {
		t.Errorf("expected no shows, got %d", len(shows))
	}
}

func TestReconcileEventVenueCapacityRefresh(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := New(st)

	if _, err := r.ReconcileRecord(ctx, eventRecord("ev-1", "Silk Road", "2026-09-12")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	bigger := eventRecord("ev-2", "Silk Road", "2026-10-01")
	bigger.Venue.Capacity = 1300
	changes, err := r.ReconcileRecord(ctx, bigger)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	checkOutcome(t, changes, "venue", OutcomeUpdated)

	v, err := st.GetVenueByExternalID(ctx, "ven-1")
	if err != nil {
		t.Fatalf("venue lookup: %v", err)
	}
	if v.Capacity != 1300 {
		t.Errorf("capacity = %d, want 1300", v.Capacity)
	}
	if v.Name != "The Fillmore" || v.Slug != "the-fillmore" {
		t.Errorf("immutable fields changed: %+v", v)
	}
}

func TestSerializationKeyGroupsByArtist(t *testing.T) {
	a := SerializationKey(artistRecord("cat-1", "Silk Road", 1))
	e := SerializationKey(eventRecord("ev-1", "Silk Road", "2026-09-12"))
	if a != e {
		t.Errorf("catalog and event records for one artist must share a key: %q vs %q", a, e)
	}
	other := SerializationKey(artistRecord("cat-2", "Other Band", 1))
	if a == other {
		t.Error("distinct artists must not share a serialization key")
	}
}

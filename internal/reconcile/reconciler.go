// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package reconcile maps raw external records onto stored entities
// idempotently. Identity is resolved through the external id first, then a
// normalized-slug match; inserts probe numeric slug suffixes on collision.
// Updates touch mutable fields only; slug and id are never rewritten.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/swbam/soundcheck/internal/logging"
	"github.com/swbam/soundcheck/internal/models"
	"github.com/swbam/soundcheck/internal/store"
)

// maxSlugAttempts bounds the numeric suffix probe on slug collisions.
const maxSlugAttempts = 20

// Outcome is what one entity write amounted to.
type Outcome string

// Per-entity write outcomes.
const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
)

// Change records one entity touched while reconciling a record. An event
// record can touch up to three entities (artist, venue, show).
type Change struct {
	Entity  string
	Outcome Outcome
}

// Reconciler persists raw records. Callers serialize records sharing a
// SerializationKey; the reconciler itself does per-record work only.
type Reconciler struct {
	store store.Store
	now   func() time.Time
	newID func() string
}

// New builds a reconciler over the store.
func New(st store.Store) *Reconciler {
	return &Reconciler{
		store: st,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// SerializationKey names the write-ordering domain of a record. Records
// with the same key touch the same artist's rows and must not be
// reconciled concurrently.
func SerializationKey(rec models.RawRecord) string {
	switch rec.Kind {
	case models.RawEvent:
		return "artist:" + Slugify(rec.ArtistName)
	default:
		return "artist:" + Slugify(rec.Name)
	}
}

// ReconcileRecord maps one raw record to stored entities. The returned
// changes list every entity written or deliberately left alone; an error
// means the record failed and counts against the batch.
func (r *Reconciler) ReconcileRecord(ctx context.Context, rec models.RawRecord) ([]Change, error) {
	switch rec.Kind {
	case models.RawArtist:
		change, err := r.reconcileArtist(ctx, rec)
		if err != nil {
			return nil, err
		}
		return []Change{change}, nil
	case models.RawEvent:
		return r.reconcileEvent(ctx, rec)
	default:
		return nil, fmt.Errorf("reconcile: unknown record kind %q", rec.Kind)
	}
}

func (r *Reconciler) reconcileArtist(ctx context.Context, rec models.RawRecord) (Change, error) {
	existing, err := r.findArtist(ctx, rec.ExternalID, rec.Name)
	if err != nil {
		return Change{}, err
	}

	if existing == nil {
		artist := &models.Artist{
			ID:         r.newID(),
			ExternalID: rec.ExternalID,
			Name:       rec.Name,
			ImageURL:   rec.ImageURL,
			Genres:     rec.Genres,
			Followers:  rec.Followers,
			Verified:   rec.Verified,
			CreatedAt:  r.now().UTC(),
			UpdatedAt:  r.now().UTC(),
		}
		if err := r.insertArtist(ctx, artist); err != nil {
			return Change{}, err
		}
		return Change{Entity: "artist", Outcome: OutcomeCreated}, nil
	}

	changed := existing.Name != rec.Name ||
		existing.ImageURL != rec.ImageURL ||
		existing.Followers != rec.Followers ||
		existing.Verified != rec.Verified ||
		!slices.Equal(existing.Genres, rec.Genres)
	if existing.ExternalID == "" && rec.ExternalID != "" {
		existing.ExternalID = rec.ExternalID
		changed = true
	}
	if !changed {
		return Change{Entity: "artist", Outcome: OutcomeSkipped}, nil
	}

	existing.Name = rec.Name
	existing.ImageURL = rec.ImageURL
	existing.Genres = rec.Genres
	existing.Followers = rec.Followers
	existing.Verified = rec.Verified
	existing.UpdatedAt = r.now().UTC()
	if err := r.store.PutArtist(ctx, existing); err != nil {
		return Change{}, fmt.Errorf("update artist %s: %w", existing.ID, err)
	}
	return Change{Entity: "artist", Outcome: OutcomeUpdated}, nil
}

// findArtist resolves identity: external id first, slug fallback. A nil
// result with nil error means no match, insert path.
func (r *Reconciler) findArtist(ctx context.Context, externalID, name string) (*models.Artist, error) {
	if externalID != "" {
		a, err := r.store.GetArtistByExternalID(ctx, externalID)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	slug := Slugify(name)
	if slug == "" {
		return nil, &ReconciliationError{Entity: "artist", Name: name,
			Err: errors.New("name normalizes to empty slug")}
	}
	a, err := r.store.GetArtistBySlug(ctx, slug)
	if err == nil {
		// A slug match holding a different external id is a distinct
		// artist that happens to share the name; fall through to the
		// insert path so the suffix probe separates them.
		if externalID != "" && a.ExternalID != "" && a.ExternalID != externalID {
			return nil, nil
		}
		return a, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return nil, nil
}

// insertArtist assigns a free slug by probing numeric suffixes, then
// inserts. The store's slug index is the backstop against a concurrent
// winner taking the same suffix.
func (r *Reconciler) insertArtist(ctx context.Context, artist *models.Artist) error {
	base := Slugify(artist.Name)
	if base == "" {
		return &ReconciliationError{Entity: "artist", Name: artist.Name,
			Err: errors.New("name normalizes to empty slug")}
	}

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		slug := base
		if attempt > 1 {
			slug = fmt.Sprintf("%s-%d", base, attempt)
		}
		artist.Slug = slug
		err := r.store.PutArtist(ctx, artist)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrSlugTaken) {
			continue
		}
		return fmt.Errorf("insert artist %q: %w", artist.Name, err)
	}
	return &ReconciliationError{Entity: "artist", Name: artist.Name, Err: ErrSlugExhausted}
}

func (r *Reconciler) reconcileEvent(ctx context.Context, rec models.RawRecord) ([]Change, error) {
	date, err := parseEventDate(rec.Date)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", rec.ExternalID, err)
	}

	var changes []Change

	artist, artistChange, err := r.ensureArtist(ctx, rec.ArtistName)
	if err != nil {
		return nil, err
	}
	changes = append(changes, artistChange)

	venueID := ""
	if rec.Venue != nil {
		venue, venueChange, err := r.ensureVenue(ctx, rec.Venue)
		if err != nil {
			return nil, err
		}
		venueID = venue.ID
		changes = append(changes, venueChange)
	}

	showChange, err := r.upsertShow(ctx, rec, artist.ID, venueID, date)
	if err != nil {
		return nil, err
	}
	return append(changes, showChange), nil
}

// ensureArtist resolves the named artist, creating a minimal row when the
// event source mentions someone the catalog has not delivered yet.
func (r *Reconciler) ensureArtist(ctx context.Context, name string) (*models.Artist, Change, error) {
	existing, err := r.findArtist(ctx, "", name)
	if err != nil {
		return nil, Change{}, err
	}
	if existing != nil {
		return existing, Change{Entity: "artist", Outcome: OutcomeSkipped}, nil
	}

	artist := &models.Artist{
		ID:        r.newID(),
		Name:      name,
		CreatedAt: r.now().UTC(),
		UpdatedAt: r.now().UTC(),
	}
	if err := r.insertArtist(ctx, artist); err != nil {
		return nil, Change{}, err
	}
	return artist, Change{Entity: "artist", Outcome: OutcomeCreated}, nil
}

// ensureVenue resolves or creates the venue. Existing venues only take a
// capacity refresh; everything else is immutable once referenced.
func (r *Reconciler) ensureVenue(ctx context.Context, raw *models.RawVenue) (*models.Venue, Change, error) {
	var existing *models.Venue
	if raw.ExternalID != "" {
		v, err := r.store.GetVenueByExternalID(ctx, raw.ExternalID)
		if err == nil {
			existing = v
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, Change{}, err
		}
	}
	if existing == nil {
		slug := Slugify(raw.Name)
		if slug == "" {
			return nil, Change{}, &ReconciliationError{Entity: "venue", Name: raw.Name,
				Err: errors.New("name normalizes to empty slug")}
		}
		v, err := r.store.GetVenueBySlug(ctx, slug)
		if err == nil {
			existing = v
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, Change{}, err
		}
	}

	if existing != nil {
		if raw.Capacity != 0 && raw.Capacity != existing.Capacity {
			existing.Capacity = raw.Capacity
			existing.UpdatedAt = r.now().UTC()
			if err := r.store.PutVenue(ctx, existing); err != nil {
				return nil, Change{}, fmt.Errorf("refresh venue %s: %w", existing.ID, err)
			}
			return existing, Change{Entity: "venue", Outcome: OutcomeUpdated}, nil
		}
		return existing, Change{Entity: "venue", Outcome: OutcomeSkipped}, nil
	}

	venue := &models.Venue{
		ID:         r.newID(),
		ExternalID: raw.ExternalID,
		Name:       raw.Name,
		City:       raw.City,
		Region:     raw.Region,
		Country:    raw.Country,
		Capacity:   raw.Capacity,
		CreatedAt:  r.now().UTC(),
		UpdatedAt:  r.now().UTC(),
	}
	if err := r.insertVenue(ctx, venue); err != nil {
		return nil, Change{}, err
	}
	return venue, Change{Entity: "venue", Outcome: OutcomeCreated}, nil
}

func (r *Reconciler) insertVenue(ctx context.Context, venue *models.Venue) error {
	base := Slugify(venue.Name)
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		slug := base
		if attempt > 1 {
			slug = fmt.Sprintf("%s-%d", base, attempt)
		}
		venue.Slug = slug
		err := r.store.PutVenue(ctx, venue)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrSlugTaken) {
			continue
		}
		return fmt.Errorf("insert venue %q: %w", venue.Name, err)
	}
	return &ReconciliationError{Entity: "venue", Name: venue.Name, Err: ErrSlugExhausted}
}

// upsertShow matches the external event reference first, then the
// (artist, date, venue) composite key. A new upcoming show gets its empty
// predicted setlist in the same pass.
func (r *Reconciler) upsertShow(ctx context.Context, rec models.RawRecord, artistID, venueID string, date time.Time) (Change, error) {
	status := mapShowStatus(rec.Status)

	var existing *models.Show
	if rec.ExternalID != "" {
		sh, err := r.store.GetShowByExternalID(ctx, rec.ExternalID)
		if err == nil {
			existing = sh
		} else if !errors.Is(err, store.ErrNotFound) {
			return Change{}, err
		}
	}
	if existing == nil {
		sh, err := r.store.GetShowByKey(ctx, models.ShowKey(artistID, date, venueID))
		if err == nil {
			existing = sh
		} else if !errors.Is(err, store.ErrNotFound) {
			return Change{}, err
		}
	}

	if existing != nil {
		changed := existing.Status != status ||
			existing.TicketURL != rec.TicketURL ||
			existing.StartTime != rec.StartTime ||
			!existing.Date.Equal(date)
		if existing.ExternalID == "" && rec.ExternalID != "" {
			existing.ExternalID = rec.ExternalID
			changed = true
		}
		if !changed {
			return Change{Entity: "show", Outcome: OutcomeSkipped}, nil
		}
		existing.Status = status
		existing.TicketURL = rec.TicketURL
		existing.StartTime = rec.StartTime
		existing.Date = date
		existing.UpdatedAt = r.now().UTC()
		if err := r.store.PutShow(ctx, existing); err != nil {
			return Change{}, fmt.Errorf("update show %s: %w", existing.ID, err)
		}
		return Change{Entity: "show", Outcome: OutcomeUpdated}, nil
	}

	show := &models.Show{
		ID:         r.newID(),
		ExternalID: rec.ExternalID,
		ArtistID:   artistID,
		VenueID:    venueID,
		Date:       date,
		StartTime:  rec.StartTime,
		Status:     status,
		TicketURL:  rec.TicketURL,
		CreatedAt:  r.now().UTC(),
		UpdatedAt:  r.now().UTC(),
	}
	if err := r.store.PutShow(ctx, show); err != nil {
		return Change{}, fmt.Errorf("insert show: %w", err)
	}

	if status == models.ShowUpcoming {
		if err := r.seedPredictedSetlist(ctx, show.ID); err != nil {
			logging.Warn().Err(err).Str("show_id", show.ID).
				Msg("Failed to seed predicted setlist")
		}
	}
	return Change{Entity: "show", Outcome: OutcomeCreated}, nil
}

// seedPredictedSetlist creates the empty predicted setlist a new upcoming
// show starts with. At most one exists per show.
func (r *Reconciler) seedPredictedSetlist(ctx context.Context, showID string) error {
	_, err := r.store.GetSetlistByShow(ctx, showID, models.SetlistPredicted)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return r.store.PutSetlist(ctx, &models.Setlist{
		ID:        r.newID(),
		ShowID:    showID,
		Type:      models.SetlistPredicted,
		CreatedAt: r.now().UTC(),
		UpdatedAt: r.now().UTC(),
	})
}

func parseEventDate(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed date %q", raw)
}

func mapShowStatus(raw string) models.ShowStatus {
	switch models.ShowStatus(raw) {
	case models.ShowUpcoming, models.ShowOngoing, models.ShowCompleted, models.ShowCancelled:
		return models.ShowStatus(raw)
	}
	switch raw {
	case "onsale", "scheduled", "":
		return models.ShowUpcoming
	case "live":
		return models.ShowOngoing
	case "ended", "finished":
		return models.ShowCompleted
	case "canceled":
		return models.ShowCancelled
	}
	return models.ShowUpcoming
}

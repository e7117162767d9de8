// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package store persists the synced catalog and the voting state. Two
// backends implement the same contract: an in-memory store for tests and
// ephemeral deployments, and a BadgerDB store for durable single-node use.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/swbam/soundcheck/internal/config"
	"github.com/swbam/soundcheck/internal/models"
)

// Sentinel errors returned by all backends.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrSlugTaken is returned on insert when another row already owns
	// the slug.
	ErrSlugTaken = errors.New("store: slug already in use")
)

// ArtistStore persists artists with secondary lookups by external id and
// slug. PutArtist inserts or replaces by ID and maintains both indexes.
type ArtistStore interface {
	GetArtist(ctx context.Context, id string) (*models.Artist, error)
	GetArtistByExternalID(ctx context.Context, externalID string) (*models.Artist, error)
	GetArtistBySlug(ctx context.Context, slug string) (*models.Artist, error)
	PutArtist(ctx context.Context, artist *models.Artist) error
	ListArtists(ctx context.Context) ([]*models.Artist, error)
}

// VenueStore persists venues with the same lookup surface as artists.
type VenueStore interface {
	GetVenue(ctx context.Context, id string) (*models.Venue, error)
	GetVenueByExternalID(ctx context.Context, externalID string) (*models.Venue, error)
	GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error)
	PutVenue(ctx context.Context, venue *models.Venue) error
	ListVenues(ctx context.Context) ([]*models.Venue, error)
}

// ShowStore persists shows. GetShowByKey resolves the (artist, date, venue)
// composite key the reconciler upserts on.
type ShowStore interface {
	GetShow(ctx context.Context, id string) (*models.Show, error)
	GetShowByExternalID(ctx context.Context, externalID string) (*models.Show, error)
	GetShowByKey(ctx context.Context, key string) (*models.Show, error)
	PutShow(ctx context.Context, show *models.Show) error
	ListShows(ctx context.Context) ([]*models.Show, error)
	ListShowsByArtist(ctx context.Context, artistID string) ([]*models.Show, error)
}

// SongStore persists songs. The write path belongs to the web CRUD
// layer that authors catalog data; this service only reads.
type SongStore interface {
	GetSong(ctx context.Context, id string) (*models.Song, error)
	GetSongByExternalID(ctx context.Context, externalID string) (*models.Song, error)
	PutSong(ctx context.Context, song *models.Song) error
}

// SetlistStore persists setlists and their entries. AdjustCounters applies
// both counter deltas in a single atomic write so a concurrent reader never
// observes one delta without the other. PutEntry is for the web CRUD layer
// that edits setlist contents; the vote path never creates entries.
type SetlistStore interface {
	GetSetlist(ctx context.Context, id string) (*models.Setlist, error)
	GetSetlistByShow(ctx context.Context, showID string, typ models.SetlistType) (*models.Setlist, error)
	PutSetlist(ctx context.Context, setlist *models.Setlist) error
	GetEntry(ctx context.Context, id string) (*models.SetlistEntry, error)
	ListEntries(ctx context.Context, setlistID string) ([]*models.SetlistEntry, error)
	PutEntry(ctx context.Context, entry *models.SetlistEntry) error
	AdjustCounters(ctx context.Context, entryID string, dUp, dDown int64) (models.Tally, error)
	SetCounters(ctx context.Context, entryID string, up, down int64) error
}

// VoteStore persists per-voter vote rows, the source of truth the entry
// counters are a projection of.
type VoteStore interface {
	GetVote(ctx context.Context, voterID, entryID string) (*models.Vote, error)
	PutVote(ctx context.Context, vote *models.Vote) error
	DeleteVote(ctx context.Context, voterID, entryID string) error
	ListVotesByEntry(ctx context.Context, entryID string) ([]*models.Vote, error)
}

// Store is the full persistence contract.
type Store interface {
	ArtistStore
	VenueStore
	ShowStore
	SongStore
	SetlistStore
	VoteStore
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the backend named by the configuration.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "badger":
		return OpenBadger(cfg.Path)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}

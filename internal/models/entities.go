// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package models

import "time"

// ShowStatus is the lifecycle state of a show.
type ShowStatus string

// Show lifecycle states.
const (
	ShowUpcoming  ShowStatus = "upcoming"
	ShowOngoing   ShowStatus = "ongoing"
	ShowCompleted ShowStatus = "completed"
	ShowCancelled ShowStatus = "cancelled"
)

// Valid reports whether s is a known show status.
func (s ShowStatus) Valid() bool {
	switch s {
	case ShowUpcoming, ShowOngoing, ShowCompleted, ShowCancelled:
		return true
	}
	return false
}

// SetlistType distinguishes fan-predicted setlists from played ones.
type SetlistType string

// Setlist types. A show holds at most one setlist per type.
const (
	SetlistPredicted SetlistType = "predicted"
	SetlistActual    SetlistType = "actual"
)

// VoteDirection is the direction of a single voter's vote on a setlist entry.
type VoteDirection string

// Vote directions.
const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// Valid reports whether d is a known vote direction.
func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

// Artist is a performer synced from the catalog source.
//
// ExternalID is the catalog provider's id; empty when the artist was created
// from event data only. Slug is assigned on first insert and never changes.
// Followers is overwritten on every sync pass.
type Artist struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id,omitempty"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	ImageURL   string    `json:"image_url,omitempty"`
	Genres     []string  `json:"genres,omitempty"`
	Followers  int64     `json:"followers"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Venue is a place shows happen. Once referenced by a show only the
// capacity may be refreshed by the reconciler.
type Venue struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id,omitempty"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	City       string    `json:"city,omitempty"`
	Region     string    `json:"region,omitempty"`
	Country    string    `json:"country,omitempty"`
	Capacity   int       `json:"capacity,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Show belongs to exactly one artist and optionally one venue.
//
// The reconciler upserts shows on the composite key (artist, date, venue);
// seeing the same external event twice must never produce a second row.
type Show struct {
	ID         string     `json:"id"`
	ExternalID string     `json:"external_id,omitempty"`
	ArtistID   string     `json:"artist_id"`
	VenueID    string     `json:"venue_id,omitempty"`
	Date       time.Time  `json:"date"`
	StartTime  string     `json:"start_time,omitempty"`
	Status     ShowStatus `json:"status"`
	TicketURL  string     `json:"ticket_url,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CompositeKey returns the uniqueness key the reconciler upserts shows on.
func (s *Show) CompositeKey() string {
	return ShowKey(s.ArtistID, s.Date, s.VenueID)
}

// ShowKey builds the (artist, date, venue) composite key. The date collapses
// to a calendar day so the same event re-fetched with a different clock time
// still matches.
func ShowKey(artistID string, date time.Time, venueID string) string {
	return artistID + "|" + date.Format("2006-01-02") + "|" + venueID
}

// Song is a title/artist-name pair. Identity is only enforced through the
// external id when present; duplicate titles are tolerated.
type Song struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id,omitempty"`
	Title      string    `json:"title"`
	ArtistName string    `json:"artist_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Setlist is a show's predicted or actual song list. Locked setlists reject
// votes.
type Setlist struct {
	ID        string      `json:"id"`
	ShowID    string      `json:"show_id"`
	Type      SetlistType `json:"type"`
	Locked    bool        `json:"locked"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SetlistEntry is one song's slot in a setlist, carrying its denormalized
// vote tally. Upvotes/Downvotes are a cached projection of Vote rows: the
// vote aggregator moves them by relative deltas and the recount pass is the
// only thing allowed to recompute them from scratch.
type SetlistEntry struct {
	ID        string    `json:"id"`
	SetlistID string    `json:"setlist_id"`
	SongID    string    `json:"song_id"`
	Position  int       `json:"position"`
	Upvotes   int64     `json:"upvotes"`
	Downvotes int64     `json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Vote is one voter's current direction on one setlist entry. The
// (VoterID, EntryID) pair is unique; vote rows are the source of truth for
// entry counters.
type Vote struct {
	VoterID   string        `json:"voter_id"`
	EntryID   string        `json:"entry_id"`
	Direction VoteDirection `json:"direction"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Tally is the counter pair returned to the web layer after a vote.
type Tally struct {
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
}

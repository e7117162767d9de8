// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package models

// RawKind identifies the shape of an external record.
type RawKind string

// Raw record kinds produced by the two source clients.
const (
	RawArtist RawKind = "artist"
	RawEvent  RawKind = "event"
)

// RawVenue is the venue fragment embedded in an event record.
type RawVenue struct {
	ExternalID string `json:"external_id,omitempty"`
	Name       string `json:"name"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	Country    string `json:"country,omitempty"`
	Capacity   int    `json:"capacity,omitempty"`
}

// RawRecord is the normalized external record handed from a source client to
// the reconciler. Artist records come from the catalog source, event records
// from the ticketing source; the reconciler switches on Kind.
//
// Date/StartTime are carried as provider strings and parsed by the
// reconciler so a malformed value fails one record, not the batch.
type RawRecord struct {
	Kind       RawKind  `json:"kind"`
	Source     string   `json:"source"`
	ExternalID string   `json:"external_id,omitempty"`
	Name       string   `json:"name"`
	ImageURL   string   `json:"image_url,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Followers  int64    `json:"followers,omitempty"`
	Verified   bool     `json:"verified,omitempty"`

	// Event fields.
	ArtistName       string    `json:"artist_name,omitempty"`
	ArtistExternalID string    `json:"artist_external_id,omitempty"`
	Date             string    `json:"date,omitempty"`
	StartTime        string    `json:"start_time,omitempty"`
	Status           string    `json:"status,omitempty"`
	TicketURL        string    `json:"ticket_url,omitempty"`
	Venue            *RawVenue `json:"venue,omitempty"`
}

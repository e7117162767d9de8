// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package store

import (
	"context"
	"sync"

	"github.com/swbam/soundcheck/internal/models"
)

// MemoryStore keeps everything in maps under one RWMutex. All returned rows
// are copies; callers can mutate them freely without touching stored state.
type MemoryStore struct {
	mu sync.RWMutex

	artists       map[string]*models.Artist
	artistsByExt  map[string]string
	artistsBySlug map[string]string

	venues       map[string]*models.Venue
	venuesByExt  map[string]string
	venuesBySlug map[string]string

	shows       map[string]*models.Show
	showsByExt  map[string]string
	showsByKey  map[string]string
	songs       map[string]*models.Song
	songsByExt  map[string]string
	setlists    map[string]*models.Setlist
	setlistKeys map[string]string // showID|type -> setlistID
	entries     map[string]*models.SetlistEntry
	votes       map[string]*models.Vote // entryID|voterID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		artists:       make(map[string]*models.Artist),
		artistsByExt:  make(map[string]string),
		artistsBySlug: make(map[string]string),
		venues:        make(map[string]*models.Venue),
		venuesByExt:   make(map[string]string),
		venuesBySlug:  make(map[string]string),
		shows:         make(map[string]*models.Show),
		showsByExt:    make(map[string]string),
		showsByKey:    make(map[string]string),
		songs:         make(map[string]*models.Song),
		songsByExt:    make(map[string]string),
		setlists:      make(map[string]*models.Setlist),
		setlistKeys:   make(map[string]string),
		entries:       make(map[string]*models.SetlistEntry),
		votes:         make(map[string]*models.Vote),
	}
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() error { return nil }

func copyArtist(a *models.Artist) *models.Artist {
	c := *a
	if a.Genres != nil {
		c.Genres = append([]string(nil), a.Genres...)
	}
	return &c
}

// GetArtist returns the artist by primary id.
func (s *MemoryStore) GetArtist(ctx context.Context, id string) (*models.Artist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artists[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyArtist(a), nil
}

// GetArtistByExternalID returns the artist holding the catalog id.
func (s *MemoryStore) GetArtistByExternalID(ctx context.Context, externalID string) (*models.Artist, error) {
	s.mu.RLock()
	id, ok := s.artistsByExt[externalID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetArtist(ctx, id)
}

// GetArtistBySlug returns the artist owning the slug.
func (s *MemoryStore) GetArtistBySlug(ctx context.Context, slug string) (*models.Artist, error) {
	s.mu.RLock()
	id, ok := s.artistsBySlug[slug]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetArtist(ctx, id)
}

// PutArtist inserts or replaces the artist and refreshes both indexes.
func (s *MemoryStore) PutArtist(ctx context.Context, artist *models.Artist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.artistsBySlug[artist.Slug]; ok && owner != artist.ID {
		return ErrSlugTaken
	}
	s.artists[artist.ID] = copyArtist(artist)
	if artist.ExternalID != "" {
		s.artistsByExt[artist.ExternalID] = artist.ID
	}
	s.artistsBySlug[artist.Slug] = artist.ID
	return nil
}

// ListArtists returns every artist in unspecified order.
func (s *MemoryStore) ListArtists(ctx context.Context) ([]*models.Artist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Artist, 0, len(s.artists))
	for _, a := range s.artists {
		out = append(out, copyArtist(a))
	}
	return out, nil
}

// GetVenue returns the venue by primary id.
func (s *MemoryStore) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.venues[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *v
	return &c, nil
}

// GetVenueByExternalID returns the venue holding the ticketing id.
func (s *MemoryStore) GetVenueByExternalID(ctx context.Context, externalID string) (*models.Venue, error) {
	s.mu.RLock()
	id, ok := s.venuesByExt[externalID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetVenue(ctx, id)
}

// GetVenueBySlug returns the venue owning the slug.
func (s *MemoryStore) GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error) {
	s.mu.RLock()
	id, ok := s.venuesBySlug[slug]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetVenue(ctx, id)
}

// PutVenue inserts or replaces the venue and refreshes both indexes.
func (s *MemoryStore) PutVenue(ctx context.Context, venue *models.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.venuesBySlug[venue.Slug]; ok && owner != venue.ID {
		return ErrSlugTaken
	}
	c := *venue
	s.venues[venue.ID] = &c
	if venue.ExternalID != "" {
		s.venuesByExt[venue.ExternalID] = venue.ID
	}
	s.venuesBySlug[venue.Slug] = venue.ID
	return nil
}

// ListVenues returns every venue in unspecified order.
func (s *MemoryStore) ListVenues(ctx context.Context) ([]*models.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Venue, 0, len(s.venues))
	for _, v := range s.venues {
		c := *v
		out = append(out, &c)
	}
	return out, nil
}

// GetShow returns the show by primary id.
func (s *MemoryStore) GetShow(ctx context.Context, id string) (*models.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shows[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *sh
	return &c, nil
}

// GetShowByExternalID returns the show holding the ticketing id.
func (s *MemoryStore) GetShowByExternalID(ctx context.Context, externalID string) (*models.Show, error) {
	s.mu.RLock()
	id, ok := s.showsByExt[externalID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetShow(ctx, id)
}

// GetShowByKey returns the show at the (artist, date, venue) composite key.
func (s *MemoryStore) GetShowByKey(ctx context.Context, key string) (*models.Show, error) {
	s.mu.RLock()
	id, ok := s.showsByKey[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetShow(ctx, id)
}

// PutShow inserts or replaces the show and refreshes both indexes.
func (s *MemoryStore) PutShow(ctx context.Context, show *models.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.shows[show.ID]; ok {
		delete(s.showsByKey, prev.CompositeKey())
	}
	c := *show
	s.shows[show.ID] = &c
	if show.ExternalID != "" {
		s.showsByExt[show.ExternalID] = show.ID
	}
	s.showsByKey[show.CompositeKey()] = show.ID
	return nil
}

// ListShows returns every show in unspecified order.
func (s *MemoryStore) ListShows(ctx context.Context) ([]*models.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Show, 0, len(s.shows))
	for _, sh := range s.shows {
		c := *sh
		out = append(out, &c)
	}
	return out, nil
}

// ListShowsByArtist returns the artist's shows in unspecified order.
func (s *MemoryStore) ListShowsByArtist(ctx context.Context, artistID string) ([]*models.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Show
	for _, sh := range s.shows {
		if sh.ArtistID == artistID {
			c := *sh
			out = append(out, &c)
		}
	}
	return out, nil
}

// GetSong returns the song by primary id.
func (s *MemoryStore) GetSong(ctx context.Context, id string) (*models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	song, ok := s.songs[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *song
	return &c, nil
}

// GetSongByExternalID returns the song holding the catalog id.
func (s *MemoryStore) GetSongByExternalID(ctx context.Context, externalID string) (*models.Song, error) {
	s.mu.RLock()
	id, ok := s.songsByExt[externalID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetSong(ctx, id)
}

// PutSong inserts or replaces the song.
func (s *MemoryStore) PutSong(ctx context.Context, song *models.Song) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *song
	s.songs[song.ID] = &c
	if song.ExternalID != "" {
		s.songsByExt[song.ExternalID] = song.ID
	}
	return nil
}

func setlistKey(showID string, typ models.SetlistType) string {
	return showID + "|" + string(typ)
}

// GetSetlist returns the setlist by primary id.
func (s *MemoryStore) GetSetlist(ctx context.Context, id string) (*models.Setlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.setlists[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *sl
	return &c, nil
}

// GetSetlistByShow returns the show's setlist of the given type.
func (s *MemoryStore) GetSetlistByShow(ctx context.Context, showID string, typ models.SetlistType) (*models.Setlist, error) {
	s.mu.RLock()
	id, ok := s.setlistKeys[setlistKey(showID, typ)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetSetlist(ctx, id)
}

// PutSetlist inserts or replaces the setlist.
func (s *MemoryStore) PutSetlist(ctx context.Context, setlist *models.Setlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *setlist
	s.setlists[setlist.ID] = &c
	s.setlistKeys[setlistKey(setlist.ShowID, setlist.Type)] = setlist.ID
	return nil
}

// GetEntry returns the setlist entry by primary id.
func (s *MemoryStore) GetEntry(ctx context.Context, id string) (*models.SetlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *e
	return &c, nil
}

// ListEntries returns the setlist's entries in unspecified order.
func (s *MemoryStore) ListEntries(ctx context.Context, setlistID string) ([]*models.SetlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.SetlistEntry
	for _, e := range s.entries {
		if e.SetlistID == setlistID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

// PutEntry inserts or replaces the entry.
func (s *MemoryStore) PutEntry(ctx context.Context, entry *models.SetlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *entry
	s.entries[entry.ID] = &c
	return nil
}

// AdjustCounters applies both deltas under the write lock and returns the
// resulting tally. Counters are clamped at zero.
func (s *MemoryStore) AdjustCounters(ctx context.Context, entryID string, dUp, dDown int64) (models.Tally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok {
		return models.Tally{}, ErrNotFound
	}
	e.Upvotes = max(0, e.Upvotes+dUp)
	e.Downvotes = max(0, e.Downvotes+dDown)
	return models.Tally{Upvotes: e.Upvotes, Downvotes: e.Downvotes}, nil
}

// SetCounters overwrites the entry's counters with recomputed values.
func (s *MemoryStore) SetCounters(ctx context.Context, entryID string, up, down int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok {
		return ErrNotFound
	}
	e.Upvotes = up
	e.Downvotes = down
	return nil
}

func voteKey(voterID, entryID string) string {
	return entryID + "|" + voterID
}

// GetVote returns the voter's current vote on the entry.
func (s *MemoryStore) GetVote(ctx context.Context, voterID, entryID string) (*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.votes[voteKey(voterID, entryID)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *v
	return &c, nil
}

// PutVote inserts or replaces the vote row.
func (s *MemoryStore) PutVote(ctx context.Context, vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *vote
	s.votes[voteKey(vote.VoterID, vote.EntryID)] = &c
	return nil
}

// DeleteVote removes the vote row if present.
func (s *MemoryStore) DeleteVote(ctx context.Context, voterID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.votes, voteKey(voterID, entryID))
	return nil
}

// ListVotesByEntry returns every vote row on the entry.
func (s *MemoryStore) ListVotesByEntry(ctx context.Context, entryID string) ([]*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Vote
	for _, v := range s.votes {
		if v.EntryID == entryID {
			c := *v
			out = append(out, &c)
		}
	}
	return out, nil
}

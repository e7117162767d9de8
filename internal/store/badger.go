// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/swbam/soundcheck/internal/logging"
	"github.com/swbam/soundcheck/internal/models"
)

// Key prefixes for BadgerDB storage. Primary rows hold the JSON document;
// index rows hold the primary id.
const (
	artistKeyPrefix     = "artist:"
	artistExtKeyPrefix  = "artist_ext:"
	artistSlugKeyPrefix = "artist_slug:"
	venueKeyPrefix      = "venue:"
	venueExtKeyPrefix   = "venue_ext:"
	venueSlugKeyPrefix  = "venue_slug:"
	showKeyPrefix       = "show:"
	showExtKeyPrefix    = "show_ext:"
	showCompKeyPrefix   = "show_key:"
	showArtistKeyPrefix = "show_artist:"
	songKeyPrefix       = "song:"
	songExtKeyPrefix    = "song_ext:"
	setlistKeyPrefix    = "setlist:"
	setlistShowPrefix   = "setlist_show:"
	entryKeyPrefix      = "entry:"
	entryListKeyPrefix  = "entry_setlist:"
	voteKeyPrefix       = "vote:"
)

// counterRetries bounds the optimistic-conflict retry loop on counter
// writes. Conflicts are expected under concurrent voting on one entry.
const counterRetries = 64

// BadgerStore is the durable single-node backend.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the database at path.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	logging.Info().Str("path", path).Msg("BadgerDB store opened")
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an already-open database. Used by tests with an
// in-memory instance.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Ping verifies the database still accepts transactions.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error { return nil })
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

// getIndexed follows an index row to its primary document.
func getIndexed(txn *badger.Txn, indexKey, primaryPrefix string, v any) error {
	item, err := txn.Get([]byte(indexKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get index %s: %w", indexKey, err)
	}
	var id string
	if err := item.Value(func(val []byte) error {
		id = string(val)
		return nil
	}); err != nil {
		return err
	}
	return getJSON(txn, primaryPrefix+id, v)
}

// listPrefix unmarshals every document under prefix into out via mk.
func listPrefix[T any](txn *badger.Txn, prefix string) ([]*T, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var out []*T
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		var row T
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &row)
		})
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		out = append(out, &row)
	}
	return out, nil
}

// GetArtist returns the artist by primary id.
func (s *BadgerStore) GetArtist(ctx context.Context, id string) (*models.Artist, error) {
	var a models.Artist
	if err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, artistKeyPrefix+id, &a)
	}); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetArtistByExternalID returns the artist holding the catalog id.
func (s *BadgerStore) GetArtistByExternalID(ctx context.Context, externalID string) (*models.Artist, error) {
	var a models.Artist
	if err := s.db.View(func(txn *badger.Txn) error {
		return getIndexed(txn, artistExtKeyPrefix+externalID, artistKeyPrefix, &a)
	}); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetArtistBySlug returns the artist owning the slug.
func (s *BadgerStore) GetArtistBySlug(ctx context.Context, slug string) (*models.Artist, error) {
	var a models.Artist
	if err := s.db.View(func(txn *badger.Txn) error {
		return getIndexed(txn, artistSlugKeyPrefix+slug, artistKeyPrefix, &a)
	}); err != nil {
		return nil, err
	}
	return &a, nil
}

// PutArtist inserts or replaces the artist and its index rows.
func (s *BadgerStore) PutArtist(ctx context.Context, artist *models.Artist) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(artistSlugKeyPrefix + artist.Slug))
		if err == nil {
			var owner string
			if err := item.Value(func(val []byte) error {
				owner = string(val)
				return nil
			}); err != nil {
				return err
			}
			if owner != artist.ID {
				return ErrSlugTaken
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := setJSON(txn, artistKeyPrefix+artist.ID, artist); err != nil {
			return err
		}
		if artist.ExternalID != "" {
			if err := txn.Set([]byte(artistExtKeyPrefix+artist.ExternalID), []byte(artist.ID)); err != nil {
				return err
			}
		}
		return txn.Set([]byte(artistSlugKeyPrefix+artist.Slug), []byte(artist.ID))
	})
}

// ListArtists returns every artist.
func (s *BadgerStore) ListArtists(ctx context.Context) ([]*models.Artist, error) {
	var out []*models.Artist
	err := s.db.View(func(txn *badger.Txn) error {
		rows, err := listPrefix[models.Artist](txn, artistKeyPrefix)
		out = rows
		return err
	})
	return out, err
}

// GetVenue returns the venue by primary id.
func (s *BadgerStore) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	var v models.Venue
	if err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, venueKeyPrefix+id, &v)
	}); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVenueByExternalID returns the venue holding the ticketing id.
func (s *BadgerStore) GetVenueByExternalID(ctx context.Context, externalID string) (*models.Venue, error) {
	var v models.Venue
	if err := s.db.View(func(txn *badger.Txn) error {
		return getIndexed(txn, venueExtKeyPrefix+externalID, venueKeyPrefix, &v)
	}); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVenueBySlug returns the venue owning the slug.
func (s *BadgerStore) GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error) {
	var v models.Venue
	if err := s.db.View(func(txn *badger.Txn) error {
		return getIndexed(txn, venueSlugKeyPrefix+slug, venueKeyPrefix, &v)
	}); err != nil {
		return nil, err
	}
	return &v, nil
}

// PutVenue inserts or replaces the venue and its index rows.
func (s *BadgerStore) PutVenue(ctx context.Context, venue *models.Venue) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(venueSlugKeyPrefix + venue.Slug))
		if err == nil {
			var owner string
			if err := item.Value(func(val []byte) error {
				owner = string(val)
				return nil
			}); err != nil {
				return err
			}
			if owner != venue.ID {
				return ErrSlugTaken
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := setJSON(txn, venueKeyPrefix+venue.ID, venue); err != nil {
			return err
		}
		if venue.ExternalID != "" {
			if err := txn.Set([]byte(venueExtKeyPrefix+venue.ExternalID), []byte(venue.ID)); err != nil {
				return err
			}
		}
		return txn.Set([]byte(venueSlugKeyPrefix+venue.Slug), []byte(venue.ID))
	})
}

// ListVenues returns every venue.
func (s *BadgerStore) ListVenues(ctx context.Context) ([]*models.Venue, error) {
	var out []*models.Venue
	err := s.db.View(func(txn *badger.Txn) error {
		rows, err := listPrefix[models.Venue](txn, venueKeyPrefix)
		out = rows
		return err
	})
	return out, err
}

// GetShow returns the show by primary id.
func (s *BadgerStore) GetShow(ctx context.Context, id string) (*models.Show, error) {
	var sh models.Show
	if err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, showKeyPrefix+id, &sh)
	}); err != nil {
		return nil, err
	}
	return &sh, nil
}

// GetShowByExternalID returns the show holding the ticketing id.
func (s *BadgerStore) GetShowByExternalID(ctx context.Context, externalID string) (*models.Show, error) {
	var sh models.Show
	if err := s.db.View(func(txn *badger.Txn) error {
		return getIndexed(txn, showExtKeyPrefix+externalID, showKeyPrefix, &sh)
	}); err != nil {
		return nil, err
	}
	return &sh, nil
}

// GetShowByKey returns the show at the (artist, date, venue) composite key.
func (s *BadgerStore) GetShowByKey(ctx context.Context, key string) (*models.Show, error) {
	var sh models.Show
	if err := s.db.View(func(txn *badger.Txn) error {
		return getIndexed(txn, showCompKeyPrefix+key, showKeyPrefix, &sh)
	}); err != nil {
		return nil, err
	}
	return &sh, nil
}

// PutShow inserts or replaces the show and its index rows. A changed
// composite key drops the stale index row first.
func (s *BadgerStore) PutShow(ctx context.Context, show *models.Show) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var prev models.Show
		switch err := getJSON(txn, showKeyPrefix+show.ID, &prev); {
		case err == nil:
			if prev.CompositeKey() != show.CompositeKey() {
				if err := txn.Delete([]byte(showCompKeyPrefix + prev.CompositeKey())); err != nil {
					return err
				}
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}

		if err := setJSON(txn, showKeyPrefix+show.ID, show); err != nil {
			return err
		}
		if show.ExternalID != "" {
			if err := txn.Set([]byte(showExtKeyPrefix+show.ExternalID), []byte(show.ID)); err != nil {
				return err
			}
		}
		if err := txn.Set([]byte(showCompKeyPrefix+show.CompositeKey()), []byte(show.ID)); err != nil {
			return err
		}
		artistKey := showArtistKeyPrefix + show.ArtistID + ":" + show.ID
		return txn.Set([]byte(artistKey), []byte(show.ID))
	})
}

// ListShows returns every show.
func (s *BadgerStore) ListShows(ctx context.Context) ([]*models.Show, error) {
	var out []*models.Show
	err := s.db.View(func(txn *badger.Txn) error {
		rows, err := listPrefix[models.Show](txn, showKeyPrefix)
		out = rows
		return err
	})
	return out, err
}

// ListShowsByArtist returns the artist's shows via the artist index.
func (s *BadgerStore) ListShowsByArtist(ctx context.Context, artistID string) ([]*models.Show, error) {
	var out []*models.Show
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(showArtistKeyPrefix + artistID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			var sh models.Show
			if err := getJSON(txn, showKeyPrefix+id, &sh); err != nil {
				return err
			}
			out = append(out, &sh)
		}
		return nil
	})
	return out, err
}

// GetSong returns the song by primary id.
func (s *BadgerStore) GetSong(ctx context.Context, id string) (*models.Song, error) {
	var song models.Song
	if err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, songKeyPrefix+id, &song)
	}); err != nil {
		return nil, err
	}
	return &song, nil
}

// GetSongByExternalID returns the song holding the catalog id.
func (s *BadgerStore) GetSongByExternalID(ctx context.Context, externalID string) (*models.Song, error) {
	var song models.Song
	if err := s.db.View(func(txn *badger.Txn) error {
		return getIndexed(txn, songExtKeyPrefix+externalID, songKeyPrefix, &song)
	}); err != nil {
		return nil, err
	}
	return &song, nil
}

// PutSong inserts or replaces the song.
func (s *BadgerStore) PutSong(ctx context.Context, song *models.Song) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, songKeyPrefix+song.ID, song); err != nil {
			return err
		}
		if song.ExternalID != "" {
			return txn.Set([]byte(songExtKeyPrefix+song.ExternalID), []byte(song.ID))
		}
		return nil
	})
}

// GetSetlist returns the setlist by primary id.
func (s *BadgerStore) GetSetlist(ctx context.Context, id string) (*models.Setlist, error) {
	var sl models.Setlist
	if err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, setlistKeyPrefix+id, &sl)
	}); err != nil {
		return nil, err
	}
	return &sl, nil
}

// GetSetlistByShow returns the show's setlist of the given type.
func (s *BadgerStore) GetSetlistByShow(ctx context.Context, showID string, typ models.SetlistType) (*models.Setlist, error) {
	var sl models.Setlist
	key := setlistShowPrefix + showID + ":" + string(typ)
	if err := s.db.View(func(txn *badger.Txn) error {
		return getIndexed(txn, key, setlistKeyPrefix, &sl)
	}); err != nil {
		return nil, err
	}
	return &sl, nil
}

// PutSetlist inserts or replaces the setlist and its show index row.
func (s *BadgerStore) PutSetlist(ctx context.Context, setlist *models.Setlist) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, setlistKeyPrefix+setlist.ID, setlist); err != nil {
			return err
		}
		key := setlistShowPrefix + setlist.ShowID + ":" + string(setlist.Type)
		return txn.Set([]byte(key), []byte(setlist.ID))
	})
}

// GetEntry returns the setlist entry by primary id.
func (s *BadgerStore) GetEntry(ctx context.Context, id string) (*models.SetlistEntry, error) {
	var e models.SetlistEntry
	if err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, entryKeyPrefix+id, &e)
	}); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntries returns the setlist's entries via the setlist index.
func (s *BadgerStore) ListEntries(ctx context.Context, setlistID string) ([]*models.SetlistEntry, error) {
	var out []*models.SetlistEntry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(entryListKeyPrefix + setlistID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			var e models.SetlistEntry
			if err := getJSON(txn, entryKeyPrefix+id, &e); err != nil {
				return err
			}
			out = append(out, &e)
		}
		return nil
	})
	return out, err
}

// PutEntry inserts or replaces the entry and its setlist index row.
func (s *BadgerStore) PutEntry(ctx context.Context, entry *models.SetlistEntry) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, entryKeyPrefix+entry.ID, entry); err != nil {
			return err
		}
		key := entryListKeyPrefix + entry.SetlistID + ":" + entry.ID
		return txn.Set([]byte(key), []byte(entry.ID))
	})
}

// AdjustCounters applies both deltas in one transaction so readers never
// see one counter moved without the other. Optimistic conflicts from
// concurrent votes on the same entry are retried.
func (s *BadgerStore) AdjustCounters(ctx context.Context, entryID string, dUp, dDown int64) (models.Tally, error) {
	var tally models.Tally
	var err error
	for i := 0; i < counterRetries; i++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			var e models.SetlistEntry
			if err := getJSON(txn, entryKeyPrefix+entryID, &e); err != nil {
				return err
			}
			e.Upvotes = max(0, e.Upvotes+dUp)
			e.Downvotes = max(0, e.Downvotes+dDown)
			tally = models.Tally{Upvotes: e.Upvotes, Downvotes: e.Downvotes}
			return setJSON(txn, entryKeyPrefix+entryID, &e)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return models.Tally{}, err
	}
	return tally, nil
}

// SetCounters overwrites the entry's counters with recomputed values.
func (s *BadgerStore) SetCounters(ctx context.Context, entryID string, up, down int64) error {
	var err error
	for i := 0; i < counterRetries; i++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			var e models.SetlistEntry
			if err := getJSON(txn, entryKeyPrefix+entryID, &e); err != nil {
				return err
			}
			e.Upvotes = up
			e.Downvotes = down
			return setJSON(txn, entryKeyPrefix+entryID, &e)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	return err
}

// GetVote returns the voter's current vote on the entry.
func (s *BadgerStore) GetVote(ctx context.Context, voterID, entryID string) (*models.Vote, error) {
	var v models.Vote
	key := voteKeyPrefix + entryID + ":" + voterID
	if err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, key, &v)
	}); err != nil {
		return nil, err
	}
	return &v, nil
}

// PutVote inserts or replaces the vote row.
func (s *BadgerStore) PutVote(ctx context.Context, vote *models.Vote) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, voteKeyPrefix+vote.EntryID+":"+vote.VoterID, vote)
	})
}

// DeleteVote removes the vote row if present.
func (s *BadgerStore) DeleteVote(ctx context.Context, voterID, entryID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(voteKeyPrefix + entryID + ":" + voterID))
	})
}

// ListVotesByEntry returns every vote row on the entry.
func (s *BadgerStore) ListVotesByEntry(ctx context.Context, entryID string) ([]*models.Vote, error) {
	var out []*models.Vote
	err := s.db.View(func(txn *badger.Txn) error {
		rows, err := listPrefix[models.Vote](txn, voteKeyPrefix+entryID+":")
		out = rows
		return err
	})
	return out, err
}

// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package trending

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/swbam/soundcheck/internal/config"
	"github.com/swbam/soundcheck/internal/models"
	"github.com/swbam/soundcheck/internal/store"
)

// ShowRank is one scored show in the upcoming ranking.
type ShowRank struct {
	Show       *models.Show `json:"show"`
	TotalVotes int64        `json:"total_votes"`
	DaysUntil  int          `json:"days_until"`
	Score      float64      `json:"score"`
}

// ArtistRank is one scored artist.
type ArtistRank struct {
	Artist        *models.Artist `json:"artist"`
	UpcomingShows int            `json:"upcoming_shows"`
	TotalVotes    int64          `json:"total_votes"`
	Score         float64        `json:"score"`
}

// Scorer computes rankings from store state. The clock is injectable for
// tests; production uses time.Now.
type Scorer struct {
	store store.Store
	cfg   config.TrendingConfig
	now   func() time.Time
	cache *resultCache
}

// NewScorer builds a scorer with the configured weights. When
// RefreshInterval is set, ranked slices are reused until it elapses
// instead of being recomputed on every read.
func NewScorer(st store.Store, cfg config.TrendingConfig) *Scorer {
	return &Scorer{
		store: st,
		cfg:   cfg,
		now:   time.Now,
		cache: newResultCache(cfg.RefreshInterval),
	}
}

// daysUntil is the whole-day distance to the show, floored at 1 so today's
// show divides by ln(2), not ln(1).
func daysUntil(now, date time.Time) int {
	d := int(math.Ceil(date.Sub(now).Hours() / 24))
	return max(1, d)
}

// clampLimit applies the configured ranking cap.
func (s *Scorer) clampLimit(limit int) int {
	if limit <= 0 || limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}

// TrendingShows ranks upcoming shows within the timeframe by
// totalVotes / ln(daysUntil+1). Only votes cast within the trailing window
// count. Ties break toward the earlier date, then the higher vote count.
func (s *Scorer) TrendingShows(ctx context.Context, tf Timeframe, limit int) (*Ranking[ShowRank], error) {
	limit = s.clampLimit(limit)
	key := cacheKey("shows", tf, limit)
	if cached, ok := s.cache.get(key); ok {
		return newRanking(cached.([]ShowRank), limit), nil
	}

	now := s.now().UTC()
	horizon := now.Add(tf.Window())
	votesSince := now.Add(-tf.Window())

	shows, err := s.store.ListShows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shows: %w", err)
	}

	var ranks []ShowRank
	for _, show := range shows {
		if show.Status != models.ShowUpcoming {
			continue
		}
		end := endOfDay(show.Date)
		if end.Before(now) || show.Date.After(horizon) {
			continue
		}

		votes, err := s.votesOnShow(ctx, show.ID, votesSince)
		if err != nil {
			return nil, err
		}
		days := daysUntil(now, show.Date)
		ranks = append(ranks, ShowRank{
			Show:       show,
			TotalVotes: votes,
			DaysUntil:  days,
			Score:      float64(votes) / math.Log(float64(days)+1),
		})
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Score != ranks[j].Score {
			return ranks[i].Score > ranks[j].Score
		}
		if !ranks[i].Show.Date.Equal(ranks[j].Show.Date) {
			return ranks[i].Show.Date.Before(ranks[j].Show.Date)
		}
		return ranks[i].TotalVotes > ranks[j].TotalVotes
	})

	ranking := newRanking(ranks, limit)
	s.cache.set(key, ranking.items)
	return ranking, nil
}

// TrendingArtists ranks artists by
// followers*followerWeight + votes*voteWeight + upcomingShows*showBoost,
// with the show and vote populations bounded by the timeframe. Ties break
// toward the higher follower count.
func (s *Scorer) TrendingArtists(ctx context.Context, tf Timeframe, limit int) (*Ranking[ArtistRank], error) {
	limit = s.clampLimit(limit)
	key := cacheKey("artists", tf, limit)
	if cached, ok := s.cache.get(key); ok {
		return newRanking(cached.([]ArtistRank), limit), nil
	}

	now := s.now().UTC()
	horizon := now.Add(tf.Window())
	votesSince := now.Add(-tf.Window())

	artists, err := s.store.ListArtists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}

	var ranks []ArtistRank
	for _, artist := range artists {
		shows, err := s.store.ListShowsByArtist(ctx, artist.ID)
		if err != nil {
			return nil, fmt.Errorf("list shows for %s: %w", artist.ID, err)
		}

		var upcoming int
		var votes int64
		for _, show := range shows {
			if show.Status != models.ShowUpcoming {
				continue
			}
			if endOfDay(show.Date).Before(now) || show.Date.After(horizon) {
				continue
			}
			upcoming++
			v, err := s.votesOnShow(ctx, show.ID, votesSince)
			if err != nil {
				return nil, err
			}
			votes += v
		}

		score := float64(artist.Followers)*s.cfg.FollowerWeight +
			float64(votes)*s.cfg.VoteWeight +
			float64(upcoming)*s.cfg.ShowBoost
		ranks = append(ranks, ArtistRank{
			Artist:        artist,
			UpcomingShows: upcoming,
			TotalVotes:    votes,
			Score:         score,
		})
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Score != ranks[j].Score {
			return ranks[i].Score > ranks[j].Score
		}
		return ranks[i].Artist.Followers > ranks[j].Artist.Followers
	})

	ranking := newRanking(ranks, limit)
	s.cache.set(key, ranking.items)
	return ranking, nil
}

// votesOnShow sums the vote rows cast since the cutoff across every entry
// of the show's setlists.
func (s *Scorer) votesOnShow(ctx context.Context, showID string, since time.Time) (int64, error) {
	var total int64
	for _, typ := range []models.SetlistType{models.SetlistPredicted, models.SetlistActual} {
		setlist, err := s.store.GetSetlistByShow(ctx, showID, typ)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return 0, fmt.Errorf("setlist for show %s: %w", showID, err)
		}
		entries, err := s.store.ListEntries(ctx, setlist.ID)
		if err != nil {
			return 0, fmt.Errorf("entries for setlist %s: %w", setlist.ID, err)
		}
		for _, entry := range entries {
			votes, err := s.store.ListVotesByEntry(ctx, entry.ID)
			if err != nil {
				return 0, fmt.Errorf("votes for entry %s: %w", entry.ID, err)
			}
			for _, v := range votes {
				if !v.UpdatedAt.Before(since) {
					total++
				}
			}
		}
	}
	return total, nil
}

// endOfDay pushes a calendar date to its last instant so a show today
// still counts as upcoming.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

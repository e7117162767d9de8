// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swbam/soundcheck/internal/metrics"
	"github.com/swbam/soundcheck/internal/trending"
)

const defaultTrendingLimit = 20

// Trending handles GET /api/v1/trending/{entity}. Entity is "shows" or
// "artists"; timeframe and limit come from query parameters.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	tfRaw := r.URL.Query().Get("timeframe")
	if tfRaw == "" {
		tfRaw = string(trending.TimeframeWeek)
	}
	tf, err := trending.ParseTimeframe(tfRaw)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "timeframe must be one of day, week, month", nil)
		return
	}

	limit := queryInt(r, "limit", defaultTrendingLimit)
	if limit < 1 {
		respondError(w, http.StatusBadRequest, codeBadRequest, "limit must be positive", nil)
		return
	}

	entity := chi.URLParam(r, "entity")
	switch entity {
	case "shows":
		ranking, err := h.scorer.TrendingShows(r.Context(), tf, limit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, codeInternal, "failed to compute trending shows", err)
			return
		}
		items := ranking.Collect()
		metrics.TrendingRequests.WithLabelValues(entity, string(tf)).Inc()
		respondData(w, http.StatusOK, items, len(items))
	case "artists":
		ranking, err := h.scorer.TrendingArtists(r.Context(), tf, limit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, codeInternal, "failed to compute trending artists", err)
			return
		}
		items := ranking.Collect()
		metrics.TrendingRequests.WithLabelValues(entity, string(tf)).Inc()
		respondData(w, http.StatusOK, items, len(items))
	default:
		respondError(w, http.StatusNotFound, codeNotFound, "unknown trending entity", nil)
	}
}

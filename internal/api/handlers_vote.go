// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swbam/soundcheck/internal/logging"
	"github.com/swbam/soundcheck/internal/models"
	"github.com/swbam/soundcheck/internal/vote"
)

// voterHeader carries the caller's voter identity. There is no account
// system; the frontend issues each browser a stable UUID.
const voterHeader = "X-Voter-ID"

type voteRequest struct {
	VoterID   string `json:"-" validate:"required,uuid4"`
	EntryID   string `json:"entry_id" validate:"required"`
	Direction string `json:"direction" validate:"required,votedirection"`
}

type voteResponse struct {
	EntryID    string       `json:"entry_id"`
	Direction  string       `json:"direction"`
	Transition string       `json:"transition"`
	Tally      models.Tally `json:"tally"`
}

// CastVote handles POST /api/v1/votes.
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	voterID := r.Header.Get(voterHeader)
	if voterID == "" {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing "+voterHeader+" header", nil)
		return
	}

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "malformed JSON body", err)
		return
	}
	req.VoterID = voterID

	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message+": "+apiErr.Details, nil)
		return
	}

	tally, transition, err := h.votes.Cast(r.Context(), req.VoterID, req.EntryID, models.VoteDirection(req.Direction))
	switch {
	case err == nil:
	case errors.Is(err, vote.ErrNotFound):
		respondError(w, http.StatusNotFound, codeNotFound, "setlist entry not found", nil)
		return
	case errors.Is(err, vote.ErrSetlistLocked):
		respondError(w, http.StatusLocked, codeLocked, "setlist is locked for voting", nil)
		return
	default:
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to record vote", err)
		return
	}

	if h.pub != nil {
		h.pub.VoteApplied(req.VoterID, req.EntryID, string(transition), tally)
	}

	logging.Debug().
		Str("entry_id", req.EntryID).
		Str("transition", string(transition)).
		Msg("vote recorded")

	respondData(w, http.StatusOK, voteResponse{
		EntryID:    req.EntryID,
		Direction:  req.Direction,
		Transition: string(transition),
		Tally:      tally,
	}, 0)
}

// RecountSetlist handles POST /api/v1/setlists/{setlistID}/recount, the
// audit pass rebuilding entry counters from vote rows. A setlist with no
// entries recounts to zero repairs.
func (h *Handler) RecountSetlist(w http.ResponseWriter, r *http.Request) {
	setlistID := chi.URLParam(r, "setlistID")
	repaired, err := h.votes.Recount(r.Context(), setlistID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "recount failed", err)
		return
	}

	respondData(w, http.StatusOK, map[string]any{
		"setlist_id": setlistID,
		"repaired":   repaired,
	}, 0)
}

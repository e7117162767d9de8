// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swbam/soundcheck/internal/models"
	syncengine "github.com/swbam/soundcheck/internal/sync"
)

type triggerRequest struct {
	Type string `json:"type" validate:"omitempty,synctype"`
}

// TriggerSync handles POST /api/v1/sync/trigger. The body is optional;
// without one a full cycle runs.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	req := triggerRequest{Type: string(models.SyncFull)}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, codeBadRequest, "malformed JSON body", err)
			return
		}
		if req.Type == "" {
			req.Type = string(models.SyncFull)
		}
		if apiErr := validateRequest(&req); apiErr != nil {
			respondError(w, http.StatusBadRequest, apiErr.Code, "type must be one of full, catalog, events", nil)
			return
		}
	}

	cycle, err := h.sync.Trigger(models.SyncType(req.Type))
	switch {
	case err == nil:
	case errors.Is(err, syncengine.ErrCycleRunning):
		respondError(w, http.StatusConflict, codeConflict, "a sync cycle is already running", nil)
		return
	default:
		respondError(w, http.StatusBadRequest, codeBadRequest, "could not start sync cycle", err)
		return
	}

	respondData(w, http.StatusAccepted, cycle, 0)
}

// ListSyncCycles handles GET /api/v1/sync/cycles, newest first.
func (h *Handler) ListSyncCycles(w http.ResponseWriter, r *http.Request) {
	cycles := h.sync.List()
	respondData(w, http.StatusOK, cycles, len(cycles))
}

// SyncCycleStatus handles GET /api/v1/sync/cycles/{cycleID}.
func (h *Handler) SyncCycleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cycleID")
	cycle, err := h.sync.Status(id)
	if err != nil {
		respondError(w, http.StatusNotFound, codeNotFound, "sync cycle not found", nil)
		return
	}
	respondData(w, http.StatusOK, cycle, 0)
}

// CancelSyncCycle handles DELETE /api/v1/sync/cycles/{cycleID}. Progress
// already reconciled stays in the store.
func (h *Handler) CancelSyncCycle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cycleID")
	err := h.sync.Cancel(id)
	switch {
	case err == nil:
	case errors.Is(err, syncengine.ErrCycleNotFound):
		respondError(w, http.StatusNotFound, codeNotFound, "sync cycle not found", nil)
		return
	default:
		respondError(w, http.StatusConflict, codeConflict, "cycle already finished", nil)
		return
	}

	respondData(w, http.StatusAccepted, map[string]string{"id": id, "state": "cancelling"}, 0)
}

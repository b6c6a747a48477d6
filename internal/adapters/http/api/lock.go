// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
)

// LockHandler handles DJ manual position locks.
type LockHandler struct {
	deps Dependencies
}

// NewLockHandler creates a new lock handler.
func NewLockHandler(deps Dependencies) *LockHandler {
	return &LockHandler{deps: deps}
}

type lockRequest struct {
	// ManualOrder pins the request to a 1-based slot; null clears the pin.
	ManualOrder *int `json:"manual_order"`
}

// HandleLock handles PUT /events/{id}/requests/{rid}/lock requests. Locks
// apply to reads immediately; no recompute is triggered. Two locks on the
// same slot resolve last-write-wins at merge time.
func (h *LockHandler) HandleLock(w http.ResponseWriter, r *http.Request) {
	const op = "api.lock_request_position"
	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	err := h.deps.LockRequestPosition(r.Context(), r.PathValue("id"), r.PathValue("rid"), req.ManualOrder)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

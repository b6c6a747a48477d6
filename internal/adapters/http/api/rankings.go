// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// attendeeHeader carries the caller's attendee identity on ranking reads;
// when absent the server mints one and echoes it back so first-time
// clients can persist it.
const attendeeHeader = "X-Attendee-ID"

// RankingsHandler serves the dual ranking view and attendee ranking
// mutations.
type RankingsHandler struct {
	deps Dependencies
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps Dependencies) *RankingsHandler {
	return &RankingsHandler{deps: deps}
}

// HandleGetRankings handles GET /events/{id}/rankings requests. The
// response is the cached snapshot with manual overrides merged live; it
// never blocks on an in-flight recompute.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(attendeeHeader) == "" {
		w.Header().Set(attendeeHeader, uuid.NewString())
	}
	view, err := h.deps.GetDualRankingScores(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleRefresh handles POST /events/{id}/rankings/refresh requests,
// forcing (or joining) a recomputation and returning the fresh view.
func (h *RankingsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.RefreshRankings(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type addToRankingRequest struct {
	RequestID string `json:"request_id"`
}

type ackResponse struct {
	Status string `json:"status"`
}

// HandleAdd handles POST /events/{id}/attendees/{aid}/ranking requests.
func (h *RankingsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_to_ranking"
	var req addToRankingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.RequestID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing request_id")))
		return
	}

	err := h.deps.AddToRanking(r.Context(), r.PathValue("id"), r.PathValue("aid"), req.RequestID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "ranked"})
}

// HandleRemove handles DELETE /events/{id}/attendees/{aid}/ranking/{rid}
// requests. Removing an absent entry succeeds.
func (h *RankingsHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	err := h.deps.RemoveFromRanking(r.Context(), r.PathValue("id"), r.PathValue("rid"), r.PathValue("aid"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	RequestIDs []string `json:"request_ids"`
}

// HandleReorder handles PUT /events/{id}/attendees/{aid}/ranking requests.
// The body must carry an exact permutation of the attendee's current set.
func (h *RankingsHandler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	const op = "api.reorder_rankings"
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	err := h.deps.ReorderRankings(r.Context(), r.PathValue("id"), r.PathValue("aid"), req.RequestIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "reordered"})
}

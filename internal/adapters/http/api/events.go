// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/encore/internal/domain/model"
)

// EventsHandler handles event and song-request management.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

type createEventRequest struct {
	Name            string `json:"name"`
	RankingDepth    int    `json:"ranking_depth"`
	MinParticipants int    `json:"min_participants"`
	GapThreshold    int    `json:"gap_threshold"`
	PrimaryMode     string `json:"primary_mode"`
}

// HandleCreateEvent handles POST /events requests. Omitted settings fall
// back to the configured defaults.
func (h *EventsHandler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_event"
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing name")))
		return
	}

	settings := model.EventSettings{
		RankingDepth:    req.RankingDepth,
		MinParticipants: req.MinParticipants,
		GapThreshold:    req.GapThreshold,
	}
	if req.PrimaryMode != "" {
		mode, err := model.ParseMode(req.PrimaryMode)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		settings.PrimaryMode = mode
	}

	ev, err := h.deps.CreateEvent(r.Context(), req.Name, settings)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleDeleteEvent handles DELETE /events/{id} requests.
func (h *EventsHandler) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteEvent(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type submitRequestRequest struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// HandleSubmitRequest handles POST /events/{id}/requests requests.
func (h *EventsHandler) HandleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_request"
	var req submitRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing title")))
		return
	}

	created, err := h.deps.SubmitRequest(r.Context(), r.PathValue("id"), req.Title, req.Artist)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleListRequests handles GET /events/{id}/requests requests.
func (h *EventsHandler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.deps.ListRequests(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// HandleSetStatus handles PATCH /events/{id}/requests/{rid}/status requests.
func (h *EventsHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_request_status"
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	status, err := model.ParseRequestStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if err := h.deps.SetRequestStatus(r.Context(), r.PathValue("id"), r.PathValue("rid"), status); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

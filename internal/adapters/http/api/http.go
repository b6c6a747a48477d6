// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/encore/internal/adapters/catalog"
	"github.com/okian/encore/internal/adapters/repository"
	"github.com/okian/encore/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	GetDualRankingScores(ctx context.Context, eventID string) (*model.RankingView, error)
	RefreshRankings(ctx context.Context, eventID string) (*model.RankingView, error)

	AddToRanking(ctx context.Context, eventID, attendeeID, requestID string) error
	RemoveFromRanking(ctx context.Context, eventID, requestID, attendeeID string) error
	ReorderRankings(ctx context.Context, eventID, attendeeID string, orderedIDs []string) error

	LockRequestPosition(ctx context.Context, eventID, requestID string, order *int) error

	CreateEvent(ctx context.Context, name string, settings model.EventSettings) (catalog.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	SubmitRequest(ctx context.Context, eventID, title, artist string) (catalog.Request, error)
	SetRequestStatus(ctx context.Context, eventID, requestID string, status model.RequestStatus) error
	ListRequests(ctx context.Context, eventID string) ([]catalog.Request, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	rankingsHandler *RankingsHandler
	lockHandler     *LockHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		eventsHandler:   NewEventsHandler(deps),
		rankingsHandler: NewRankingsHandler(deps),
		lockHandler:     NewLockHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandleCreateEvent, "events"))
	mux.HandleFunc("DELETE /events/{id}", MetricsMiddleware(s.eventsHandler.HandleDeleteEvent, "events"))
	mux.HandleFunc("POST /events/{id}/requests", MetricsMiddleware(s.eventsHandler.HandleSubmitRequest, "requests"))
	mux.HandleFunc("GET /events/{id}/requests", MetricsMiddleware(s.eventsHandler.HandleListRequests, "requests"))
	mux.HandleFunc("PATCH /events/{id}/requests/{rid}/status", MetricsMiddleware(s.eventsHandler.HandleSetStatus, "request_status"))
	mux.HandleFunc("PUT /events/{id}/requests/{rid}/lock", MetricsMiddleware(s.lockHandler.HandleLock, "request_lock"))

	mux.HandleFunc("GET /events/{id}/rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.HandleFunc("POST /events/{id}/rankings/refresh", MetricsMiddleware(s.rankingsHandler.HandleRefresh, "rankings_refresh"))
	mux.HandleFunc("POST /events/{id}/attendees/{aid}/ranking", MetricsMiddleware(s.rankingsHandler.HandleAdd, "ranking_add"))
	mux.HandleFunc("DELETE /events/{id}/attendees/{aid}/ranking/{rid}", MetricsMiddleware(s.rankingsHandler.HandleRemove, "ranking_remove"))
	mux.HandleFunc("PUT /events/{id}/attendees/{aid}/ranking", MetricsMiddleware(s.rankingsHandler.HandleReorder, "ranking_reorder"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps engine sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrEventNotFound),
		errors.Is(err, catalog.ErrRequestNotFound),
		errors.Is(err, repository.ErrUnknownRequest):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrDepthExceeded):
		writeError(w, http.StatusConflict, "ranking_full", err)
	case errors.Is(err, repository.ErrInvalidPermutation):
		writeError(w, http.StatusConflict, "invalid_permutation", err)
	case errors.Is(err, repository.ErrNotRankable):
		writeError(w, http.StatusUnprocessableEntity, "not_rankable", err)
	case errors.Is(err, catalog.ErrInvalidSetting),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/encore/internal/adapters/catalog"
	"github.com/okian/encore/internal/adapters/repository"
	"github.com/okian/encore/internal/adapters/snapshot"
	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/override"
	"github.com/okian/encore/internal/domain/scoring"
	"github.com/okian/encore/internal/domain/tally"
	"github.com/okian/encore/pkg/logger"
	"github.com/okian/encore/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultDBPath          = "encore.db"
	defaultRefreshInterval = 10 * time.Second
)

// Service wires the ranking engine: catalog, attendee rankings, the
// dual-mode score computer and the snapshot cache.
type Service struct {
	mu sync.RWMutex

	// Core components
	catalog  *catalog.Store
	rankings repository.Store
	cache    *snapshot.Cache
	computer *scoring.Computer

	// Configuration
	dbPath          string
	refreshInterval time.Duration
	defaults        model.EventSettings

	// State
	started     bool
	cancelSched context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDBPath sets the sqlite catalog location.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithRefreshInterval sets the background recompute cadence.
func WithRefreshInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.refreshInterval = interval
		}
	}
}

// WithDefaultSettings sets the per-event defaults applied when an event is
// created without explicit settings.
func WithDefaultSettings(settings model.EventSettings) Option {
	return func(s *Service) {
		s.defaults = settings
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:          defaultDBPath,
		refreshInterval: defaultRefreshInterval,
		defaults: model.EventSettings{
			RankingDepth:    10,
			MinParticipants: 3,
			GapThreshold:    3,
			PrimaryMode:     model.ModeConsensus,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ranking service...")

	cat, err := catalog.Open(ctx, s.dbPath)
	if err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	s.catalog = cat
	s.rankings = repository.NewMemoryStore()
	s.computer = scoring.NewComputer(
		scoring.WithGapThreshold(s.defaults.GapThreshold),
	)
	s.cache = snapshot.New(s.recompute,
		snapshot.WithRefreshInterval(s.refreshInterval),
		snapshot.WithLogger(s.logger.Named("snapshot")),
	)

	schedCtx, cancel := context.WithCancel(context.Background())
	s.cancelSched = cancel
	go s.cache.Run(schedCtx)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.String("db_path", s.dbPath),
		logger.Duration("refresh_interval", s.refreshInterval),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	if s.cancelSched != nil {
		s.cancelSched()
	}
	if s.catalog != nil {
		if err := s.catalog.Close(); err != nil {
			s.logger.Error(ctx, "catalog close failed", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// recompute is the full pipeline: prune -> copy rankings -> tally ->
// score -> hidden gems -> activation. It runs off the request path, at
// most once in flight per event.
func (s *Service) recompute(ctx context.Context, eventID string) (*model.DualRankingSnapshot, error) {
	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rankableReqs, err := s.catalog.ListRankable(ctx, eventID)
	if err != nil {
		return nil, err
	}

	rankable := make([]string, len(rankableReqs))
	rankableSet := make(map[string]struct{}, len(rankableReqs))
	for i, req := range rankableReqs {
		rankable[i] = req.ID
		rankableSet[req.ID] = struct{}{}
	}

	pruned := s.rankings.PruneNotRankable(ctx, eventID, rankableSet)
	metrics.RecordPrunedEntries(pruned)
	if pruned > 0 {
		s.logger.Debug(ctx, "pruned non-rankable entries",
			logger.String("event_id", eventID),
			logger.Int("pruned", pruned),
		)
	}

	rankings := s.rankings.SnapshotAll(ctx, eventID)
	t := tally.Build(rankable, rankings)
	consensus, discovery := s.computer.Compute(rankable, t)
	gems := s.computer.DetectHiddenGems(consensus, discovery, ev.Settings.GapThreshold)

	participants := 0
	for _, ranking := range rankings {
		if len(ranking) > 0 {
			participants++
		}
	}

	metrics.UpdateParticipants(eventID, participants)
	metrics.UpdateRankableRequests(eventID, len(rankable))

	return &model.DualRankingSnapshot{
		EventID:           eventID,
		GeneratedAt:       time.Now().UTC(),
		PrimaryMode:       ev.Settings.PrimaryMode,
		Activated:         scoring.Activated(participants, ev.Settings.MinParticipants),
		TotalParticipants: participants,
		MinParticipants:   ev.Settings.MinParticipants,
		Consensus:         consensus,
		Discovery:         discovery,
		HiddenGems:        gems,
	}, nil
}

// GetDualRankingScores returns the cached snapshot with the live
// manual-override layer merged in. The first read of an event computes
// synchronously; after that reads never block on recomputation.
func (s *Service) GetDualRankingScores(ctx context.Context, eventID string) (*model.RankingView, error) {
	snap, err := s.cache.Get(eventID)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		snap, err = s.cache.Refresh(ctx, eventID)
	}
	if err != nil {
		return nil, err
	}
	return s.view(ctx, snap)
}

// RefreshRankings forces a recomputation (or joins the in-flight one) and
// returns the resulting view.
func (s *Service) RefreshRankings(ctx context.Context, eventID string) (*model.RankingView, error) {
	snap, err := s.cache.Refresh(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, snap)
}

// view merges DJ locks over the cached orderings at serve time, so locks
// apply instantly without a recompute.
func (s *Service) view(ctx context.Context, snap *model.DualRankingSnapshot) (*model.RankingView, error) {
	locks, err := s.catalog.ManualOrders(ctx, snap.EventID)
	if err != nil {
		return nil, err
	}
	return &model.RankingView{
		EventID:           snap.EventID,
		GeneratedAt:       snap.GeneratedAt,
		PrimaryMode:       snap.PrimaryMode,
		Activated:         snap.Activated,
		TotalParticipants: snap.TotalParticipants,
		MinParticipants:   snap.MinParticipants,
		Consensus:         override.Merge(snap.Consensus, locks),
		Discovery:         override.Merge(snap.Discovery, locks),
		HiddenGems:        snap.HiddenGems,
	}, nil
}

// AddToRanking appends a request to the attendee's Top-N list and marks
// the event's snapshot stale. No synchronous recompute happens here.
func (s *Service) AddToRanking(ctx context.Context, eventID, attendeeID, requestID string) error {
	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	req, err := s.catalog.GetRequest(ctx, eventID, requestID)
	if err != nil {
		metrics.RecordRankingMutationError("add")
		return fmt.Errorf("%w: %w", repository.ErrUnknownRequest, err)
	}
	if !req.Status.Rankable() {
		metrics.RecordRankingMutationError("add")
		return fmt.Errorf("request %s is %s: %w", requestID, req.Status, repository.ErrNotRankable)
	}
	if err := s.rankings.Add(ctx, eventID, attendeeID, requestID, ev.Settings.RankingDepth); err != nil {
		metrics.RecordRankingMutationError("add")
		return err
	}
	s.cache.MarkStale(eventID)
	return nil
}

// RemoveFromRanking removes a request from the attendee's list; absent
// entries are a no-op.
func (s *Service) RemoveFromRanking(ctx context.Context, eventID, requestID, attendeeID string) error {
	if err := s.rankings.Remove(ctx, eventID, attendeeID, requestID); err != nil {
		metrics.RecordRankingMutationError("remove")
		return err
	}
	s.cache.MarkStale(eventID)
	return nil
}

// ReorderRankings replaces the attendee's ranking order with the supplied
// permutation of their current set.
func (s *Service) ReorderRankings(ctx context.Context, eventID, attendeeID string, orderedIDs []string) error {
	if err := s.rankings.Reorder(ctx, eventID, attendeeID, orderedIDs); err != nil {
		metrics.RecordRankingMutationError("reorder")
		return err
	}
	s.cache.MarkStale(eventID)
	return nil
}

// LockRequestPosition sets or clears a DJ manual lock. The snapshot is not
// invalidated: overrides merge at read time.
func (s *Service) LockRequestPosition(ctx context.Context, eventID, requestID string, order *int) error {
	if err := s.catalog.SetManualOrder(ctx, eventID, requestID, order); err != nil {
		return err
	}
	metrics.RecordManualLock()
	return nil
}

// CreateEvent creates an event, filling omitted settings from defaults.
func (s *Service) CreateEvent(ctx context.Context, name string, settings model.EventSettings) (catalog.Event, error) {
	if settings.RankingDepth == 0 {
		settings.RankingDepth = s.defaults.RankingDepth
	}
	if settings.MinParticipants == 0 {
		settings.MinParticipants = s.defaults.MinParticipants
	}
	if settings.GapThreshold == 0 {
		settings.GapThreshold = s.defaults.GapThreshold
	}
	if settings.PrimaryMode == "" {
		settings.PrimaryMode = s.defaults.PrimaryMode
	}
	return s.catalog.CreateEvent(ctx, name, settings)
}

// DeleteEvent removes the event everywhere. In-flight recomputes are
// abandoned and their results discarded.
func (s *Service) DeleteEvent(ctx context.Context, eventID string) error {
	if err := s.catalog.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	s.rankings.DropEvent(ctx, eventID)
	s.cache.Drop(eventID)
	metrics.DropEventGauges(eventID)
	return nil
}

// SubmitRequest adds a pending song request to the event.
func (s *Service) SubmitRequest(ctx context.Context, eventID, title, artist string) (catalog.Request, error) {
	req, err := s.catalog.AddRequest(ctx, eventID, title, artist)
	if err != nil {
		return catalog.Request{}, err
	}
	s.cache.MarkStale(eventID)
	return req, nil
}

// SetRequestStatus transitions a request's lifecycle state; rankings that
// reference a now non-rankable request are pruned on the next recompute.
func (s *Service) SetRequestStatus(ctx context.Context, eventID, requestID string, status model.RequestStatus) error {
	if err := s.catalog.SetStatus(ctx, eventID, requestID, status); err != nil {
		return err
	}
	s.cache.MarkStale(eventID)
	return nil
}

// ListRequests returns the event's requests, oldest first.
func (s *Service) ListRequests(ctx context.Context, eventID string) ([]catalog.Request, error) {
	return s.catalog.ListRequests(ctx, eventID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":                  s.started,
		"refresh_interval_seconds": int(s.refreshInterval / time.Second),
	}
	if s.started {
		tracked, fresh, stale := s.cache.Stats()
		stats["events_tracked"] = tracked
		stats["events_fresh"] = fresh
		stats["events_stale"] = stale
	}
	return stats
}

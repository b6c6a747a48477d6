// Package catalog persists events and song requests in sqlite. It is the
// engine's rankable pool and the owner of DJ manual locks; attendee
// rankings themselves stay in memory on the hot path.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/override"
)

// Event is a ranked song-request event.
type Event struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Settings  model.EventSettings `json:"settings"`
	CreatedAt time.Time           `json:"created_at"`
}

// Request is a song request within an event.
type Request struct {
	ID          string              `json:"id"`
	EventID     string              `json:"event_id"`
	Title       string              `json:"title"`
	Artist      string              `json:"artist,omitempty"`
	Status      model.RequestStatus `json:"status"`
	ManualOrder *int                `json:"manual_order,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Store is the sqlite-backed catalog.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the catalog at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Safe to run repeatedly; uses IF NOT EXISTS.
const schema = `
CREATE TABLE IF NOT EXISTS event (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    ranking_depth INTEGER NOT NULL,
    min_participants INTEGER NOT NULL,
    gap_threshold INTEGER NOT NULL,
    primary_mode TEXT NOT NULL DEFAULT 'consensus' CHECK (primary_mode IN ('consensus', 'discovery')),
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS request (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL REFERENCES event(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    artist TEXT,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'queued', 'played', 'rejected')),
    manual_order INTEGER,
    locked_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_request_event ON request(event_id);
CREATE INDEX IF NOT EXISTS idx_request_event_status ON request(event_id, status);
`

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	return nil
}

// CreateEvent inserts a new event with the given settings.
func (s *Store) CreateEvent(ctx context.Context, name string, settings model.EventSettings) (Event, error) {
	if settings.RankingDepth < 1 {
		return Event{}, fmt.Errorf("%w: ranking_depth must be positive", ErrInvalidSetting)
	}
	if settings.MinParticipants < 1 {
		return Event{}, fmt.Errorf("%w: min_participants must be positive", ErrInvalidSetting)
	}
	if settings.GapThreshold < 1 {
		return Event{}, fmt.Errorf("%w: gap_threshold must be positive", ErrInvalidSetting)
	}
	if settings.PrimaryMode != model.ModeConsensus && settings.PrimaryMode != model.ModeDiscovery {
		return Event{}, fmt.Errorf("%w: unknown primary_mode %q", ErrInvalidSetting, settings.PrimaryMode)
	}

	ev := Event{
		ID:        uuid.NewString(),
		Name:      name,
		Settings:  settings,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO event (id, name, ranking_depth, min_participants, gap_threshold, primary_mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Name, settings.RankingDepth, settings.MinParticipants,
		settings.GapThreshold, string(settings.PrimaryMode), ev.CreatedAt,
	)
	if err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	return ev, nil
}

// GetEvent returns an event by id, or ErrEventNotFound.
func (s *Store) GetEvent(ctx context.Context, eventID string) (Event, error) {
	var ev Event
	var mode string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, ranking_depth, min_participants, gap_threshold, primary_mode, created_at
		FROM event WHERE id = ?`, eventID,
	).Scan(&ev.ID, &ev.Name, &ev.Settings.RankingDepth, &ev.Settings.MinParticipants,
		&ev.Settings.GapThreshold, &mode, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, fmt.Errorf("event %s: %w", eventID, ErrEventNotFound)
	}
	if err != nil {
		return Event{}, fmt.Errorf("query event: %w", err)
	}
	ev.Settings.PrimaryMode = model.Mode(mode)
	return ev, nil
}

// DeleteEvent removes the event and, via cascade, its requests.
func (s *Store) DeleteEvent(ctx context.Context, eventID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM event WHERE id = ?`, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("event %s: %w", eventID, ErrEventNotFound)
	}
	return nil
}

// AddRequest inserts a pending song request for the event.
func (s *Store) AddRequest(ctx context.Context, eventID, title, artist string) (Request, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return Request{}, err
	}
	req := Request{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Title:     title,
		Artist:    artist,
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO request (id, event_id, title, artist, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		req.ID, req.EventID, req.Title, req.Artist, string(req.Status), req.CreatedAt,
	)
	if err != nil {
		return Request{}, fmt.Errorf("insert request: %w", err)
	}
	return req, nil
}

// GetRequest returns a request scoped to its event, or ErrRequestNotFound.
func (s *Store) GetRequest(ctx context.Context, eventID, requestID string) (Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, title, artist, status, manual_order, created_at
		FROM request WHERE id = ? AND event_id = ?`, requestID, eventID)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, fmt.Errorf("request %s: %w", requestID, ErrRequestNotFound)
	}
	if err != nil {
		return Request{}, fmt.Errorf("query request: %w", err)
	}
	return req, nil
}

// SetStatus transitions a request's lifecycle state. The ranking engine
// prunes rankings referencing non-rankable requests on its next recompute.
func (s *Store) SetStatus(ctx context.Context, eventID, requestID string, status model.RequestStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE request SET status = ? WHERE id = ? AND event_id = ?`,
		string(status), requestID, eventID,
	)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("request %s: %w", requestID, ErrRequestNotFound)
	}
	return nil
}

// ListRequests returns every request for the event, oldest first.
func (s *Store) ListRequests(ctx context.Context, eventID string) ([]Request, error) {
	return s.listRequests(ctx, `
		SELECT id, event_id, title, artist, status, manual_order, created_at
		FROM request WHERE event_id = ? ORDER BY created_at, id`, eventID)
}

// ListRankable returns the requests currently eligible for ranking.
func (s *Store) ListRankable(ctx context.Context, eventID string) ([]Request, error) {
	return s.listRequests(ctx, `
		SELECT id, event_id, title, artist, status, manual_order, created_at
		FROM request WHERE event_id = ? AND status IN ('pending', 'queued')
		ORDER BY created_at, id`, eventID)
}

func (s *Store) listRequests(ctx context.Context, query string, args ...any) ([]Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var req Request
	var artist sql.NullString
	var manualOrder sql.NullInt64
	var status string
	err := row.Scan(&req.ID, &req.EventID, &req.Title, &artist, &status, &manualOrder, &req.CreatedAt)
	if err != nil {
		return Request{}, err
	}
	req.Artist = artist.String
	req.Status = model.RequestStatus(status)
	if manualOrder.Valid {
		o := int(manualOrder.Int64)
		req.ManualOrder = &o
	}
	return req, nil
}

// SetManualOrder pins a request to a display slot, or clears the pin when
// order is nil. Collisions between locks are not an error; lock recency
// decides the winner at merge time.
func (s *Store) SetManualOrder(ctx context.Context, eventID, requestID string, order *int) error {
	var res sql.Result
	var err error
	if order == nil {
		res, err = s.db.ExecContext(ctx, `
			UPDATE request SET manual_order = NULL, locked_at = NULL
			WHERE id = ? AND event_id = ?`, requestID, eventID)
	} else {
		if *order < 1 {
			return fmt.Errorf("%w: manual_order must be >= 1", ErrInvalidSetting)
		}
		res, err = s.db.ExecContext(ctx, `
			UPDATE request SET manual_order = ?, locked_at = ?
			WHERE id = ? AND event_id = ?`, *order, time.Now().UTC(), requestID, eventID)
	}
	if err != nil {
		return fmt.Errorf("update manual order: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("request %s: %w", requestID, ErrRequestNotFound)
	}
	return nil
}

// ManualOrders returns the event's locks oldest-set first, the order the
// override merge needs for last-write-wins slot resolution.
func (s *Store) ManualOrders(ctx context.Context, eventID string) ([]override.Lock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, manual_order FROM request
		WHERE event_id = ? AND manual_order IS NOT NULL
		ORDER BY locked_at, id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query manual orders: %w", err)
	}
	defer rows.Close()

	var locks []override.Lock
	for rows.Next() {
		var l override.Lock
		if err := rows.Scan(&l.RequestID, &l.Order); err != nil {
			return nil, fmt.Errorf("scan manual order: %w", err)
		}
		locks = append(locks, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manual orders: %w", err)
	}
	return locks, nil
}

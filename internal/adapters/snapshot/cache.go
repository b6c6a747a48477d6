// Package snapshot caches the last computed ranking snapshot per event and
// coalesces concurrent recompute requests.
//
// Each event walks a Stale -> Recomputing -> Fresh state machine. Reads
// never block on recomputation: they return the last fresh snapshot, and
// staleness is preferred over unavailability when a recompute fails.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/pkg/logger"
	"github.com/okian/encore/pkg/metrics"
)

// defaultRefreshInterval is the background recompute cadence.
const defaultRefreshInterval = 10 * time.Second

// ComputeFunc runs the full recompute pipeline for one event.
type ComputeFunc func(ctx context.Context, eventID string) (*model.DualRankingSnapshot, error)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithRefreshInterval sets the background ticker cadence.
func WithRefreshInterval(interval time.Duration) Option {
	return func(c *Cache) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithLogger sets a custom logger for the cache.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// inflight is the shared handle concurrent refresh callers wait on.
type inflight struct {
	done chan struct{}
	snap *model.DualRankingSnapshot
	err  error
}

// state tracks one event's position in the Stale -> Recomputing -> Fresh
// machine. fresh holds the last completed snapshot; dirty means a mutation
// occurred since it was generated (or nothing was computed yet).
type state struct {
	fresh    *model.DualRankingSnapshot
	dirty    bool
	inflight *inflight
}

// Cache owns the per-event snapshot state. It is passed to handlers by
// reference, never reached through a package-level singleton.
type Cache struct {
	mu       sync.Mutex
	states   map[string]*state
	compute  ComputeFunc
	interval time.Duration
	logger   logger.Logger
}

// New creates a Cache around the given compute function.
func New(compute ComputeFunc, opts ...Option) *Cache {
	c := &Cache{
		states:   make(map[string]*state),
		compute:  compute,
		interval: defaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("snapshot")
	}
	return c
}

// MarkStale records that a mutation invalidated the event's snapshot.
// Reads keep serving the last fresh snapshot until the next recompute.
func (c *Cache) MarkStale(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[eventID]
	if st == nil {
		st = &state{dirty: true}
		c.states[eventID] = st
	}
	st.dirty = true
}

// Get returns the last fresh snapshot without blocking, or ErrNoSnapshot
// when no recomputation has completed for the event yet.
func (c *Cache) Get(eventID string) (*model.DualRankingSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[eventID]
	if st == nil || st.fresh == nil {
		return nil, ErrNoSnapshot
	}
	return st.fresh, nil
}

// Refresh recomputes the event's snapshot, coalescing concurrent callers:
// the first starts the compute and later callers wait on the same in-flight
// run instead of issuing a second one.
func (c *Cache) Refresh(ctx context.Context, eventID string) (*model.DualRankingSnapshot, error) {
	c.mu.Lock()
	st := c.states[eventID]
	if st == nil {
		st = &state{dirty: true}
		c.states[eventID] = st
	}
	if fl := st.inflight; fl != nil {
		c.mu.Unlock()
		metrics.RecordRefreshCoalesced()
		select {
		case <-fl.done:
			return fl.snap, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	fl := &inflight{done: make(chan struct{})}
	st.inflight = fl
	st.dirty = false
	c.mu.Unlock()

	start := time.Now()
	snap, err := c.compute(ctx, eventID)

	c.mu.Lock()
	cur := c.states[eventID]
	if cur != st {
		// Event was dropped mid-flight; discard the result.
		c.mu.Unlock()
		fl.snap, fl.err = nil, ErrDropped
		close(fl.done)
		return nil, ErrDropped
	}
	st.inflight = nil
	if err != nil {
		if st.fresh == nil {
			// Nothing was ever served for this event; keeping the entry
			// would have the scheduler retry a ghost (deleted or mistyped)
			// event on every tick. The next mutation or read re-registers.
			delete(c.states, eventID)
		} else {
			// Back to Stale; the last fresh snapshot keeps serving reads.
			st.dirty = true
		}
		metrics.RecordRecomputeError()
		c.logger.Error(ctx, "recompute failed",
			logger.String("event_id", eventID),
			logger.Error(err),
		)
	} else {
		st.fresh = snap
		metrics.RecordRecompute(float64(time.Since(start).Milliseconds()))
		metrics.UpdateSnapshotLastUnix(snap.GeneratedAt.Unix())
	}
	c.mu.Unlock()

	fl.snap, fl.err = snap, err
	close(fl.done)
	return snap, err
}

// Drop discards the event's state. An in-flight recompute is abandoned and
// its result thrown away.
func (c *Cache) Drop(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, eventID)
}

// Stale reports whether the event needs a recompute.
func (c *Cache) Stale(eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[eventID]
	return st != nil && st.dirty && st.inflight == nil
}

// Run drives the periodic recompute of stale events until ctx is canceled.
// The cadence is independent of client poll rates.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, eventID := range c.staleEvents() {
				if _, err := c.Refresh(ctx, eventID); err != nil {
					// Already logged and counted inside Refresh.
					continue
				}
			}
		}
	}
}

func (c *Cache) staleEvents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for id, st := range c.states {
		if st.dirty && st.inflight == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Stats reports cache occupancy for the stats endpoint.
func (c *Cache) Stats() (tracked, fresh, stale int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, st := range c.states {
		tracked++
		if st.fresh != nil {
			fresh++
		}
		if st.dirty {
			stale++
		}
	}
	return tracked, fresh, stale
}

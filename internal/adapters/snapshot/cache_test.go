package snapshot

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func snapFor(eventID string) *model.DualRankingSnapshot {
	return &model.DualRankingSnapshot{
		EventID:     eventID,
		GeneratedAt: time.Now().UTC(),
	}
}

func TestGetBeforeFirstCompute(t *testing.T) {
	c := New(func(ctx context.Context, eventID string) (*model.DualRankingSnapshot, error) {
		return snapFor(eventID), nil
	})

	if _, err := c.Get("event-1"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot before first compute, got %v", err)
	}

	c.MarkStale("event-1")
	if _, err := c.Get("event-1"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("marking stale must not fabricate a snapshot, got %v", err)
	}
}

func TestRefreshThenGet(t *testing.T) {
	ctx := context.Background()
	c := New(func(ctx context.Context, eventID string) (*model.DualRankingSnapshot, error) {
		return snapFor(eventID), nil
	})

	snap, err := c.Refresh(ctx, "event-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if snap.EventID != "event-1" {
		t.Fatalf("snapshot event = %s", snap.EventID)
	}

	got, err := c.Get("event-1")
	if err != nil || got != snap {
		t.Fatalf("get should return the refreshed snapshot, got %v, %v", got, err)
	}
	if c.Stale("event-1") {
		t.Fatal("event should be fresh after refresh")
	}
}

func TestMarkStaleKeepsServingLastFresh(t *testing.T) {
	ctx := context.Background()
	c := New(func(ctx context.Context, eventID string) (*model.DualRankingSnapshot, error) {
		return snapFor(eventID), nil
	})

	snap, err := c.Refresh(ctx, "event-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	c.MarkStale("event-1")
	if !c.Stale("event-1") {
		t.Fatal("event should be stale after mutation")
	}
	got, err := c.Get("event-1")
	if err != nil || got != snap {
		t.Fatalf("stale event must keep serving the last fresh snapshot, got %v, %v", got, err)
	}
}

func TestConcurrentRefreshCoalesces(t *testing.T) {
	ctx := context.Background()

	var computes atomic.Int32
	release := make(chan struct{})
	c := New(func(ctx context.Context, eventID string) (*model.DualRankingSnapshot, error) {
		computes.Add(1)
		<-release
		return snapFor(eventID), nil
	})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*model.DualRankingSnapshot, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Refresh(ctx, "event-1")
		}(i)
	}

	// Let every caller reach the cache before the compute finishes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := computes.Load(); n != 1 {
		t.Fatalf("compute ran %d times, want 1", n)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d got a different snapshot", i)
		}
	}
}

func TestRefreshErrorKeepsLastFresh(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	var fail atomic.Bool
	c := New(func(ctx context.Context, eventID string) (*model.DualRankingSnapshot, error) {
		if fail.Load() {
			return nil, boom
		}
		return snapFor(eventID), nil
	})

	snap, err := c.Refresh(ctx, "event-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	fail.Store(true)
	if _, err := c.Refresh(ctx, "event-1"); !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}

	// Failure returns the event to Stale but keeps the old snapshot.
	if !c.Stale("event-1") {
		t.Fatal("event should be stale after failed recompute")
	}
	got, err := c.Get("event-1")
	if err != nil || got != snap {
		t.Fatalf("failed recompute must not evict the last fresh snapshot, got %v, %v", got, err)
	}
}

func TestDropMidFlightDiscardsResult(t *testing.T) {
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	c := New(func(ctx context.Context, eventID string) (*model.DualRankingSnapshot, error) {
		close(started)
		<-release
		return snapFor(eventID), nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Refresh(ctx, "event-1")
		done <- err
	}()

	<-started
	c.Drop("event-1")
	close(release)

	if err := <-done; !errors.Is(err, ErrDropped) {
		t.Fatalf("expected ErrDropped, got %v", err)
	}
	if _, err := c.Get("event-1"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("dropped event must not retain a snapshot, got %v", err)
	}
}

func TestFailedFirstComputeEvictsEvent(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("no such event")

	var computes atomic.Int32
	c := New(func(ctx context.Context, eventID string) (*model.DualRankingSnapshot, error) {
		computes.Add(1)
		return nil, boom
	}, WithRefreshInterval(10*time.Millisecond))

	// A single read of an event that cannot compute (deleted, mistyped)
	// must not leave state behind for the scheduler to retry forever.
	if _, err := c.Refresh(ctx, "ghost-event"); !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if tracked, _, _ := c.Stats(); tracked != 0 {
		t.Fatalf("tracked = %d after failed first compute, want 0", tracked)
	}
	if c.Stale("ghost-event") {
		t.Fatal("failed first compute must not leave the event stale")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	go c.Run(runCtx)
	time.Sleep(100 * time.Millisecond)
	cancel()

	if n := computes.Load(); n != 1 {
		t.Fatalf("compute ran %d times, want 1 (ghost event retried)", n)
	}
}

func TestRunRecomputesStaleEvents(t *testing.T) {
	var computes atomic.Int32
	c := New(func(ctx context.Context, eventID string) (*model.DualRankingSnapshot, error) {
		computes.Add(1)
		return snapFor(eventID), nil
	}, WithRefreshInterval(10*time.Millisecond))

	c.MarkStale("event-1")
	c.MarkStale("event-2")

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)

	deadline := time.After(2 * time.Second)
	for computes.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("scheduler never recomputed the stale events")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if c.Stale("event-1") || c.Stale("event-2") {
		t.Fatal("events should be fresh after the scheduler pass")
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	c := New(func(ctx context.Context, eventID string) (*model.DualRankingSnapshot, error) {
		return snapFor(eventID), nil
	})

	if _, err := c.Refresh(ctx, "event-1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	c.MarkStale("event-2")

	tracked, fresh, stale := c.Stats()
	if tracked != 2 || fresh != 1 || stale != 1 {
		t.Fatalf("stats = %d/%d/%d, want 2/1/1", tracked, fresh, stale)
	}
}

package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/encore/pkg/metrics"
)

// MemoryStore is the in-memory Store implementation. Events shard into
// independent lock domains so mutations on one event never contend with
// another; within an event, mutations hold the write lock and snapshot
// reads hold the read lock, which gives SnapshotAll a consistent view
// without a running tally.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]*eventRankings
}

type eventRankings struct {
	mu         sync.RWMutex
	byAttendee map[string][]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]*eventRankings),
	}
}

// eventState returns the lock domain for eventID, creating it when create
// is set.
func (s *MemoryStore) eventState(eventID string, create bool) *eventRankings {
	s.mu.RLock()
	ev := s.events[eventID]
	s.mu.RUnlock()
	if ev != nil || !create {
		return ev
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ev = s.events[eventID]; ev == nil {
		ev = &eventRankings{byAttendee: make(map[string][]string)}
		s.events[eventID] = ev
	}
	return ev
}

// Add appends requestID at the next free position.
func (s *MemoryStore) Add(ctx context.Context, eventID, attendeeID, requestID string, depth int) error {
	ev := s.eventState(eventID, true)
	ev.mu.Lock()
	defer ev.mu.Unlock()

	ranking := ev.byAttendee[attendeeID]
	for _, id := range ranking {
		if id == requestID {
			return nil // already ranked; idempotent no-op
		}
	}
	if depth > 0 && len(ranking) >= depth {
		return fmt.Errorf("attendee %s at %d entries: %w", attendeeID, len(ranking), ErrDepthExceeded)
	}

	ev.byAttendee[attendeeID] = append(ranking, requestID)
	metrics.RecordRankingMutation("add")
	return nil
}

// Remove deletes requestID and renumbers the remainder.
func (s *MemoryStore) Remove(ctx context.Context, eventID, attendeeID, requestID string) error {
	ev := s.eventState(eventID, false)
	if ev == nil {
		return nil
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()

	ranking := ev.byAttendee[attendeeID]
	for i, id := range ranking {
		if id == requestID {
			ev.byAttendee[attendeeID] = append(ranking[:i:i], ranking[i+1:]...)
			metrics.RecordRankingMutation("remove")
			return nil
		}
	}
	return nil // absent; no-op
}

// Reorder replaces the attendee's ranking with orderedIDs after verifying
// it is an exact permutation of the current set.
func (s *MemoryStore) Reorder(ctx context.Context, eventID, attendeeID string, orderedIDs []string) error {
	ev := s.eventState(eventID, false)
	if ev == nil {
		if len(orderedIDs) == 0 {
			return nil
		}
		return fmt.Errorf("attendee %s has no ranking: %w", attendeeID, ErrInvalidPermutation)
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()

	current := ev.byAttendee[attendeeID]
	if len(orderedIDs) != len(current) {
		return fmt.Errorf("got %d ids, ranking has %d: %w", len(orderedIDs), len(current), ErrInvalidPermutation)
	}

	have := make(map[string]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	for _, id := range orderedIDs {
		if _, ok := have[id]; !ok {
			return fmt.Errorf("id %s not in ranking or duplicated: %w", id, ErrInvalidPermutation)
		}
		delete(have, id)
	}

	ev.byAttendee[attendeeID] = append([]string(nil), orderedIDs...)
	metrics.RecordRankingMutation("reorder")
	return nil
}

// SnapshotAll deep-copies every ranking under the event read lock.
func (s *MemoryStore) SnapshotAll(ctx context.Context, eventID string) map[string][]string {
	ev := s.eventState(eventID, false)
	if ev == nil {
		return map[string][]string{}
	}
	ev.mu.RLock()
	defer ev.mu.RUnlock()

	out := make(map[string][]string, len(ev.byAttendee))
	for attendee, ranking := range ev.byAttendee {
		out[attendee] = append([]string(nil), ranking...)
	}
	return out
}

// Participants counts attendees with a non-empty ranking. Empty rows are a
// valid terminal state and do not count.
func (s *MemoryStore) Participants(ctx context.Context, eventID string) int {
	ev := s.eventState(eventID, false)
	if ev == nil {
		return 0
	}
	ev.mu.RLock()
	defer ev.mu.RUnlock()

	n := 0
	for _, ranking := range ev.byAttendee {
		if len(ranking) > 0 {
			n++
		}
	}
	return n
}

// PruneNotRankable drops entries that left the rankable pool.
func (s *MemoryStore) PruneNotRankable(ctx context.Context, eventID string, rankable map[string]struct{}) int {
	ev := s.eventState(eventID, false)
	if ev == nil {
		return 0
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()

	dropped := 0
	for attendee, ranking := range ev.byAttendee {
		kept := ranking[:0:0]
		for _, id := range ranking {
			if _, ok := rankable[id]; ok {
				kept = append(kept, id)
			} else {
				dropped++
			}
		}
		if len(kept) != len(ranking) {
			ev.byAttendee[attendee] = kept
		}
	}
	return dropped
}

// DropEvent discards the event's lock domain and all rankings in it.
func (s *MemoryStore) DropEvent(ctx context.Context, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, eventID)
}

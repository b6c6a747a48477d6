package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

const testEvent = "event-1"

func TestAddDepthAndIdempotency(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := 0; i < 3; i++ {
		if err := s.Add(ctx, testEvent, "attendee-1", fmt.Sprintf("song-%d", i), 3); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	// Re-adding an already ranked song succeeds even at the depth cap.
	if err := s.Add(ctx, testEvent, "attendee-1", "song-0", 3); err != nil {
		t.Fatalf("idempotent re-add: %v", err)
	}

	err := s.Add(ctx, testEvent, "attendee-1", "song-3", 3)
	if !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("expected ErrDepthExceeded, got %v", err)
	}

	got := s.SnapshotAll(ctx, testEvent)["attendee-1"]
	want := []string{"song-0", "song-1", "song-2"}
	assertRanking(t, got, want)
}

func TestRemoveRenumbers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "attendee-1", "song-a", "song-b", "song-c")

	if err := s.Remove(ctx, testEvent, "attendee-1", "song-b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	assertRanking(t, s.SnapshotAll(ctx, testEvent)["attendee-1"], []string{"song-a", "song-c"})

	// Removing an absent song or from an unknown event is a no-op.
	if err := s.Remove(ctx, testEvent, "attendee-1", "song-ghost"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if err := s.Remove(ctx, "event-ghost", "attendee-1", "song-a"); err != nil {
		t.Fatalf("remove unknown event: %v", err)
	}
}

func TestReorderValidation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "attendee-1", "song-a", "song-b", "song-c")

	cases := []struct {
		name    string
		ordered []string
		wantErr bool
	}{
		{"valid permutation", []string{"song-c", "song-a", "song-b"}, false},
		{"too short", []string{"song-a", "song-b"}, true},
		{"too long", []string{"song-a", "song-b", "song-c", "song-d"}, true},
		{"foreign id", []string{"song-a", "song-b", "song-x"}, true},
		{"duplicate id", []string{"song-a", "song-a", "song-b"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Reorder(ctx, testEvent, "attendee-1", tc.ordered)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidPermutation) {
					t.Fatalf("expected ErrInvalidPermutation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("reorder: %v", err)
			}
			assertRanking(t, s.SnapshotAll(ctx, testEvent)["attendee-1"], tc.ordered)
		})
	}
}

func TestReorderUnknownEvent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Reorder(ctx, "event-ghost", "attendee-1", nil); err != nil {
		t.Fatalf("empty reorder on unknown event: %v", err)
	}
	err := s.Reorder(ctx, "event-ghost", "attendee-1", []string{"song-a"})
	if !errors.Is(err, ErrInvalidPermutation) {
		t.Fatalf("expected ErrInvalidPermutation, got %v", err)
	}
}

func TestParticipantsCountsNonEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "attendee-1", "song-a")
	seed(t, s, "attendee-2", "song-b")

	if got := s.Participants(ctx, testEvent); got != 2 {
		t.Fatalf("participants = %d, want 2", got)
	}

	// Emptying a ranking retires the attendee from the count but keeps
	// the row.
	if err := s.Remove(ctx, testEvent, "attendee-2", "song-b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := s.Participants(ctx, testEvent); got != 1 {
		t.Fatalf("participants after empty = %d, want 1", got)
	}
	if _, ok := s.SnapshotAll(ctx, testEvent)["attendee-2"]; !ok {
		t.Fatal("empty ranking row should survive")
	}
}

func TestPruneNotRankable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "attendee-1", "song-a", "song-b", "song-c")
	seed(t, s, "attendee-2", "song-b")

	rankable := map[string]struct{}{"song-a": {}, "song-c": {}}
	if dropped := s.PruneNotRankable(ctx, testEvent, rankable); dropped != 2 {
		t.Fatalf("dropped = %d, want 2", dropped)
	}

	snap := s.SnapshotAll(ctx, testEvent)
	assertRanking(t, snap["attendee-1"], []string{"song-a", "song-c"})
	assertRanking(t, snap["attendee-2"], []string{})
}

func TestDropEvent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "attendee-1", "song-a")

	s.DropEvent(ctx, testEvent)
	if got := s.Participants(ctx, testEvent); got != 0 {
		t.Fatalf("participants after drop = %d, want 0", got)
	}
	if snap := s.SnapshotAll(ctx, testEvent); len(snap) != 0 {
		t.Fatalf("snapshot after drop = %v, want empty", snap)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seed(t, s, "attendee-1", "song-a", "song-b")

	snap := s.SnapshotAll(ctx, testEvent)
	snap["attendee-1"][0] = "mutated"

	assertRanking(t, s.SnapshotAll(ctx, testEvent)["attendee-1"], []string{"song-a", "song-b"})
}

func TestConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const attendees = 16
	const songs = 8

	var wg sync.WaitGroup
	for a := 0; a < attendees; a++ {
		wg.Add(1)
		go func(a int) {
			defer wg.Done()
			attendee := fmt.Sprintf("attendee-%d", a)
			for i := 0; i < songs; i++ {
				if err := s.Add(ctx, testEvent, attendee, fmt.Sprintf("song-%d", i), songs); err != nil {
					t.Errorf("add: %v", err)
				}
			}
			_ = s.SnapshotAll(ctx, testEvent)
		}(a)
	}
	wg.Wait()

	if got := s.Participants(ctx, testEvent); got != attendees {
		t.Fatalf("participants = %d, want %d", got, attendees)
	}
	for attendee, ranking := range s.SnapshotAll(ctx, testEvent) {
		if len(ranking) != songs {
			t.Fatalf("%s has %d entries, want %d", attendee, len(ranking), songs)
		}
	}
}

func seed(t *testing.T, s *MemoryStore, attendeeID string, requestIDs ...string) {
	t.Helper()
	for _, id := range requestIDs {
		if err := s.Add(context.Background(), testEvent, attendeeID, id, 0); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func assertRanking(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("ranking = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ranking = %v, want %v", got, want)
		}
	}
}

// Package repository holds each attendee's ordered Top-N song list per event.
package repository

import "context"

// Store provides read/write access to attendee rankings. Mutations are
// atomic per (event, attendee) and never trigger recomputation themselves;
// the caller marks the event's snapshot stale after a successful mutation.
type Store interface {
	// Add appends requestID at the next free position of the attendee's
	// ranking. Adding an already-ranked request is an idempotent no-op.
	// Fails with ErrDepthExceeded once the ranking holds depth entries.
	Add(ctx context.Context, eventID, attendeeID, requestID string, depth int) error

	// Remove deletes requestID from the attendee's ranking and renumbers
	// the remaining positions contiguously. Absent IDs are a no-op.
	Remove(ctx context.Context, eventID, attendeeID, requestID string) error

	// Reorder reassigns positions to match orderedIDs, which must be an
	// exact permutation of the attendee's current ranking. Fails with
	// ErrInvalidPermutation on size mismatch, unknown ID, or duplicate.
	Reorder(ctx context.Context, eventID, attendeeID string, orderedIDs []string) error

	// SnapshotAll returns a deep copy of every attendee ranking for the
	// event, observed at a single consistent point in time.
	SnapshotAll(ctx context.Context, eventID string) map[string][]string

	// Participants counts distinct attendees with at least one ranked song.
	Participants(ctx context.Context, eventID string) int

	// PruneNotRankable drops entries whose request left the rankable pool
	// and renumbers survivors. Returns the number of entries dropped.
	PruneNotRankable(ctx context.Context, eventID string, rankable map[string]struct{}) int

	// DropEvent discards all ranking state for the event.
	DropEvent(ctx context.Context, eventID string)
}

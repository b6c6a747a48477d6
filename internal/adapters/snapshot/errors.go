package snapshot

import "errors"

// Sentinel kinds for snapshot cache errors.
var (
	// ErrNoSnapshot means no recomputation has completed for the event yet.
	ErrNoSnapshot = errors.New("no snapshot computed yet")
	// ErrDropped means the event was deleted while a recompute was in flight.
	ErrDropped = errors.New("event dropped during recompute")
)

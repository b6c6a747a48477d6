package repository

import "errors"

// Sentinel kinds for ranking mutations.
var (
	// ErrDepthExceeded rejects an add once the attendee's list is full.
	ErrDepthExceeded = errors.New("ranking depth exceeded")
	// ErrNotRankable rejects requests outside the pending/queued pool.
	ErrNotRankable = errors.New("request is not rankable")
	// ErrInvalidPermutation rejects a reorder that is not an exact
	// permutation of the attendee's current ranking.
	ErrInvalidPermutation = errors.New("invalid ranking permutation")
	// ErrUnknownRequest rejects references to requests the event does not know.
	ErrUnknownRequest = errors.New("unknown request")
)

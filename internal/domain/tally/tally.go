// Package tally builds head-to-head win/loss counts between every pair of
// rankable requests from the current set of attendee rankings.
package tally

// Pair is an unordered pair of request IDs, normalized so A < B.
type Pair struct {
	A string
	B string
}

// MakePair normalizes two request IDs into a Pair key.
func MakePair(x, y string) Pair {
	if x < y {
		return Pair{A: x, B: y}
	}
	return Pair{A: y, B: x}
}

// Record holds the head-to-head outcome counts for one pair.
// Ties stays zero: each attendee's ranking is a total order, so one side
// of every compared pair always wins that attendee's vote.
type Record struct {
	WinsA int
	WinsB int
	Ties  int
}

// Votes is the number of attendees who expressed an opinion on the pair.
func (r Record) Votes() int {
	return r.WinsA + r.WinsB + r.Ties
}

// Tally is the aggregate pairwise state for one event at one point in time.
// It is built fresh on every recomputation from a consistent copy of all
// rankings and is never mutated concurrently with writes.
type Tally struct {
	// Records maps each compared pair to its outcome counts. Pairs no
	// attendee voted on are absent.
	Records map[Pair]Record

	// RankerCount maps request ID to the number of distinct attendees
	// whose ranking includes it. Mode-independent.
	RankerCount map[string]int
}

// Build folds all attendee rankings into a Tally. For every attendee whose
// ranking contains both members of a pair, the one at the lower position
// wins that attendee's vote. An attendee ranking only one member of a pair
// casts no vote on it; absent songs carry no implicit preference.
//
// Entries outside the rankable set are skipped. Rankings are expected to be
// pruned on the same cycle, but the status pool can move between the prune
// and the build.
func Build(rankable []string, rankings map[string][]string) *Tally {
	eligible := make(map[string]struct{}, len(rankable))
	for _, id := range rankable {
		eligible[id] = struct{}{}
	}

	t := &Tally{
		Records:     make(map[Pair]Record),
		RankerCount: make(map[string]int),
	}

	for _, ranking := range rankings {
		// Keep only rankable entries, preserving relative order.
		ranked := make([]string, 0, len(ranking))
		for _, id := range ranking {
			if _, ok := eligible[id]; ok {
				ranked = append(ranked, id)
			}
		}

		for _, id := range ranked {
			t.RankerCount[id]++
		}

		// Lower index means more wanted; ranked[i] beats ranked[j] for i < j.
		for i := 0; i < len(ranked); i++ {
			for j := i + 1; j < len(ranked); j++ {
				p := MakePair(ranked[i], ranked[j])
				rec := t.Records[p]
				if p.A == ranked[i] {
					rec.WinsA++
				} else {
					rec.WinsB++
				}
				t.Records[p] = rec
			}
		}
	}

	return t
}

// Outcome sums a request's wins and losses across every pair it was
// compared in. Returns zeros for a request no attendee compared.
func (t *Tally) Outcome(requestID string) (wins, losses int) {
	for p, rec := range t.Records {
		switch requestID {
		case p.A:
			wins += rec.WinsA
			losses += rec.WinsB
		case p.B:
			wins += rec.WinsB
			losses += rec.WinsA
		}
	}
	return wins, losses
}

package simulate

import (
	"fmt"

	"github.com/okian/encore/internal/domain/model"
)

// Verify checks a served ranking view against the engine's structural
// invariants: both orderings cover the same request set, ranks are a
// 1..n permutation, win rates stay within [0,1], the activation flag
// matches the participant quorum, and every flagged hidden gem also
// appears in the gem list.
func Verify(view *model.RankingView) error {
	if err := verifyOrdering("consensus", view.Consensus); err != nil {
		return err
	}
	if err := verifyOrdering("discovery", view.Discovery); err != nil {
		return err
	}

	// Discovery orders by win rate and the simulator never sets manual
	// locks, so the served order is the computed one: the reported rate
	// must never rise from one position to the next.
	for i := 1; i < len(view.Discovery); i++ {
		if view.Discovery[i].WinRate > view.Discovery[i-1].WinRate {
			return fmt.Errorf("discovery: win rate rises at position %d (%f after %f)",
				i+1, view.Discovery[i].WinRate, view.Discovery[i-1].WinRate)
		}
	}

	if len(view.Consensus) != len(view.Discovery) {
		return fmt.Errorf("ordering size mismatch: consensus %d vs discovery %d",
			len(view.Consensus), len(view.Discovery))
	}
	seen := make(map[string]struct{}, len(view.Consensus))
	for _, e := range view.Consensus {
		seen[e.RequestID] = struct{}{}
	}
	for _, e := range view.Discovery {
		if _, ok := seen[e.RequestID]; !ok {
			return fmt.Errorf("request %s present in discovery but not consensus", e.RequestID)
		}
	}

	wantActivated := view.TotalParticipants >= view.MinParticipants
	if view.Activated != wantActivated {
		return fmt.Errorf("activation flag %v inconsistent with %d/%d participants",
			view.Activated, view.TotalParticipants, view.MinParticipants)
	}

	gems := make(map[string]struct{}, len(view.HiddenGems))
	for _, g := range view.HiddenGems {
		gems[g.RequestID] = struct{}{}
	}
	for _, e := range view.Discovery {
		if e.IsHiddenGem {
			if _, ok := gems[e.RequestID]; !ok {
				return fmt.Errorf("request %s flagged as gem but missing from gem list", e.RequestID)
			}
		}
	}
	return nil
}

// verifyOrdering checks one served ordering for positional integrity.
func verifyOrdering(name string, entries []model.DisplayEntry) error {
	ranks := make(map[int]struct{}, len(entries))
	ids := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.Position != i+1 {
			return fmt.Errorf("%s: entry %d has position %d", name, i, e.Position)
		}
		if e.Rank < 1 || e.Rank > len(entries) {
			return fmt.Errorf("%s: request %s has rank %d out of range", name, e.RequestID, e.Rank)
		}
		if _, dup := ranks[e.Rank]; dup {
			return fmt.Errorf("%s: duplicate rank %d", name, e.Rank)
		}
		ranks[e.Rank] = struct{}{}
		if _, dup := ids[e.RequestID]; dup {
			return fmt.Errorf("%s: duplicate request %s", name, e.RequestID)
		}
		ids[e.RequestID] = struct{}{}
		if e.WinRate < 0 || e.WinRate > 1 {
			return fmt.Errorf("%s: request %s has win rate %f out of range", name, e.RequestID, e.WinRate)
		}
	}
	return nil
}

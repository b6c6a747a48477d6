// Package override merges DJ-pinned positions over a computed ordering at
// serve time, so locks take effect without forcing a recompute.
package override

import (
	"sort"

	"github.com/okian/encore/internal/domain/model"
)

// Lock pins one request to an exact 1-based display slot.
type Lock struct {
	RequestID string
	Order     int
}

// Merge lays locked requests into their exact slots and fills the
// remaining slots with unlocked requests in their computed order.
//
// Locks must be supplied oldest-set first: when two locks claim the same
// slot, the most recently set one wins and the displaced request flows
// back into computed order. Locks referencing requests absent from the
// entries are ignored; locked slots beyond the list length are appended
// at the tail in slot order.
func Merge(entries []model.ScoreEntry, locks []Lock) []model.DisplayEntry {
	known := make(map[string]int, len(entries))
	for i := range entries {
		known[entries[i].RequestID] = i
	}

	// Last writer wins a contested slot.
	slotWinner := make(map[int]string)
	orderOf := make(map[string]int)
	for _, l := range locks {
		if l.Order < 1 {
			continue
		}
		if _, ok := known[l.RequestID]; !ok {
			continue
		}
		if prev, taken := slotWinner[l.Order]; taken {
			delete(orderOf, prev)
		}
		slotWinner[l.Order] = l.RequestID
		orderOf[l.RequestID] = l.Order
	}

	n := len(entries)
	placed := make([]string, n+1) // 1-based slots
	overflow := make([]int, 0)
	for slot, id := range slotWinner {
		if _, stillLocked := orderOf[id]; !stillLocked {
			continue
		}
		if slot <= n {
			placed[slot] = id
		} else {
			overflow = append(overflow, slot)
		}
	}
	sort.Ints(overflow)

	out := make([]model.DisplayEntry, 0, n)
	emit := func(id string, position int) {
		e := entries[known[id]]
		if ord, ok := orderOf[id]; ok {
			o := ord
			e.ManualOrder = &o
		}
		out = append(out, model.DisplayEntry{ScoreEntry: e, Position: position})
	}

	next := 0 // index into entries for the unlocked flow
	for slot := 1; slot <= n; slot++ {
		if id := placed[slot]; id != "" {
			emit(id, slot)
			continue
		}
		for next < n {
			id := entries[next].RequestID
			next++
			if _, locked := orderOf[id]; !locked {
				emit(id, slot)
				break
			}
		}
	}

	// Locks pointing past the end keep their relative slot order at the tail.
	for _, slot := range overflow {
		emit(slotWinner[slot], len(out)+1)
	}

	return out
}

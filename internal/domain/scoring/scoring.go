// Package scoring derives the Consensus and Discovery orderings from a
// pairwise tally, flags hidden gems, and gates activation on quorum.
package scoring

import (
	"math"
	"sort"

	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/internal/domain/tally"
)

// Default detector configuration constants.
const (
	// defaultGapThreshold is the minimum consensusRank-discoveryRank gap
	// for a hidden gem when the event does not configure one.
	defaultGapThreshold = 3
	// defaultHalfFraction is the share of the Discovery ordering counted
	// as its "better half".
	defaultHalfFraction = 0.5

	// neverComparedRate sorts never-compared requests after every request
	// with at least one comparison. Reported win rate stays zero.
	neverComparedRate = -1.0
)

// Option applies a configuration option to the Computer.
type Option func(*Computer)

// WithGapThreshold sets the fallback hidden-gem rank gap used when an
// event does not configure its own.
func WithGapThreshold(gap int) Option {
	return func(c *Computer) {
		if gap > 0 {
			c.gapThreshold = gap
		}
	}
}

// WithHalfFraction sets the Discovery better-half split fraction.
func WithHalfFraction(f float64) Option {
	return func(c *Computer) {
		if f > 0 && f <= 1 {
			c.halfFraction = f
		}
	}
}

// Computer turns a tally into the two competing orderings. It is pure and
// safe for concurrent use.
type Computer struct {
	gapThreshold int
	halfFraction float64
}

// NewComputer creates a Computer with default configuration.
func NewComputer(opts ...Option) *Computer {
	c := &Computer{
		gapThreshold: defaultGapThreshold,
		halfFraction: defaultHalfFraction,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// aggregate is the per-request material both sort orders draw from.
type aggregate struct {
	requestID   string
	wins        int
	losses      int
	copeland    int
	winRate     float64 // zero when never compared
	sortRate    float64 // neverComparedRate when never compared
	rankerCount int
}

// Compute returns the Consensus and Discovery orderings for the rankable
// set. Both are total orders: deterministic tie-breaks guarantee no two
// entries share a rank.
//
// Consensus: copeland desc, rankerCount desc, requestID asc.
// Discovery: winRate desc (never-compared last), rankerCount desc,
// copeland desc, requestID asc.
func (c *Computer) Compute(rankable []string, t *tally.Tally) (consensus, discovery []model.ScoreEntry) {
	aggs := make(map[string]*aggregate, len(rankable))
	for _, id := range rankable {
		aggs[id] = &aggregate{
			requestID:   id,
			sortRate:    neverComparedRate,
			rankerCount: t.RankerCount[id],
		}
	}

	for p, rec := range t.Records {
		if a, ok := aggs[p.A]; ok {
			a.wins += rec.WinsA
			a.losses += rec.WinsB
		}
		if b, ok := aggs[p.B]; ok {
			b.wins += rec.WinsB
			b.losses += rec.WinsA
		}
	}

	ordered := make([]*aggregate, 0, len(aggs))
	for _, a := range aggs {
		a.copeland = a.wins - a.losses
		if compared := a.wins + a.losses; compared > 0 {
			a.winRate = float64(a.wins) / float64(compared)
			a.sortRate = a.winRate
		}
		ordered = append(ordered, a)
	}

	sort.Slice(ordered, func(i, j int) bool { return lessConsensus(ordered[i], ordered[j]) })
	consensus = toEntries(ordered)

	sort.Slice(ordered, func(i, j int) bool { return lessDiscovery(ordered[i], ordered[j]) })
	discovery = toEntries(ordered)

	return consensus, discovery
}

func lessConsensus(a, b *aggregate) bool {
	if a.copeland != b.copeland {
		return a.copeland > b.copeland
	}
	if a.rankerCount != b.rankerCount {
		return a.rankerCount > b.rankerCount
	}
	return a.requestID < b.requestID
}

func lessDiscovery(a, b *aggregate) bool {
	if a.sortRate != b.sortRate {
		return a.sortRate > b.sortRate
	}
	if a.rankerCount != b.rankerCount {
		return a.rankerCount > b.rankerCount
	}
	if a.copeland != b.copeland {
		return a.copeland > b.copeland
	}
	return a.requestID < b.requestID
}

func toEntries(ordered []*aggregate) []model.ScoreEntry {
	entries := make([]model.ScoreEntry, len(ordered))
	for i, a := range ordered {
		entries[i] = model.ScoreEntry{
			RequestID:   a.requestID,
			Rank:        i + 1,
			WinRate:     a.winRate,
			RankerCount: a.rankerCount,
			Copeland:    a.copeland,
		}
	}
	return entries
}

// DetectHiddenGems cross-references the two orderings and returns the
// requests that sit in the better half of Discovery while trailing in
// Consensus by at least gapThreshold ranks. Results are ordered biggest
// gap first; matching entries in both input slices get IsHiddenGem set.
// A non-positive gapThreshold falls back to the configured default.
func (c *Computer) DetectHiddenGems(consensus, discovery []model.ScoreEntry, gapThreshold int) []model.HiddenGemEntry {
	if gapThreshold <= 0 {
		gapThreshold = c.gapThreshold
	}

	consensusByID := make(map[string]*model.ScoreEntry, len(consensus))
	for i := range consensus {
		consensusByID[consensus[i].RequestID] = &consensus[i]
	}

	betterHalf := int(math.Ceil(float64(len(discovery)) * c.halfFraction))

	var gems []model.HiddenGemEntry
	for i := range discovery {
		d := &discovery[i]
		if d.Rank > betterHalf || d.RankerCount < 1 {
			continue
		}
		cons, ok := consensusByID[d.RequestID]
		if !ok {
			continue
		}
		if cons.Rank-d.Rank < gapThreshold {
			continue
		}
		d.IsHiddenGem = true
		cons.IsHiddenGem = true
		gems = append(gems, model.HiddenGemEntry{
			RequestID:        d.RequestID,
			DiscoveryRank:    d.Rank,
			DiscoveryWinRate: d.WinRate,
			ConsensusRank:    cons.Rank,
			ConsensusWinRate: cons.WinRate,
			RankerCount:      d.RankerCount,
		})
	}

	sort.Slice(gems, func(i, j int) bool {
		gi := gems[i].ConsensusRank - gems[i].DiscoveryRank
		gj := gems[j].ConsensusRank - gems[j].DiscoveryRank
		if gi != gj {
			return gi > gj
		}
		return gems[i].RequestID < gems[j].RequestID
	})

	return gems
}

// Activated reports whether the aggregated ordering is authoritative for
// the given participation level. Below quorum the snapshot still carries
// computed scores so the DJ can preview the post-quorum order.
func Activated(totalParticipants, minParticipants int) bool {
	return totalParticipants >= minParticipants
}

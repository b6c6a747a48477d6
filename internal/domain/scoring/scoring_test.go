package scoring_test

import (
	"fmt"
	"testing"

	"github.com/okian/encore/internal/domain/model"
	scoring "github.com/okian/encore/internal/domain/scoring"
	tally "github.com/okian/encore/internal/domain/tally"
	. "github.com/smartystreets/goconvey/convey"
)

func TestComputer_Compute(t *testing.T) {
	Convey("Given the three-attendee, three-song crowd", t, func() {
		computer := scoring.NewComputer()
		rankable := []string{"songA", "songB", "songC"}
		tl := tally.Build(rankable, map[string][]string{
			"attendee-1": {"songA", "songB", "songC"},
			"attendee-2": {"songB", "songA", "songC"},
			"attendee-3": {"songA", "songC", "songB"},
		})

		Convey("When both orderings are computed", func() {
			consensus, discovery := computer.Compute(rankable, tl)

			Convey("Then consensus orders by net pairwise wins", func() {
				So(len(consensus), ShouldEqual, 3)
				So(consensus[0].RequestID, ShouldEqual, "songA")
				So(consensus[1].RequestID, ShouldEqual, "songB")
				So(consensus[2].RequestID, ShouldEqual, "songC")
				So(consensus[0].Copeland, ShouldEqual, 4)
				So(consensus[1].Copeland, ShouldEqual, 0)
				So(consensus[2].Copeland, ShouldEqual, -4)
			})

			Convey("Then win rates come out of six comparisons each", func() {
				So(consensus[0].WinRate, ShouldAlmostEqual, 5.0/6.0, 1e-9)
				So(consensus[1].WinRate, ShouldAlmostEqual, 0.5, 1e-9)
				So(consensus[2].WinRate, ShouldAlmostEqual, 1.0/6.0, 1e-9)
			})

			Convey("Then ranks are a 1..n permutation in both orderings", func() {
				for i, e := range consensus {
					So(e.Rank, ShouldEqual, i+1)
				}
				for i, e := range discovery {
					So(e.Rank, ShouldEqual, i+1)
				}
			})

			Convey("Then discovery agrees with consensus for this crowd", func() {
				So(discovery[0].RequestID, ShouldEqual, "songA")
				So(discovery[1].RequestID, ShouldEqual, "songB")
				So(discovery[2].RequestID, ShouldEqual, "songC")
			})
		})
	})

	Convey("Given a copeland tie", t, func() {
		computer := scoring.NewComputer()

		Convey("When ranker counts differ", func() {
			// songB is ranked by two attendees, songA by one; neither is
			// ever compared against the other so both sit at copeland 0.
			rankable := []string{"songA", "songB"}
			tl := tally.Build(rankable, map[string][]string{
				"attendee-1": {"songA"},
				"attendee-2": {"songB"},
				"attendee-3": {"songB"},
			})
			consensus, _ := computer.Compute(rankable, tl)

			Convey("Then the higher ranker count wins the tie", func() {
				So(consensus[0].RequestID, ShouldEqual, "songB")
				So(consensus[1].RequestID, ShouldEqual, "songA")
			})
		})

		Convey("When ranker counts tie as well", func() {
			rankable := []string{"songZ", "songY"}
			tl := tally.Build(rankable, nil)
			consensus, discovery := computer.Compute(rankable, tl)

			Convey("Then the lexically smaller ID ranks first in both orderings", func() {
				So(consensus[0].RequestID, ShouldEqual, "songY")
				So(discovery[0].RequestID, ShouldEqual, "songY")
			})
		})
	})

	Convey("Given a never-compared song alongside compared ones", t, func() {
		computer := scoring.NewComputer()
		rankable := []string{"songA", "songB", "songLoner"}
		tl := tally.Build(rankable, map[string][]string{
			"attendee-1": {"songB", "songA"},
			"attendee-2": {"songLoner"},
		})

		Convey("When discovery is computed", func() {
			_, discovery := computer.Compute(rankable, tl)

			Convey("Then the never-compared song sorts after every compared one", func() {
				So(discovery[len(discovery)-1].RequestID, ShouldEqual, "songLoner")
			})

			Convey("Then its reported win rate is zero, not a sentinel", func() {
				So(discovery[len(discovery)-1].WinRate, ShouldEqual, 0.0)
			})

			Convey("Then a loser with comparisons still outranks it", func() {
				// songA lost its only comparison; win rate 0 but it was
				// compared, so it precedes the loner.
				So(discovery[1].RequestID, ShouldEqual, "songA")
			})
		})
	})

	Convey("Given an empty rankable set", t, func() {
		computer := scoring.NewComputer()
		consensus, discovery := computer.Compute(nil, tally.Build(nil, nil))

		Convey("Then both orderings are empty", func() {
			So(len(consensus), ShouldEqual, 0)
			So(len(discovery), ShouldEqual, 0)
		})
	})
}

func TestComputer_DiscoveryWinRateNeverRises(t *testing.T) {
	Convey("Given a larger crowd with partial, overlapping ballots", t, func() {
		computer := scoring.NewComputer()

		rankable := make([]string, 12)
		for i := range rankable {
			rankable[i] = fmt.Sprintf("song-%02d", i)
		}
		// Deterministic ballots of uneven depth; some songs are popular,
		// some appear on a single ballot, and song-11 is never ranked.
		ballots := make(map[string][]string)
		for a := 0; a < 9; a++ {
			depth := 2 + a%4
			ballot := make([]string, 0, depth)
			for j := 0; j < depth; j++ {
				ballot = append(ballot, rankable[(a*3+j*5)%11])
			}
			ballots[fmt.Sprintf("attendee-%d", a)] = ballot
		}
		tl := tally.Build(rankable, ballots)

		Convey("When discovery is computed", func() {
			_, discovery := computer.Compute(rankable, tl)

			Convey("Then reported win rates never rise down the ordering", func() {
				So(len(discovery), ShouldEqual, len(rankable))
				for i := 1; i < len(discovery); i++ {
					So(discovery[i].WinRate, ShouldBeLessThanOrEqualTo, discovery[i-1].WinRate)
				}
			})

			Convey("Then the never-ranked song reports a zero rate", func() {
				So(discovery[len(discovery)-1].WinRate, ShouldEqual, 0.0)
			})
		})
	})
}

func TestComputer_DetectHiddenGems(t *testing.T) {
	Convey("Given a song beloved by few but unknown to most", t, func() {
		computer := scoring.NewComputer()

		consensus := []model.ScoreEntry{
			{RequestID: "songA", Rank: 1, RankerCount: 10},
			{RequestID: "songB", Rank: 2, RankerCount: 9},
			{RequestID: "songC", Rank: 3, RankerCount: 8},
			{RequestID: "songD", Rank: 4, RankerCount: 7},
			{RequestID: "songGem", Rank: 5, RankerCount: 2, WinRate: 0.4},
			{RequestID: "songE", Rank: 6, RankerCount: 6},
		}
		discovery := []model.ScoreEntry{
			{RequestID: "songGem", Rank: 1, RankerCount: 2, WinRate: 1.0},
			{RequestID: "songA", Rank: 2, RankerCount: 10},
			{RequestID: "songB", Rank: 3, RankerCount: 9},
			{RequestID: "songC", Rank: 4, RankerCount: 8},
			{RequestID: "songD", Rank: 5, RankerCount: 7},
			{RequestID: "songE", Rank: 6, RankerCount: 6},
		}

		Convey("When gems are detected with the default gap", func() {
			gems := computer.DetectHiddenGems(consensus, discovery, 0)

			Convey("Then the gem is reported with both standings", func() {
				So(len(gems), ShouldEqual, 1)
				So(gems[0].RequestID, ShouldEqual, "songGem")
				So(gems[0].DiscoveryRank, ShouldEqual, 1)
				So(gems[0].ConsensusRank, ShouldEqual, 5)
				So(gems[0].RankerCount, ShouldEqual, 2)
			})

			Convey("Then both input orderings get the flag set", func() {
				So(discovery[0].IsHiddenGem, ShouldBeTrue)
				So(consensus[4].IsHiddenGem, ShouldBeTrue)
				So(consensus[0].IsHiddenGem, ShouldBeFalse)
			})
		})

		Convey("When the gap threshold exceeds the gem's gap", func() {
			gems := computer.DetectHiddenGems(consensus, discovery, 5)

			Convey("Then nothing qualifies", func() {
				So(len(gems), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a strong song outside discovery's better half", t, func() {
		computer := scoring.NewComputer()
		consensus := []model.ScoreEntry{
			{RequestID: "songA", Rank: 1},
			{RequestID: "songB", Rank: 2},
			{RequestID: "songC", Rank: 3},
			{RequestID: "songLate", Rank: 4, RankerCount: 1},
		}
		discovery := []model.ScoreEntry{
			{RequestID: "songA", Rank: 1},
			{RequestID: "songB", Rank: 2},
			{RequestID: "songC", Rank: 3},
			{RequestID: "songLate", Rank: 4, RankerCount: 1},
		}

		Convey("When gems are detected", func() {
			gems := computer.DetectHiddenGems(consensus, discovery, 1)

			Convey("Then rank 4 of 4 is past the ceil(n/2) cut and excluded", func() {
				So(len(gems), ShouldEqual, 0)
			})
		})
	})

	Convey("Given multiple gems", t, func() {
		computer := scoring.NewComputer()
		consensus := []model.ScoreEntry{
			{RequestID: "songX", Rank: 1},
			{RequestID: "songSmall", Rank: 5, RankerCount: 1},
			{RequestID: "songBig", Rank: 9, RankerCount: 1},
		}
		discovery := []model.ScoreEntry{
			{RequestID: "songBig", Rank: 1, RankerCount: 1},
			{RequestID: "songSmall", Rank: 2, RankerCount: 1},
			{RequestID: "songX", Rank: 3},
			{Rank: 4}, {Rank: 5}, {Rank: 6},
		}

		Convey("When gems are detected", func() {
			gems := computer.DetectHiddenGems(consensus, discovery, 3)

			Convey("Then results are ordered biggest gap first", func() {
				So(len(gems), ShouldEqual, 2)
				So(gems[0].RequestID, ShouldEqual, "songBig")
				So(gems[1].RequestID, ShouldEqual, "songSmall")
			})
		})
	})
}

func TestActivated(t *testing.T) {
	Convey("Given a quorum of three participants", t, func() {
		Convey("Then one below quorum is not activated", func() {
			So(scoring.Activated(2, 3), ShouldBeFalse)
		})
		Convey("Then exactly at quorum is activated", func() {
			So(scoring.Activated(3, 3), ShouldBeTrue)
		})
		Convey("Then above quorum stays activated", func() {
			So(scoring.Activated(10, 3), ShouldBeTrue)
		})
	})
}

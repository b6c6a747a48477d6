package override_test

import (
	"testing"

	"github.com/okian/encore/internal/domain/model"
	override "github.com/okian/encore/internal/domain/override"
	. "github.com/smartystreets/goconvey/convey"
)

func entries(ids ...string) []model.ScoreEntry {
	out := make([]model.ScoreEntry, len(ids))
	for i, id := range ids {
		out[i] = model.ScoreEntry{RequestID: id, Rank: i + 1}
	}
	return out
}

func served(out []model.DisplayEntry) []string {
	ids := make([]string, len(out))
	for i, e := range out {
		ids[i] = e.RequestID
	}
	return ids
}

func TestMerge(t *testing.T) {
	Convey("Given a computed ordering of four songs", t, func() {
		base := entries("songA", "songB", "songC", "songD")

		Convey("When no locks exist", func() {
			out := override.Merge(base, nil)

			Convey("Then the computed order is served unchanged", func() {
				So(served(out), ShouldResemble, []string{"songA", "songB", "songC", "songD"})
				for i, e := range out {
					So(e.Position, ShouldEqual, i+1)
					So(e.ManualOrder, ShouldBeNil)
				}
			})
		})

		Convey("When the DJ pins the last song to slot one", func() {
			out := override.Merge(base, []override.Lock{{RequestID: "songD", Order: 1}})

			Convey("Then the pinned song leads and the rest flow in order", func() {
				So(served(out), ShouldResemble, []string{"songD", "songA", "songB", "songC"})
			})

			Convey("Then only the pinned entry carries a manual order", func() {
				So(out[0].ManualOrder, ShouldNotBeNil)
				So(*out[0].ManualOrder, ShouldEqual, 1)
				So(out[1].ManualOrder, ShouldBeNil)
			})
		})

		Convey("When a mid-list slot is pinned", func() {
			out := override.Merge(base, []override.Lock{{RequestID: "songA", Order: 3}})

			Convey("Then the flow skips over the locked song", func() {
				So(served(out), ShouldResemble, []string{"songB", "songC", "songA", "songD"})
			})
		})

		Convey("When two locks claim the same slot", func() {
			out := override.Merge(base, []override.Lock{
				{RequestID: "songC", Order: 1},
				{RequestID: "songD", Order: 1},
			})

			Convey("Then the most recently set lock wins", func() {
				So(served(out)[0], ShouldEqual, "songD")
			})

			Convey("Then the displaced song rejoins the computed flow unpinned", func() {
				So(served(out), ShouldResemble, []string{"songD", "songA", "songB", "songC"})
				So(out[3].ManualOrder, ShouldBeNil)
			})
		})

		Convey("When a lock points past the end of the list", func() {
			out := override.Merge(base, []override.Lock{{RequestID: "songB", Order: 9}})

			Convey("Then the song is served at the tail and positions stay contiguous", func() {
				So(served(out), ShouldResemble, []string{"songA", "songC", "songD", "songB"})
				for i, e := range out {
					So(e.Position, ShouldEqual, i+1)
				}
				So(*out[3].ManualOrder, ShouldEqual, 9)
			})
		})

		Convey("When a lock references an unknown request", func() {
			out := override.Merge(base, []override.Lock{{RequestID: "songGhost", Order: 1}})

			Convey("Then it is ignored", func() {
				So(served(out), ShouldResemble, []string{"songA", "songB", "songC", "songD"})
			})
		})

		Convey("When several disjoint locks apply", func() {
			out := override.Merge(base, []override.Lock{
				{RequestID: "songD", Order: 1},
				{RequestID: "songA", Order: 4},
			})

			Convey("Then each lands in its slot and the rest fill between", func() {
				So(served(out), ShouldResemble, []string{"songD", "songB", "songC", "songA"})
			})
		})
	})

	Convey("Given an empty ordering", t, func() {
		out := override.Merge(nil, []override.Lock{{RequestID: "songA", Order: 1}})

		Convey("Then the merge yields nothing", func() {
			So(len(out), ShouldEqual, 0)
		})
	})
}

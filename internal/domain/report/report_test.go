package report_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/internal/domain/report"
	"github.com/okian/survivor/internal/domain/search"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAssemble(t *testing.T) {
	now := time.Date(2025, 10, 17, 9, 30, 0, 0, time.UTC)

	Convey("Given a locked prefix and two finalists", t, func() {
		prefix := []model.Pick{
			{Week: 2, Competitor: "DEN", Opponent: "IND", WinProb: 0.7},
			{Week: 1, Competitor: "PHI", Opponent: "DAL", WinProb: 0.8},
		}
		finalists := []model.ScoredPath{
			model.NewScoredPath([]model.Pick{
				{Week: 3, Competitor: "A", Opponent: "B", WinProb: 0.9},
				{Week: 4, Competitor: "C", Opponent: "D", WinProb: 0.8},
			}),
			model.NewScoredPath([]model.Pick{
				{Week: 3, Competitor: "A", Opponent: "B", WinProb: 0.9},
				{Week: 4, Competitor: "E", Opponent: "F", WinProb: 0.75},
			}),
		}

		Convey("When the result is assembled", func() {
			res, err := report.Assemble(prefix, finalists, now)
			So(err, ShouldBeNil)

			Convey("Then picks are chronological with the prefix first", func() {
				So(len(res.Picks), ShouldEqual, 4)
				weeks := []int{res.Picks[0].Week, res.Picks[1].Week, res.Picks[2].Week, res.Picks[3].Week}
				So(weeks, ShouldResemble, []int{1, 2, 3, 4})
				So(res.Picks[0].Competitor, ShouldEqual, "PHI")
				So(res.Best.Key, ShouldEqual, "3:A|4:C")
			})

			Convey("Then the prefix argument is not reordered", func() {
				So(prefix[0].Week, ShouldEqual, 2)
			})

			Convey("Then the report text follows the listing format", func() {
				want := "Top 2 Paths (generated at 2025-10-17 09:30:00):\n" +
					"Week 3: A over B (100% of paths, 90% to win)\n" +
					"Week 4: C over D (50% of paths, 80% to win), E over F (50% of paths, 75% to win)\n"
				So(res.Text, ShouldEqual, want)
			})
		})

		Convey("When there are no finalists", func() {
			_, err := report.Assemble(prefix, nil, now)

			Convey("Then no feasible path is reported", func() {
				So(errors.Is(err, search.ErrNoFeasiblePath), ShouldBeTrue)
			})
		})
	})
}

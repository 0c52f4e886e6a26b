package scoring_test

import (
	"testing"

	scoring "github.com/okian/rollbot/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// fixedRand always returns the same draw.
type fixedRand struct{ n int }

func (f fixedRand) IntN(int) int { return f.n }

func TestScorer_Tiers(t *testing.T) {
	Convey("Given a scorer with a ceiling of 1000", t, func() {
		scorer := scoring.NewScorer(scoring.WithMaxPopularity(1000), scoring.WithRand(fixedRand{n: 0}))

		cases := []struct {
			name       string
			popularity int
			want       int64
		}{
			{"base 1000 gets +10%", 1000, 1100},
			{"base 900 gets +10%", 900, 990},
			{"base 899 gets +12%", 899, 1007},
			{"base 700 gets +12%", 700, 784},
			{"base 600 gets +15%", 600, 690},
			{"base 500 gets +20%", 500, 600},
			{"base 300 gets +22%", 300, 366},
			{"base 299 gets +30%", 299, 389},
			{"base 200 gets +30%", 200, 260},
			{"base 100 gets +50%", 100, 150},
		}
		for _, tc := range cases {
			Convey("When "+tc.name, func() {
				got := scorer.Value(tc.popularity)

				Convey("Then the value matches the tier", func() {
					So(got, ShouldEqual, tc.want)
				})
			})
		}
	})
}

func TestScorer_RandomBranch(t *testing.T) {
	Convey("Given base values below 100", t, func() {
		Convey("When the random draw is the minimum", func() {
			scorer := scoring.NewScorer(scoring.WithMaxPopularity(1000), scoring.WithRand(fixedRand{n: 0}))

			Convey("Then value is twice base plus one", func() {
				So(scorer.Value(40), ShouldEqual, 81)
				So(scorer.Value(0), ShouldEqual, 1)
			})
		})

		Convey("When the random draw is the maximum", func() {
			scorer := scoring.NewScorer(scoring.WithMaxPopularity(1000), scoring.WithRand(fixedRand{n: 99}))

			Convey("Then value is twice base plus one hundred", func() {
				So(scorer.Value(99), ShouldEqual, 298)
			})
		})

		Convey("When the default random source is used", func() {
			scorer := scoring.NewScorer(scoring.WithMaxPopularity(1000))

			Convey("Then the value stays within the bounded range", func() {
				for i := 0; i < 200; i++ {
					v := scorer.Value(10)
					So(v, ShouldBeBetweenOrEqual, 21, 120)
				}
			})
		})
	})
}

func TestScorer_Rounding(t *testing.T) {
	Convey("Given the default ceiling", t, func() {
		scorer := scoring.NewScorer(scoring.WithRand(fixedRand{n: 0}))

		Convey("When popularity equals the ceiling", func() {
			Convey("Then base is 1000 and value 1100", func() {
				So(scorer.Base(scoring.DefaultMaxPopularity), ShouldEqual, 1000)
				So(scorer.Value(scoring.DefaultMaxPopularity), ShouldEqual, 1100)
			})
		})

		Convey("When the raw value lands on a half", func() {
			// base 105 -> 105 + 52.5 = 157.5
			s := scoring.NewScorer(scoring.WithMaxPopularity(2000))

			Convey("Then it rounds half up", func() {
				So(s.Value(210), ShouldEqual, 158)
			})
		})

		Convey("When popularity is a real catalog count", func() {
			// base = 12000*1000/32670 = 367.309..., boost 22% -> 448.117...
			Convey("Then the value is rounded to the nearest integer", func() {
				So(scorer.Value(12000), ShouldEqual, 448)
			})
		})

		Convey("When popularity is negative", func() {
			Convey("Then it is treated as zero", func() {
				So(scorer.Base(-5), ShouldEqual, 0)
			})
		})
	})
}

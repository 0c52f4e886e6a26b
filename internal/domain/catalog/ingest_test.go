package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/rollbot/internal/domain/catalog"
	"github.com/okian/rollbot/internal/domain/model"
	"github.com/okian/rollbot/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeFetcher serves canned pages and fails on failAt.
type fakeFetcher struct {
	pages    map[int]catalog.Page
	failAt   int
	requests []int
	perPage  int
}

func (f *fakeFetcher) FetchPage(_ context.Context, page, perPage int) (catalog.Page, error) {
	f.requests = append(f.requests, page)
	f.perPage = perPage
	if page == f.failAt {
		return catalog.Page{}, errors.New("502 bad gateway")
	}
	return f.pages[page], nil
}

type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

func threePages() map[int]catalog.Page {
	return map[int]catalog.Page{
		1: {HasNextPage: true, Records: []catalog.Record{
			{ID: 1, Name: "Levi", Gender: "Male", SourceTitle: "Shingeki no Kyojin", Popularity: 32670},
			{ID: 2, Name: "Mikasa", Gender: "Female", SourceTitle: "Shingeki no Kyojin", Popularity: 16335},
		}},
		2: {HasNextPage: true, Records: []catalog.Record{
			{ID: 3, Name: "Zoro", Gender: "Male", Popularity: 9801},
		}},
		3: {HasNextPage: false, Records: []catalog.Record{
			{ID: 4, Name: "Nami", Gender: "Female", Popularity: 0},
		}},
	}
}

func TestIngester_Run(t *testing.T) {
	Convey("Given an ingester over a three page source", t, func() {
		ctx := context.Background()
		c := catalog.New()
		fetcher := &fakeFetcher{pages: threePages()}
		flushes := 0
		ing := catalog.NewIngester(fetcher, scoring.NewScorer(scoring.WithRand(zeroRand{})), c,
			catalog.WithPageSize(2),
			catalog.WithFlush(func(context.Context) error { flushes++; return nil }),
		)

		Convey("When it runs from the first page", func() {
			res, err := ing.Run(ctx, 1)

			Convey("Then every page is ingested and flushed", func() {
				So(err, ShouldBeNil)
				So(res.Complete, ShouldBeTrue)
				So(res.Pages, ShouldEqual, 3)
				So(res.Added, ShouldEqual, 4)
				So(res.NextPage, ShouldEqual, 4)
				So(flushes, ShouldEqual, 3)
				So(fetcher.requests, ShouldResemble, []int{1, 2, 3})
				So(fetcher.perPage, ShouldEqual, 2)
			})

			Convey("Then records are scored and typed", func() {
				levi, _ := c.Get(1)
				So(levi.Value, ShouldEqual, 1100)
				So(levi.Gender, ShouldEqual, model.GenderMale)
				mikasa, _ := c.Get(2)
				So(mikasa.Value, ShouldEqual, 600)
				So(mikasa.Gender, ShouldEqual, model.GenderOther)
				zoro, _ := c.Get(3)
				So(zoro.Value, ShouldEqual, 366)
				nami, _ := c.Get(4)
				So(nami.Value, ShouldEqual, 1)
			})

			Convey("And it is resumed from an earlier page", func() {
				res, err := ing.Run(ctx, 2)

				Convey("Then re-fetched entities are skipped as duplicates", func() {
					So(err, ShouldBeNil)
					So(res.Added, ShouldEqual, 0)
					So(res.Duplicates, ShouldEqual, 2)
					So(c.Len(), ShouldEqual, 4)
				})
			})
		})

		Convey("When the source fails on the second page", func() {
			fetcher.failAt = 2
			res, err := ing.Run(ctx, 1)

			Convey("Then ingestion halts at the last good page", func() {
				So(errors.Is(err, catalog.ErrExternalFetch), ShouldBeTrue)
				So(res.Pages, ShouldEqual, 1)
				So(res.NextPage, ShouldEqual, 2)
				So(res.Complete, ShouldBeFalse)
				So(c.Len(), ShouldEqual, 2)
			})
		})

		Convey("When the flush hook fails", func() {
			failing := catalog.NewIngester(fetcher, scoring.NewScorer(), c,
				catalog.WithFlush(func(context.Context) error { return errors.New("disk full") }),
			)
			res, err := failing.Run(ctx, 1)

			Convey("Then ingestion still completes in memory", func() {
				So(err, ShouldBeNil)
				So(res.Complete, ShouldBeTrue)
				So(c.Len(), ShouldEqual, 4)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := ing.Run(cctx, 1)

			Convey("Then nothing is fetched", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(fetcher.requests, ShouldBeEmpty)
			})
		})
	})
}

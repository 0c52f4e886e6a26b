package anilist_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/rollbot/internal/adapters/anilist"
	"github.com/okian/rollbot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

const pageBody = `{"data":{"Page":{"pageInfo":{"hasNextPage":true},"characters":[
 {"id":89,"gender":"Male","name":{"full":"Levi"},"image":{"large":"https://img/89.png"},"favourites":12000,
  "media":{"nodes":[{"title":{"romaji":"Shingeki no Kyojin","english":"Attack on Titan"}}]}},
 {"id":40,"gender":null,"name":{"full":"Nami"},"image":{"large":"https://img/40.png"},"favourites":10,
  "media":{"nodes":[{"title":{"romaji":"","english":"One Piece"}}]}}
]}}}`

func TestFetchPage(t *testing.T) {
	Convey("Given an AniList-compatible server", t, func() {
		var calls atomic.Int32
		var mode atomic.Int32 // 0 ok, 1 fail once with 500, 2 graphql error, 3 bad request
		var lastVars atomic.Value

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)
			var req struct {
				Query     string         `json:"query"`
				Variables map[string]int `json:"variables"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			lastVars.Store(req.Variables)

			switch mode.Load() {
			case 1:
				if n == 1 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
			case 2:
				_, _ = w.Write([]byte(`{"errors":[{"message":"Invalid page"}],"data":null}`))
				return
			case 3:
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"errors":[{"message":"bad query"}]}`))
				return
			}
			_, _ = w.Write([]byte(pageBody))
		}))
		Reset(srv.Close)

		c := anilist.New(srv.URL, anilist.WithRetryInterval(time.Millisecond), anilist.WithMaxTries(3))
		ctx := context.Background()

		Convey("a page is decoded into records", func() {
			page, err := c.FetchPage(ctx, 201, 50)
			So(err, ShouldBeNil)
			So(page.HasNextPage, ShouldBeTrue)
			So(page.Records, ShouldHaveLength, 2)
			So(page.Records[0].ID, ShouldEqual, 89)
			So(page.Records[0].SourceTitle, ShouldEqual, "Shingeki no Kyojin")
			So(page.Records[0].Popularity, ShouldEqual, 12000)
			So(page.Records[1].Gender, ShouldEqual, "")
			So(page.Records[1].SourceTitle, ShouldEqual, "One Piece")
			So(lastVars.Load(), ShouldResemble, map[string]int{"page": 201, "perPage": 50})
		})

		Convey("a transient server error is retried", func() {
			mode.Store(1)
			_, err := c.FetchPage(ctx, 1, 50)
			So(err, ShouldBeNil)
			So(calls.Load(), ShouldEqual, 2)
		})

		Convey("GraphQL errors are reported", func() {
			mode.Store(2)
			_, err := c.FetchPage(ctx, 1, 50)
			So(err, ShouldWrap, anilist.ErrRemote)
		})

		Convey("client errors are not retried", func() {
			mode.Store(3)
			_, err := c.FetchPage(ctx, 1, 50)
			So(err, ShouldWrap, anilist.ErrRemote)
			So(calls.Load(), ShouldEqual, 1)
		})
	})
}

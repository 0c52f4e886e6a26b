// Package anilist fetches character pages from the AniList GraphQL API.
package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"

	"github.com/okian/rollbot/internal/domain/catalog"
	"github.com/okian/rollbot/pkg/logger"
)

// DefaultURL is the public GraphQL endpoint.
const DefaultURL = "https://graphql.anilist.co"

const charactersQuery = `query ($page: Int, $perPage: Int) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { hasNextPage }
    characters(sort: FAVOURITES_DESC) {
      id
      gender
      name { full }
      image { large }
      favourites
      media(perPage: 1) { nodes { title { romaji english } } }
    }
  }
}`

var (
	ErrBadResponse = errors.New("malformed catalog response")
	ErrRemote      = errors.New("catalog source returned an error")
)

// Client implements catalog.Fetcher.
type Client struct {
	url      string
	client   *http.Client
	maxTries uint
	backOff  func() backoff.BackOff
	log      logger.Logger
}

var _ catalog.Fetcher = (*Client)(nil)

// New creates a client for url. Empty url means DefaultURL.
func New(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:      url,
		client:   &http.Client{Timeout: 15 * time.Second},
		maxTries: 3,
		backOff:  func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		log:      logger.Named("anilist"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]int `json:"variables"`
}

// FetchPage requests one page of characters ordered by popularity.
func (c *Client) FetchPage(ctx context.Context, page, perPage int) (catalog.Page, error) {
	payload, err := json.Marshal(request{
		Query:     charactersQuery,
		Variables: map[string]int{"page": page, "perPage": perPage},
	})
	if err != nil {
		return catalog.Page{}, err
	}

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return c.do(ctx, payload)
	},
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		return catalog.Page{}, fmt.Errorf("page %d: %w", page, err)
	}
	return parsePage(body)
}

func (c *Client) do(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn(ctx, "catalog request failed", logger.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		// AniList rate limits at 90 req/min and says when to come back.
		if secs := resp.Header.Get("Retry-After"); secs != "" {
			var n int
			if _, scanErr := fmt.Sscanf(secs, "%d", &n); scanErr == nil && n > 0 {
				return nil, backoff.RetryAfter(n)
			}
		}
		return nil, fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode, gjson.GetBytes(body, "errors.0.message").String()))
	}
	return body, nil
}

func parsePage(body []byte) (catalog.Page, error) {
	if !gjson.ValidBytes(body) {
		return catalog.Page{}, ErrBadResponse
	}
	doc := gjson.ParseBytes(body)
	if msg := doc.Get("errors.0.message"); msg.Exists() {
		return catalog.Page{}, fmt.Errorf("%w: %s", ErrRemote, msg.String())
	}
	pg := doc.Get("data.Page")
	if !pg.Exists() {
		return catalog.Page{}, fmt.Errorf("%w: no data.Page", ErrBadResponse)
	}

	out := catalog.Page{HasNextPage: pg.Get("pageInfo.hasNextPage").Bool()}
	pg.Get("characters").ForEach(func(_, ch gjson.Result) bool {
		title := ch.Get("media.nodes.0.title.romaji").String()
		if title == "" {
			title = ch.Get("media.nodes.0.title.english").String()
		}
		out.Records = append(out.Records, catalog.Record{
			ID:          ch.Get("id").Int(),
			Name:        ch.Get("name.full").String(),
			ImageRef:    ch.Get("image.large").String(),
			Gender:      ch.Get("gender").String(),
			SourceTitle: title,
			Popularity:  int(ch.Get("favourites").Int()),
		})
		return true
	})
	return out, nil
}

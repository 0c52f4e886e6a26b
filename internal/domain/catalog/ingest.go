package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/rollbot/internal/domain/model"
	"github.com/okian/rollbot/internal/domain/scoring"
	"github.com/okian/rollbot/pkg/logger"
	"github.com/okian/rollbot/pkg/metrics"
)

const defaultPageSize = 50

// Record is a raw catalog record before scoring.
type Record struct {
	ID          int64
	Name        string
	ImageRef    string
	Gender      string
	SourceTitle string
	Popularity  int
}

// Page is one page of the catalog source.
type Page struct {
	HasNextPage bool
	Records     []Record
}

// Fetcher is the catalog-fetch collaborator.
type Fetcher interface {
	// FetchPage returns page number page (1-based) of perPage records.
	FetchPage(ctx context.Context, page, perPage int) (Page, error)
}

// IngestResult summarises an ingestion run. NextPage is where a resumed
// run should start.
type IngestResult struct {
	Pages      int
	Added      int
	Duplicates int
	NextPage   int
	Complete   bool
}

// Ingester drives a Fetcher page by page into a Catalog.
type Ingester struct {
	fetcher Fetcher
	scorer  *scoring.Scorer
	catalog *Catalog
	perPage int
	flush   func(ctx context.Context) error
	logger  logger.Logger
}

// NewIngester creates an ingester with configuration options.
func NewIngester(fetcher Fetcher, scorer *scoring.Scorer, catalog *Catalog, opts ...IngestOption) *Ingester {
	i := &Ingester{
		fetcher: fetcher,
		scorer:  scorer,
		catalog: catalog,
		perPage: defaultPageSize,
		logger:  logger.Get().Named("ingest"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Transform scores raw records into entities.
func (i *Ingester) Transform(records []Record) []model.Entity {
	out := make([]model.Entity, 0, len(records))
	for _, r := range records {
		out = append(out, model.Entity{
			ID:          r.ID,
			Name:        r.Name,
			ImageRef:    r.ImageRef,
			Gender:      model.ParseGender(r.Gender),
			SourceTitle: r.SourceTitle,
			Value:       i.scorer.Value(r.Popularity),
		})
	}
	return out
}

// Run ingests from startPage until the source reports no further pages.
// A fetch failure halts the run; the result's NextPage is the page to
// resume from and the error wraps ErrExternalFetch. A failed flush is
// logged and the run continues, since the in-memory catalog stays
// authoritative until a later save succeeds.
func (i *Ingester) Run(ctx context.Context, startPage int) (IngestResult, error) {
	if startPage < 1 {
		startPage = 1
	}
	res := IngestResult{NextPage: startPage}
	for page := startPage; ; page++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		fetched, err := i.fetcher.FetchPage(ctx, page, i.perPage)
		if err != nil {
			metrics.RecordIngestFailure()
			metrics.RecordErrorByComponent("ingest", "fetch")
			i.logger.Error(ctx, "catalog fetch failed, ingestion halted",
				logger.Int("next_page", page),
				logger.Int("added", res.Added),
				logger.Error(err),
			)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			return res, fmt.Errorf("%w: page %d: %v", ErrExternalFetch, page, err)
		}

		added, dupes, err := i.catalog.Append(ctx, i.Transform(fetched.Records)...)
		res.Added += added
		res.Duplicates += dupes
		if err != nil {
			return res, fmt.Errorf("append page %d: %w", page, err)
		}
		res.Pages++
		res.NextPage = page + 1
		metrics.RecordIngestPage(added, dupes)
		if dupes > 0 {
			i.logger.Warn(ctx, "skipped already ingested entities",
				logger.Int("page", page),
				logger.Int("duplicates", dupes),
			)
		}

		if i.flush != nil {
			if err := i.flush(ctx); err != nil {
				i.logger.Error(ctx, "flush after page failed", logger.Int("page", page), logger.Error(err))
			}
		}
		i.logger.Debug(ctx, "page ingested",
			logger.Int("page", page),
			logger.Int("added", added),
			logger.Int("catalog_size", i.catalog.Len()),
		)

		if !fetched.HasNextPage {
			res.Complete = true
			break
		}
	}
	i.logger.Info(ctx, "catalog ingestion finished",
		logger.Int("pages", res.Pages),
		logger.Int("added", res.Added),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("catalog_size", i.catalog.Len()),
	)
	return res, nil
}

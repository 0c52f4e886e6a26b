package catalog

import (
	"context"

	"github.com/okian/rollbot/internal/adapters/repository"
	"github.com/okian/rollbot/pkg/logger"
)

// Option applies a configuration option to the Catalog.
type Option func(*Catalog)

// WithIndex replaces the ranked index used by Top.
func WithIndex(index repository.Index) Option {
	return func(c *Catalog) {
		if index != nil {
			c.index = index
		}
	}
}

// IngestOption applies a configuration option to the Ingester.
type IngestOption func(*Ingester)

// WithPageSize sets the number of records requested per page.
func WithPageSize(n int) IngestOption {
	return func(i *Ingester) {
		if n > 0 {
			i.perPage = n
		}
	}
}

// WithFlush sets the hook run after every ingested page.
func WithFlush(flush func(ctx context.Context) error) IngestOption {
	return func(i *Ingester) {
		i.flush = flush
	}
}

// WithIngestLogger sets a custom logger for the ingester.
func WithIngestLogger(l logger.Logger) IngestOption {
	return func(i *Ingester) {
		if l != nil {
			i.logger = l
		}
	}
}

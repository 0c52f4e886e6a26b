// Package storage persists whole economy snapshots as two documents: one
// with ownership, balances and cooldowns, one with the catalog.
package storage

import (
	"context"
	"fmt"

	"github.com/okian/rollbot/internal/config"
	"github.com/okian/rollbot/internal/domain/model"
)

// Store loads and saves complete snapshots. There are no partial writes.
type Store interface {
	Load(ctx context.Context) (model.Snapshot, error)
	Save(ctx context.Context, snap model.Snapshot) error
	Close() error
}

// Open returns the store selected by cfg.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case config.StoreJSON:
		return NewJSONStore(cfg.DataDir)
	default:
		return nil, fmt.Errorf("%w: unknown store %q", ErrPersistence, cfg.Store)
	}
}

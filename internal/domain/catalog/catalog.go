// Package catalog holds the collectible entities and the paged ingestion
// that seeds them.
//
// Entities are immutable once scored. The catalog never deletes and
// ignores a second entity with an id it already holds.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/rollbot/internal/adapters/repository"
	"github.com/okian/rollbot/internal/domain/model"
	"github.com/okian/rollbot/pkg/metrics"
)

// Catalog is the in-memory entity list in ingestion order plus a ranked
// index for the Top Entities view.
type Catalog struct {
	mu       sync.RWMutex
	entities []model.Entity
	byID     map[int64]int // id -> position in entities
	index    repository.Index
}

// New creates an empty catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		byID:  make(map[int64]int),
		index: repository.NewTreapStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Append adds entities in order. It returns how many were new and how many
// were skipped because their id was already present.
func (c *Catalog) Append(ctx context.Context, entities ...model.Entity) (added, duplicates int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entities {
		if _, ok := c.byID[e.ID]; ok {
			duplicates++
			continue
		}
		if e.Value < 0 {
			e.Value = 0
		}
		if _, err := c.index.Insert(ctx, e.ID, e.Value); err != nil {
			return added, duplicates, fmt.Errorf("index entity %d: %w", e.ID, err)
		}
		c.byID[e.ID] = len(c.entities)
		c.entities = append(c.entities, e)
		added++
	}
	metrics.UpdateCatalogEntities(len(c.entities))
	return added, duplicates, nil
}

// Get returns the entity with id.
func (c *Catalog) Get(id int64) (model.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, ok := c.byID[id]
	if !ok {
		return model.Entity{}, false
	}
	return c.entities[pos], true
}

// Rank returns the 1-based Top Entities position of id.
func (c *Catalog) Rank(ctx context.Context, id int64) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, err := c.index.Rank(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("%w: id %d: %v", ErrNotFound, id, err)
	}
	return entry.Rank, nil
}

// All returns a copy of every entity in ingestion order.
func (c *Catalog) All() []model.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Entity, len(c.entities))
	copy(out, c.entities)
	return out
}

// Len returns the number of entities.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Count(context.Background())
}

// Unclaimed returns the entities for which owned returns false, in
// ingestion order.
func (c *Catalog) Unclaimed(owned func(id int64) bool) []model.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Entity, 0, len(c.entities))
	for _, e := range c.entities {
		if !owned(e.ID) {
			out = append(out, e)
		}
	}
	return out
}

// FindByName returns the first entity whose name equals q ignoring case,
// falling back to the first whose name contains q.
func (c *Catalog) FindByName(q string) (model.Entity, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return model.Entity{}, ErrEmptyQuery
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	partial := -1
	for i, e := range c.entities {
		name := strings.ToLower(e.Name)
		if name == q {
			return e, nil
		}
		if partial < 0 && strings.Contains(name, q) {
			partial = i
		}
	}
	if partial >= 0 {
		return c.entities[partial], nil
	}
	return model.Entity{}, fmt.Errorf("%w: %q", ErrNotFound, q)
}

// Top returns up to n entities by descending value. Equal values keep
// ingestion order.
func (c *Catalog) Top(ctx context.Context, n int) ([]model.Entity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entities) == 0 {
		return nil, nil
	}
	rows, err := c.index.TopN(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("top %d: %w", n, err)
	}
	out := make([]model.Entity, 0, len(rows))
	for _, r := range rows {
		out = append(out, c.entities[c.byID[r.EntityID]])
	}
	return out, nil
}

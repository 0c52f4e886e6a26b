package leaderboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/rollbot/internal/domain/ledger"
	"github.com/okian/rollbot/internal/domain/model"
	"github.com/okian/rollbot/internal/domain/types"
)

// EntitySource is the catalog side of the Top Entities view.
type EntitySource interface {
	Top(ctx context.Context, n int) ([]model.Entity, error)
}

// TopEntities returns the first n entities by descending value.
func TopEntities(ctx context.Context, src EntitySource, n int) ([]types.EntityRow, error) {
	entities, err := src.Top(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("top entities: %w", err)
	}
	rows := make([]types.EntityRow, len(entities))
	for i, e := range entities {
		rows[i] = types.EntityRow{
			Rank:        i + 1,
			EntityID:    e.ID,
			Name:        e.Name,
			SourceTitle: e.SourceTitle,
			ImageRef:    e.ImageRef,
			Value:       e.Value,
		}
	}
	return rows, nil
}

// TopUsers sums owned entity values per user and ranks descending.
// Users enter the list in the order of their lowest owned entity id, and
// the stable sort keeps that order among equal totals. Claims on entities
// missing from the catalog are ignored.
func TopUsers(claims []ledger.Claim, lookup func(id int64) (model.Entity, bool)) []types.UserRow {
	pos := make(map[string]int)
	rows := make([]types.UserRow, 0)
	for _, c := range claims {
		e, ok := lookup(c.EntityID)
		if !ok {
			continue
		}
		i, seen := pos[c.UserID]
		if !seen {
			i = len(rows)
			pos[c.UserID] = i
			rows = append(rows, types.UserRow{UserID: c.UserID})
		}
		rows[i].Total += e.Value
		rows[i].Owned++
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Total > rows[j].Total })
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// Package repository holds the ranked index behind the Top Entities view.
package repository

import "context"

// Entry is one ranked row. Rank is the 1-based position.
type Entry struct {
	Rank     int
	EntityID int64
	Value    int64
}

// Index keeps entity ids ordered by value desc, then insertion order asc.
type Index interface {
	// Insert adds id with value. Values are frozen, so a known id is left
	// untouched and Insert returns false.
	Insert(ctx context.Context, id int64, value int64) (bool, error)

	// Rank returns the position of id. Returns ErrNotFound if unknown.
	Rank(ctx context.Context, id int64) (Entry, error)

	// TopN returns the first n entries in rank order.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of indexed ids.
	Count(ctx context.Context) int
}

// Package types contains the ranked row types shared by the leaderboard
// engine, the chat renderer and the HTTP API.
package types

// EntityRow is one Top Entities row.
type EntityRow struct {
	Rank        int    `json:"rank"`
	EntityID    int64  `json:"entity_id"`
	Name        string `json:"name"`
	SourceTitle string `json:"source_title"`
	ImageRef    string `json:"image_ref,omitempty"`
	Value       int64  `json:"value"`
}

// UserRow is one Top Users row.
type UserRow struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Total  int64  `json:"total"`
	Owned  int    `json:"owned"`
}

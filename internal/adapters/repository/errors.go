package repository

import "errors"

// Sentinel kinds for index errors.
var (
	ErrNotFound     = errors.New("entity not indexed")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrNegative     = errors.New("negative entity value")
)

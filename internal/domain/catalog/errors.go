package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrExternalFetch = errors.New("catalog fetch failed")
	ErrEmptyQuery    = errors.New("empty entity name")
)

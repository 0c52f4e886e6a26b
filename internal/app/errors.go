package service

import "errors"

// Sentinel kinds returned to the inbound adapters.
var (
	ErrValidation   = errors.New("validation failed")
	ErrDuplicate    = errors.New("duplicate event")
	ErrBackpressure = errors.New("event loop is full")
	ErrNotStarted   = errors.New("service not started")
)

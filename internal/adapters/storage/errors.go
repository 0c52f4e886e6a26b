package storage

import "errors"

// ErrPersistence wraps every load or save failure.
var ErrPersistence = errors.New("persistence failure")

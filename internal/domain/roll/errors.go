package roll

import "errors"

// Sentinel kinds for roll errors.
var (
	ErrRollCooldown        = errors.New("no rolls left until the next reset")
	ErrNoEntitiesAvailable = errors.New("no more entities available to roll")
	ErrWindowClosed        = errors.New("claim window closed")
	ErrUnknownEvent        = errors.New("unknown roll event")
	ErrBadCustomID         = errors.New("malformed claim id")
)

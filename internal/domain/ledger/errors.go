package ledger

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrAlreadyOwned   = errors.New("entity already owned")
	ErrClaimCooldown  = errors.New("claim already used this period")
	ErrUnknownEntity  = errors.New("unknown entity")
	ErrNoRolls        = errors.New("no rolls left")
	ErrNothingToDraw  = errors.New("no unclaimed entities")
	ErrDailyCooldown  = errors.New("daily reward already claimed")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrPersistFailure = errors.New("snapshot not persisted")
)

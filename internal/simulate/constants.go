package simulate

import "time"

// Defaults used by the CLI.
const (
	DefaultUsers   = 20
	DefaultRolls   = 8
	DefaultTopN    = 50
	DefaultTimeout = 10 * time.Second
	DefaultSettle  = 2 * time.Second
	DefaultMaxWait = 2 * time.Minute
)

const (
	pollInterval     = 100 * time.Millisecond
	outboxPageLimit  = 1000
	maxSubmitTries   = 8
	claimButtonStart = "claim_"
	announcementMark = "💖"
)

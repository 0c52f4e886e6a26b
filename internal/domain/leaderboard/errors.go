package leaderboard

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrNotOwner      = errors.New("only the initiator can navigate")
	ErrSessionClosed = errors.New("pagination session closed")
	ErrUnknownAction = errors.New("unknown navigation action")
)

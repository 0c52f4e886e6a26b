package cooldown

import "errors"

// Sentinel kinds for scheduler errors.
var (
	ErrInvalidSchedule = errors.New("invalid cron schedule")
	ErrStopTimeout     = errors.New("scheduler stop timed out")
)

package ledger

import (
	"time"

	"github.com/okian/rollbot/pkg/logger"
)

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithRollsPerReset sets the allowance new accounts start with and resets
// restore.
func WithRollsPerReset(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.rollsPerReset = n
		}
	}
}

// WithDaily configures the daily reward cooldown and upper bound.
func WithDaily(cooldown time.Duration, maxReward int) Option {
	return func(l *Ledger) {
		if cooldown > 0 {
			l.dailyCooldown = cooldown
		}
		if maxReward > 0 {
			l.dailyMax = maxReward
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithRand injects the randomness source for daily rewards.
func WithRand(r Rand) Option {
	return func(l *Ledger) {
		if r != nil {
			l.rng = r
		}
	}
}

// WithLogger sets a custom logger for the ledger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Ledger) {
		if lg != nil {
			l.logger = lg
		}
	}
}

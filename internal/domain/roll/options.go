package roll

import (
	"time"

	"github.com/okian/rollbot/pkg/logger"
)

// Option applies a configuration option to the Machine.
type Option func(*Machine)

// WithWindow sets the claim window length.
func WithWindow(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRand injects the randomness used for draws, emoji and colour.
func WithRand(r Rand) Option {
	return func(m *Machine) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithLogger sets a custom logger for the machine.
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

package cooldown

import "github.com/okian/rollbot/pkg/logger"

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithSubmitter routes fired jobs through sub instead of running them on
// the cron goroutine.
func WithSubmitter(sub Submitter) Option {
	return func(s *Scheduler) {
		if sub != nil {
			s.submitter = sub
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Package cooldown runs the periodic roll and claim resets and answers
// "when is the next reset" for wait-time messages.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/rollbot/pkg/logger"
	"github.com/okian/rollbot/pkg/metrics"
)

// Job names as they appear in logs and metrics.
const (
	JobRollReset  = "roll_reset"
	JobClaimReset = "claim_reset"
)

// Resetter is the ledger side of a reset tick.
type Resetter interface {
	ResetRolls(ctx context.Context) (int, error)
	ResetClaims(ctx context.Context) (int, error)
}

// Submitter hands a job to the event loop. It returns false when the job
// was not accepted.
type Submitter interface {
	Submit(name string, run func(ctx context.Context) error) bool
}

// inline runs jobs on the cron goroutine.
type inline struct{ ctx context.Context }

func (i inline) Submit(_ string, run func(ctx context.Context) error) bool {
	_ = run(i.ctx)
	return true
}

// Scheduler owns the cron runner for resets and other periodic jobs.
type Scheduler struct {
	loc        *time.Location
	parser     cron.Parser
	rollSched  cron.Schedule
	claimSched cron.Schedule
	cron       *cron.Cron
	resetter   Resetter
	submitter  Submitter
	logger     logger.Logger
}

// New parses both reset expressions in loc. Standard five-field cron
// syntax is accepted.
func New(resetter Resetter, loc *time.Location, rollSpec, claimSpec string, opts ...Option) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	rollSched, err := parser.Parse(rollSpec)
	if err != nil {
		return nil, fmt.Errorf("%w: roll %q: %v", ErrInvalidSchedule, rollSpec, err)
	}
	claimSched, err := parser.Parse(claimSpec)
	if err != nil {
		return nil, fmt.Errorf("%w: claim %q: %v", ErrInvalidSchedule, claimSpec, err)
	}

	s := &Scheduler{
		loc:        loc,
		parser:     parser,
		rollSched:  rollSched,
		claimSched: claimSched,
		resetter:   resetter,
		submitter:  inline{ctx: context.Background()},
		logger:     logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cron = cron.New(cron.WithLocation(loc), cron.WithParser(parser))
	s.cron.Schedule(rollSched, cron.FuncJob(func() { s.post(JobRollReset, s.TickRolls) }))
	s.cron.Schedule(claimSched, cron.FuncJob(func() { s.post(JobClaimReset, s.TickClaims) }))
	return s, nil
}

// Every registers an extra job that runs every d (rounded up to a second).
func (s *Scheduler) Every(name string, d time.Duration, run func(ctx context.Context) error) {
	s.cron.Schedule(cron.Every(d), cron.FuncJob(func() { s.post(name, run) }))
}

func (s *Scheduler) post(name string, run func(ctx context.Context) error) {
	if !s.submitter.Submit(name, run) {
		metrics.RecordErrorByComponent("scheduler", "submit_rejected")
		s.logger.Warn(context.Background(), "scheduled job dropped", logger.String("job", name))
	}
}

// Start begins firing jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(context.Background(), "scheduler started",
		logger.String("timezone", s.loc.String()),
		logger.Time("next_roll_reset", s.NextRollReset(time.Now())),
		logger.Time("next_claim_reset", s.NextClaimReset(time.Now())),
	)
}

// Stop stops firing and waits for a running cron callback to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrStopTimeout, ctx.Err())
	}
}

// NextRollReset returns the first roll reset strictly after now.
func (s *Scheduler) NextRollReset(now time.Time) time.Time {
	return s.rollSched.Next(now.In(s.loc))
}

// NextClaimReset returns the first claim reset strictly after now.
func (s *Scheduler) NextClaimReset(now time.Time) time.Time {
	return s.claimSched.Next(now.In(s.loc))
}

// TickRolls restores every known user's roll allowance.
func (s *Scheduler) TickRolls(ctx context.Context) error {
	swept, err := s.resetter.ResetRolls(ctx)
	return s.finish(ctx, JobRollReset, swept, err)
}

// TickClaims clears every known user's claim flag.
func (s *Scheduler) TickClaims(ctx context.Context) error {
	swept, err := s.resetter.ResetClaims(ctx)
	return s.finish(ctx, JobClaimReset, swept, err)
}

func (s *Scheduler) finish(ctx context.Context, job string, swept int, err error) error {
	metrics.RecordSchedulerTick(job, swept)
	if err != nil {
		s.logger.Error(ctx, "reset persisted with error", logger.String("job", job), logger.Int("swept", swept), logger.Error(err))
		return fmt.Errorf("%s: %w", job, err)
	}
	s.logger.Info(ctx, "cooldowns reset", logger.String("job", job), logger.Int("swept", swept))
	return nil
}

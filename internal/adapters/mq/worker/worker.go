// Package worker runs event-loop jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/okian/rollbot/internal/adapters/mq/queue"
	"github.com/okian/rollbot/pkg/logger"
	"github.com/okian/rollbot/pkg/metrics"
)

// Job is what workers read off the queue.
type Job = queue.Job

// ErrPanic wraps a recovered job panic.
var ErrPanic = errors.New("job panicked")

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker runs jobs one at a time.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)
	// Shutdown waits for Run to return.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker is the single consumer of the event loop. Because it is
// the only goroutine running jobs, jobs observe each other's effects in
// queue order.
type InMemoryWorker struct {
	queue Queue
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. A closed queue is drained before Run returns.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "job failed", logger.String("job", j.Name), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the loop after the current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	return w.Wait(ctx)
}

// Wait blocks until Run returns, for example after the queue is closed
// and drained.
func (w *InMemoryWorker) Wait(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job. A panic is converted into an error so one bad
// command cannot stop the loop.
func (w *InMemoryWorker) process(ctx context.Context, j Job) (err error) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordLoopJobFailure(j.Name, "panic")
			w.logger.Error(ctx, "job panicked",
				logger.String("job", j.Name),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		metrics.RecordLoopJob(j.Name, float64(time.Since(start).Milliseconds()))
	}()

	if j.Run == nil {
		return nil
	}
	if err := j.Run(ctx); err != nil {
		metrics.RecordLoopJobFailure(j.Name, "error")
		return fmt.Errorf("job %s: %w", j.Name, err)
	}
	return nil
}

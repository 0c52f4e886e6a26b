package worker

import (
	"context"
	"fmt"

	"github.com/okian/rollbot/internal/adapters/mq/queue"
)

// Loop pairs a queue with its single worker.
type Loop struct {
	queue  queue.Queue
	worker *InMemoryWorker
}

// NewLoop creates a loop over q.
func NewLoop(q queue.Queue, opts ...Option) *Loop {
	return &Loop{queue: q, worker: NewInMemoryWorker(q, opts...)}
}

// Start runs the worker in its own goroutine.
func (l *Loop) Start(ctx context.Context) {
	go l.worker.Run(ctx)
}

// Submit enqueues run under name. It returns false when the queue refuses
// the job.
func (l *Loop) Submit(name string, run func(ctx context.Context) error) bool {
	return l.queue.Enqueue(context.Background(), queue.Job{Name: name, Run: run})
}

// Do enqueues run and waits for it to finish.
func (l *Loop) Do(ctx context.Context, name string, run func(ctx context.Context) error) error {
	done := make(chan error, 1)
	ok := l.queue.Enqueue(ctx, queue.Job{Name: name, Run: func(jobCtx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrPanic, r)
				panic(r)
			}
			done <- err
		}()
		return run(jobCtx)
	}})
	if !ok {
		if l.queue.IsClosed() {
			return queue.ErrClosed
		}
		return queue.ErrFull
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of pending jobs.
func (l *Loop) Len(ctx context.Context) int { return l.queue.Len(ctx) }

// Shutdown closes the queue and waits for the pending jobs to drain.
func (l *Loop) Shutdown(ctx context.Context) error {
	if err := l.queue.Close(); err != nil {
		return err
	}
	return l.worker.Wait(ctx)
}

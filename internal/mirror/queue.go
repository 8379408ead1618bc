// Package mirror runs fire-and-forget remote writes on a bounded queue.
package mirror

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/logger"
)

// Task is one remote call. The context carries the per-task timeout.
type Task func(ctx context.Context) error

// Stats is a snapshot of the queue counters.
type Stats struct {
	Submitted uint64
	Succeeded uint64
	Failed    uint64
	Dropped   uint64
}

// Options tunes a Queue. Zero values fall back to the defaults in constants.
type Options struct {
	Capacity int
	Timeout  time.Duration
}

type job struct {
	name string
	fn   Task
}

// Queue executes tasks one at a time in submission order. Tasks are never
// retried and a full queue drops new work instead of blocking the caller.
type Queue struct {
	jobs    chan job
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	idle    *sync.Cond
	pending int
	closed  bool

	submitted atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// New starts a queue with its single worker.
func New(opts Options) *Queue {
	if opts.Capacity <= 0 {
		opts.Capacity = constants.MirrorQueueCapacity
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.MirrorTaskTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		jobs:    make(chan job, opts.Capacity),
		timeout: opts.Timeout,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	q.idle = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Submit enqueues fn without blocking. It reports false when the task was
// dropped because the queue is full or closed.
func (q *Queue) Submit(name string, fn Task) bool {
	q.submitted.Add(1)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.dropped.Add(1)
		logger.Warn("Mirror queue closed, dropping task", "task", name)
		return false
	}
	select {
	case q.jobs <- job{name: name, fn: fn}:
		q.pending++
		return true
	default:
		q.dropped.Add(1)
		logger.Warn("Mirror queue full, dropping task", "task", name, "capacity", cap(q.jobs))
		return false
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for j := range q.jobs {
		q.execute(j)

		q.mu.Lock()
		q.pending--
		if q.pending == 0 {
			q.idle.Broadcast()
		}
		q.mu.Unlock()
	}
}

func (q *Queue) execute(j job) {
	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	err := safeCall(ctx, j.fn)
	if err != nil {
		q.failed.Add(1)
		logger.Warn("Remote mirror failed", "task", j.name, "error", err)
		return
	}
	q.succeeded.Add(1)
	logger.Debug("Remote mirror done", "task", j.name)
}

func safeCall(ctx context.Context, fn Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Stats returns the current counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Submitted: q.submitted.Load(),
		Succeeded: q.succeeded.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
	}
}

// Pending returns the number of queued or running tasks.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Wait blocks until every accepted task has finished.
func (q *Queue) Wait() {
	q.mu.Lock()
	for q.pending > 0 {
		q.idle.Wait()
	}
	q.mu.Unlock()
}

// Close stops accepting tasks and drains what is queued. When ctx expires
// first the in-flight task is cancelled, the rest run with a cancelled
// context, and ctx.Err() is returned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	select {
	case <-q.done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-q.done
		return ctx.Err()
	}
}

// Package worker runs clip jobs off the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/viralclip/internal/adapters/mq/queue"
	"github.com/okian/viralclip/pkg/logger"
	"github.com/okian/viralclip/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 1
	poolShutdownTimeout = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = queue.Job

// Handler processes one job. Errors are logged; they never stop the worker.
type Handler interface {
	Handle(ctx context.Context, j Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, j Job) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, j Job) error { return f(ctx, j) } //nolint:gocritic // hugeParam: Job is passed by value for channel semantics

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs using the provided handler.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing jobs.
type InMemoryWorker struct {
	jobs    <-chan Job
	handler Handler
	name    string

	processed atomic.Int64
	failed    atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker reading from jobs.
func NewInMemoryWorker(jobs <-chan Job, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		jobs:     jobs,
		handler:  handler,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-w.jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown signals the worker to stop and waits for it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns how many jobs this worker handled.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns how many jobs this worker's handler rejected.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, j Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	w.processed.Add(1)
	if err := w.handler.Handle(ctx, j); err != nil {
		w.failed.Add(1)
		w.logger.Warn(ctx, "clip job failed",
			logger.String("video_id", j.Candidate.VideoID),
			logger.Int("rank", j.Candidate.Rank),
			logger.Error(err))
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	wg      sync.WaitGroup
	logger  logger.Logger
}

// NewPool creates a worker pool. A count below one uses a single worker.
func NewPool(ctx context.Context, workerCount int, q Queue, handler Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}

	jobs := q.Dequeue(ctx)
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(jobs, handler, wopts...)
		if i == 0 {
			pool.logger = pool.workers[i].logger
		}
	}
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	metrics.UpdateWorkerCount(len(p.workers))
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has exited, which happens once the queue
// is closed and drained or the context passed to Start is done.
func (p *Pool) Wait() {
	p.wg.Wait()
	metrics.UpdateWorkerCount(0)
}

// Processed returns the number of jobs handled by all workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed returns the number of jobs whose handler returned an error.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

type closableQueue interface {
	Close() error
	IsClosed() bool
}

// Shutdown closes the queue and stops every worker after its current job.
// It returns an error if some worker did not stop in time.
func (p *Pool) Shutdown(ctx context.Context) error {
	if q, ok := p.queue.(closableQueue); ok && !q.IsClosed() {
		if err := q.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, fmt.Errorf("worker %d: %w", i, err))
		}
	}
	metrics.UpdateWorkerCount(0)
	return errors.Join(errs...)
}

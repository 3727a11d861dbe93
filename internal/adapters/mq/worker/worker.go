// Package worker applies queued match events to the ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rangeboard/internal/domain/ledger"
	"github.com/okian/rangeboard/internal/domain/model"
	"github.com/okian/rangeboard/pkg/logger"
	"github.com/okian/rangeboard/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Event abstracts what workers read off the queue.
type Event = model.MatchEvent

// Recorder appends a match won by a registered team.
type Recorder interface {
	RecordMatch(ctx context.Context, winner string) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events and writes them through the Recorder.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the event in flight, if any.
	Shutdown(ctx context.Context) error
}

// Stats counts what the workers did. Safe for concurrent use.
type Stats struct {
	processed atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
}

// Processed returns the number of matches recorded.
func (s *Stats) Processed() int64 { return s.processed.Load() }

// Rejected returns the number of events whose winner was no longer registered
// when the event was applied.
func (s *Stats) Rejected() int64 { return s.rejected.Load() }

// Failed returns the number of events that failed for any other reason.
func (s *Stats) Failed() int64 { return s.failed.Load() }

// InMemoryWorker implements Worker for processing match events.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	name     string
	stats    *Stats

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		recorder: recorder,
		name:     "worker",
		stats:    &Stats{},
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

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing match", logger.Error(err))
			}
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

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// processEvent applies a single match. A winner removed between acceptance and
// processing is counted as rejected and does not return an error.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessed(float64(time.Since(start).Microseconds()) / 1000)
	}()

	err := w.recorder.RecordMatch(ctx, event.Winner)
	switch {
	case err == nil:
		w.stats.processed.Add(1)
		return nil
	case errors.Is(err, ledger.ErrTeamNotFound):
		w.stats.rejected.Add(1)
		metrics.RecordErrorByComponent("worker", "team_not_found")
		w.logger.Warn(ctx, "match dropped: winner no longer registered",
			logger.String("matchID", event.MatchID),
			logger.String("team", event.Winner),
		)
		return nil
	default:
		w.stats.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "record_error")
		return fmt.Errorf("record match %s: %w", event.MatchID, err)
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	stats   *Stats

	logger logger.Logger
}

// NewPool creates a worker pool. A count below one is raised to one; more than
// one worker applies matches concurrently, so history order may differ from
// submission order.
func NewPool(workerCount int, queue Queue, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		stats:   &Stats{},
		logger:  logger.Nop(),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{
			WithName("worker-" + strconv.Itoa(i)),
			withStats(pool.stats),
		}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, recorder, workerOpts...)
	}
	probe := &InMemoryWorker{logger: pool.logger}
	for _, opt := range opts {
		opt(probe)
	}
	pool.logger = probe.logger.Named("worker-pool")

	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Stats returns the counters shared by all workers in the pool.
func (p *Pool) Stats() *Stats { return p.stats }

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if len(p.workers) > 1 {
		p.logger.Warn(ctx, "multiple workers may record matches out of submission order",
			logger.Int("workers", len(p.workers)),
		)
	}
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			worker.shutdownOnce.Do(func() { close(worker.shutdown) })
		}
	}
	metrics.UpdateWorkerActiveCount(0)

	if timedOut {
		return fmt.Errorf("worker pool drain: %w", shutdownCtx.Err())
	}
	return nil
}

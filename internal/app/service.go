// Package service wires the ledger store, the match ingestion pipeline and
// the deduper into the single dependency bundle the HTTP API consumes.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/okian/rangeboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/rangeboard/internal/adapters/mq/worker"
	"github.com/okian/rangeboard/internal/adapters/repository"
	"github.com/okian/rangeboard/internal/domain/dedupe"
	"github.com/okian/rangeboard/internal/domain/ledger"
	"github.com/okian/rangeboard/internal/domain/model"
	"github.com/okian/rangeboard/internal/seed"
	"github.com/okian/rangeboard/pkg/logger"
	"github.com/okian/rangeboard/pkg/metrics"
)

// ErrNotStarted is returned by operations invoked before Start or after Stop.
var ErrNotStarted = errors.New("service not started")

const flushPollInterval = 5 * time.Millisecond

// Service implements the API dependencies for the match ledger.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      *repository.LedgerStore
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	seedFile    string
	verify      bool

	// State
	started   bool
	startedAt time.Time
	accepted  atomic.Int64
	cancelRun context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines. Matches are only
// guaranteed to be recorded in submission order with a single worker.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the match queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the match id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSeed loads the ledger from a YAML seed file on Start.
func WithSeed(path string) Option {
	return func(s *Service) {
		s.seedFile = path
	}
}

// WithConsistencyChecks verifies the tree after every rebuild.
func WithConsistencyChecks(enabled bool) Option {
	return func(s *Service) {
		s.verify = enabled
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: 1,
		queueSize:   10_000,
		dedupeSize:  100_000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the components, applies the seed file if one is
// configured and starts the workers. Calling Start on a running service is a
// no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ledger service...")

	// Components outlive the start context; Stop owns their shutdown.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	store := repository.NewLedgerStore(runCtx,
		repository.WithLogger(s.logger.Named("store")),
		repository.WithConsistencyChecks(s.verify),
	)
	if s.seedFile != "" {
		if err := applySeed(ctx, store, s.seedFile); err != nil {
			_ = store.Close()
			cancel()
			return err
		}
	}

	s.store = store
	s.cancelRun = cancel
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.store,
		workerpool.WithLogger(s.logger),
	)
	s.workerPool.Start(runCtx)
	s.accepted.Store(0)

	metrics.UpdateQueueCapacity(s.queueSize)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "ledger service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("seed", s.seedFile),
	)

	return nil
}

func applySeed(ctx context.Context, store *repository.LedgerStore, path string) error {
	doc, err := seed.Load(path)
	if err != nil {
		return err
	}
	names, winners, err := doc.Resolve()
	if err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	if err := store.Build(ctx, names, winners); err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	return nil
}

// Stop drains queued matches and shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ledger service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "queued matches were not fully drained", logger.Error(err))
	}
	s.cancelRun()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "error closing store", logger.Error(err))
	}

	stats := s.workerPool.Stats()
	s.started = false
	s.logger.Info(ctx, "ledger service stopped",
		logger.Int("accepted", int(s.accepted.Load())),
		logger.Int("processed", int(stats.Processed())),
		logger.Int("rejected", int(stats.Rejected())),
		logger.Int("failed", int(stats.Failed())),
	)
}

// running returns the live components, or false when the service is down.
func (s *Service) running() (*repository.LedgerStore, *eventqueue.InMemoryQueue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store, s.eventQueue, s.started
}

// SeenAndRecord atomically checks if a match id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d == nil {
		return false
	}
	return d.SeenAndRecord(ctx, id)
}

// Unrecord removes a match id so the submission can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d != nil {
		d.Unrecord(ctx, id)
	}
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits a match for asynchronous recording. It returns false when
// the service is not running or the queue is full.
func (s *Service) Enqueue(ctx context.Context, e model.MatchEvent) bool {
	_, q, ok := s.running()
	if !ok {
		return false
	}
	if !e.Valid() {
		s.logger.Warn(ctx, "invalid match event dropped", logger.String("matchID", e.MatchID))
		return false
	}
	if !q.Enqueue(ctx, e) {
		return false
	}
	s.accepted.Add(1)
	s.logger.Debug(ctx, "match enqueued",
		logger.String("matchID", e.MatchID),
		logger.String("team", e.Winner),
	)
	return true
}

// Flush blocks until every accepted match has been applied or dropped by a
// worker, or ctx is done.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.RLock()
	pool, started := s.workerPool, s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	ticker := time.NewTicker(flushPollInterval)
	defer ticker.Stop()
	for {
		st := pool.Stats()
		if st.Processed()+st.Rejected()+st.Failed() >= s.accepted.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("flush: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Build replaces the ledger contents.
func (s *Service) Build(ctx context.Context, names []string, winners []int) error {
	store, _, ok := s.running()
	if !ok {
		return ErrNotStarted
	}
	return store.Build(ctx, names, winners)
}

// AddTeam registers a team.
func (s *Service) AddTeam(ctx context.Context, name string, initialWins int) error {
	store, _, ok := s.running()
	if !ok {
		return ErrNotStarted
	}
	return store.AddTeam(ctx, name, initialWins)
}

// RemoveTeam deletes a team and the matches it won. Matches for the team that
// are still queued are dropped by the workers.
func (s *Service) RemoveTeam(ctx context.Context, name string) error {
	store, _, ok := s.running()
	if !ok {
		return ErrNotStarted
	}
	return store.RemoveTeam(ctx, name)
}

// QueryRange returns the best team over the 1-based match range from..to.
func (s *Service) QueryRange(ctx context.Context, from, to int) ledger.RangeBest {
	store, _, ok := s.running()
	if !ok {
		return ledger.RangeBest{}
	}
	return store.QueryRange(ctx, from, to)
}

// Leader returns the overall leader or "".
func (s *Service) Leader(ctx context.Context) string {
	store, _, ok := s.running()
	if !ok {
		return ""
	}
	return store.Leader(ctx)
}

// State returns the diagnostic ledger state.
func (s *Service) State(ctx context.Context) ledger.State {
	store, _, ok := s.running()
	if !ok {
		return ledger.State{}
	}
	return store.State(ctx)
}

// HasTeam reports whether name is registered.
func (s *Service) HasTeam(ctx context.Context, name string) bool {
	store, _, ok := s.running()
	return ok && store.HasTeam(ctx, name)
}

// Suggest proposes registered names close to name.
func (s *Service) Suggest(ctx context.Context, name string) []string {
	store, _, ok := s.running()
	if !ok {
		return nil
	}
	return store.Suggest(ctx, name)
}

// Count returns the number of teams and matches.
func (s *Service) Count(ctx context.Context) (teams, matches int) {
	store, _, ok := s.running()
	if !ok {
		return 0, 0
	}
	return store.Count(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		snap := s.store.Snapshot()
		pool := s.workerPool.Stats()

		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		stats["queueLength"] = s.eventQueue.Len(ctx)
		stats["teams"] = len(snap.Teams)
		stats["matches"] = snap.Matches
		stats["leader"] = snap.Leader
		stats["leaderWins"] = snap.LeaderWins
		stats["snapshotVersion"] = snap.Version
		stats["matchesAccepted"] = s.accepted.Load()
		stats["matchesProcessed"] = pool.Processed()
		stats["matchesRejected"] = pool.Rejected()
		stats["matchesFailed"] = pool.Failed()
		stats["dedupeEntries"] = s.deduper.Size()
	}

	return stats
}

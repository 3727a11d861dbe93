package repository

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rangeboard/internal/domain/ledger"
	"github.com/okian/rangeboard/pkg/logger"
	"github.com/okian/rangeboard/pkg/metrics"
)

// LedgerStore serialises access to a ledger.Ledger behind a RWMutex. Every
// mutation holds the write lock for the whole rebuild, so readers never see a
// half-built tree.
type LedgerStore struct {
	mu     sync.RWMutex
	ledger *ledger.Ledger
	closed bool

	logger                logger.Logger
	verify                bool
	ledgerOpts            []ledger.Option
	metricsUpdateInterval time.Duration

	version  atomic.Uint64
	snapshot atomic.Pointer[Snapshot]

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*LedgerStore)(nil)

// NewLedgerStore constructs an empty store and starts its metrics updater.
func NewLedgerStore(ctx context.Context, opts ...Option) *LedgerStore {
	s := &LedgerStore{
		logger:                logger.Nop(),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	ledgerOpts := append([]ledger.Option{
		ledger.WithLogger(s.logger),
		ledger.WithConsistencyChecks(s.verify),
		ledger.WithRebuildHook(func(st ledger.RebuildStats) {
			metrics.RecordRebuild(float64(st.Took.Microseconds()) / 1000)
			metrics.UpdateLedgerSize(st.Teams, st.Matches)
		}),
	}, s.ledgerOpts...)
	s.ledger = ledger.New(ledgerOpts...)

	s.publishSnapshotLocked()
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater. Further mutations fail with
// ErrClosed; reads keep working.
func (s *LedgerStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})
	s.wg.Wait()
	return nil
}

func (s *LedgerStore) Build(ctx context.Context, names []string, winners []int) error {
	return s.mutate("build", func() error {
		return s.ledger.Build(ctx, names, winners)
	})
}

func (s *LedgerStore) AddTeam(ctx context.Context, name string, initialWins int) error {
	return s.mutate("add_team", func() error {
		return s.ledger.AddTeam(ctx, name, initialWins)
	})
}

func (s *LedgerStore) RemoveTeam(ctx context.Context, name string) error {
	return s.mutate("remove_team", func() error {
		return s.ledger.RemoveTeam(ctx, name)
	})
}

func (s *LedgerStore) RecordMatch(ctx context.Context, winner string) error {
	return s.mutate("add_match", func() error {
		return s.ledger.AddMatchByName(ctx, winner)
	})
}

// mutate runs fn under the write lock and publishes a snapshot on success.
func (s *LedgerStore) mutate(op string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		metrics.RecordRejection(op, "closed")
		return ErrClosed
	}
	if err := fn(); err != nil {
		metrics.RecordRejection(op, RejectionReason(err))
		return err
	}
	metrics.RecordMutation(op)
	s.publishSnapshotLocked()
	return nil
}

func (s *LedgerStore) QueryRange(ctx context.Context, from, to int) ledger.RangeBest {
	start := time.Now()
	defer func() {
		metrics.RecordRangeQuery(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.QueryMatchRange(from, to)
}

func (s *LedgerStore) Leader(ctx context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Leader()
}

func (s *LedgerStore) State(ctx context.Context) ledger.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.State()
}

func (s *LedgerStore) HasTeam(ctx context.Context, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ledger.IndexOf(name)
	return ok
}

func (s *LedgerStore) Suggest(ctx context.Context, name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Suggest(name)
}

func (s *LedgerStore) Count(ctx context.Context) (teams, matches int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.TeamCount(), s.ledger.MatchCount()
}

// Snapshot returns the most recently published snapshot.
func (s *LedgerStore) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// publishSnapshotLocked builds and stores a new snapshot (assumes lock is held).
func (s *LedgerStore) publishSnapshotLocked() {
	names := s.ledger.Names()
	wins := s.ledger.WinTotals()
	teams := make([]TeamTotal, len(names))
	for i := range names {
		teams[i] = TeamTotal{Name: names[i], Wins: wins[i]}
	}

	leader, leaderWins := s.ledger.LeaderWins()
	v := s.version.Add(1)
	s.snapshot.Store(&Snapshot{
		Version:    v,
		Leader:     leader,
		LeaderWins: leaderWins,
		Teams:      teams,
		Matches:    s.ledger.MatchCount(),
	})
	metrics.UpdateSnapshotVersion(v)
}

// startMetricsUpdater starts a background goroutine that refreshes the size
// and system gauges.
func (s *LedgerStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *LedgerStore) updateMetrics() {
	snap := s.Snapshot()
	metrics.UpdateLedgerSize(len(snap.Teams), snap.Matches)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// RejectionReason maps a ledger error onto a metric label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ledger.ErrDuplicateTeam):
		return "duplicate_team"
	case errors.Is(err, ledger.ErrTeamNotFound):
		return "team_not_found"
	case errors.Is(err, ledger.ErrInvalidTeamName):
		return "invalid_name"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "other"
	}
}

// Package replay drives a running server with a generated match history and
// checks its answers against a local recount.
//
// Matches are submitted by a single goroutine, one at a time, so the order the
// server records them in is the order they were generated in.
package replay

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/okian/rangeboard/internal/client"
	"github.com/okian/rangeboard/internal/domain/types"
	"github.com/okian/rangeboard/pkg/logger"
	"golang.org/x/time/rate"
)

// Replay failures.
var (
	ErrInvalidConfig = errors.New("invalid replay config")
	ErrNotSettled    = errors.New("server did not record every match in time")
	ErrMismatch      = errors.New("server answers differ from the recount")
)

// API is the part of the HTTP client a replay needs.
type API interface {
	Build(ctx context.Context, teams []string, winners []int) (types.LedgerSummary, error)
	SubmitMatch(ctx context.Context, matchID, winner string) (types.MatchAck, error)
	Leader(ctx context.Context) (types.LeaderResponse, error)
	Range(ctx context.Context, from, to int) (types.RangeResponse, error)
	State(ctx context.Context) (types.StateResponse, error)
}

var _ API = (*client.Client)(nil)

// Mismatch records one answer that disagreed with the recount.
type Mismatch struct {
	Query string
	Want  any
	Got   any
}

// Report summarises a finished replay.
type Report struct {
	Teams      int
	Matches    int
	Preloaded  int
	Submitted  int
	Retries    int
	Duplicates int
	Queries    int
	Leader     string
	Mismatches []Mismatch
	Elapsed    time.Duration
}

// OK reports whether every checked answer matched.
func (r *Report) OK() bool { return len(r.Mismatches) == 0 }

// Runner submits a Plan and verifies the outcome.
type Runner struct {
	api API

	limiter       *rate.Limiter
	preload       int
	queries       int
	maxRetries    int
	retryBackoff  time.Duration
	settleTimeout time.Duration
	pollInterval  time.Duration
	querySeed     uint64
	logger        logger.Logger
}

// NewRunner returns a Runner submitting through api.
func NewRunner(api API, opts ...Option) *Runner {
	r := &Runner{
		api:           api,
		limiter:       rate.NewLimiter(rate.Limit(100), 10),
		preload:       1,
		queries:       25,
		maxRetries:    5,
		retryBackoff:  50 * time.Millisecond,
		settleTimeout: 30 * time.Second,
		pollInterval:  25 * time.Millisecond,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run builds the ledger from the plan's roster and first matches, submits
// the rest one by one, waits for the server to record them and compares the
// leader, the history and a set of ranges with a local recount.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Report, error) {
	if len(plan.Teams) == 0 || len(plan.Winners) == 0 {
		return nil, fmt.Errorf("%w: empty plan", ErrInvalidConfig)
	}
	start := time.Now()
	preload := min(max(r.preload, 1), len(plan.Winners))
	rep := &Report{Teams: len(plan.Teams), Matches: len(plan.Winners), Preloaded: preload}

	if _, err := r.api.Build(ctx, plan.Teams, plan.Winners[:preload]); err != nil {
		return nil, fmt.Errorf("build ledger: %w", err)
	}
	r.logger.Info(ctx, "ledger built",
		logger.Int("teams", len(plan.Teams)),
		logger.Int("preloaded", preload),
	)

	for _, w := range plan.Winners[preload:] {
		if err := r.submit(ctx, plan.Teams[w], rep); err != nil {
			return rep, err
		}
	}

	if err := r.settle(ctx, len(plan.Winners)); err != nil {
		return rep, err
	}
	if err := r.verify(ctx, plan, rep); err != nil {
		return rep, err
	}
	rep.Elapsed = time.Since(start)

	fields := []logger.Field{
		logger.Int("teams", rep.Teams),
		logger.Int("matches", rep.Matches),
		logger.Int("submitted", rep.Submitted),
		logger.Int("retries", rep.Retries),
		logger.Int("queries", rep.Queries),
		logger.Int("mismatches", len(rep.Mismatches)),
		logger.String("leader", rep.Leader),
		logger.Duration("elapsed", rep.Elapsed),
	}
	if !rep.OK() {
		r.logger.Error(ctx, "replay finished with mismatches", fields...)
		return rep, fmt.Errorf("%w: %d of %d checks", ErrMismatch, len(rep.Mismatches), rep.Queries)
	}
	r.logger.Info(ctx, "replay verified", fields...)
	return rep, nil
}

// submit sends one match, retrying throttled replies with the same id so a
// retry can never record the match twice.
func (r *Runner) submit(ctx context.Context, winner string, rep *Report) error {
	id := uuid.NewString()
	for attempt := 0; ; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		ack, err := r.api.SubmitMatch(ctx, id, winner)
		if err == nil {
			rep.Submitted++
			if ack.Duplicate {
				rep.Duplicates++
			}
			return nil
		}
		if !client.Retryable(err) || attempt >= r.maxRetries {
			return fmt.Errorf("submit match %d: %w", rep.Preloaded+rep.Submitted+1, err)
		}
		rep.Retries++
		r.logger.Debug(ctx, "match throttled, retrying",
			logger.String("matchID", id),
			logger.Int("attempt", attempt+1),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryBackoff * time.Duration(attempt+1)):
		}
	}
}

// settle polls until the server reports want matches.
func (r *Runner) settle(ctx context.Context, want int) error {
	ctx, cancel := context.WithTimeout(ctx, r.settleTimeout)
	defer cancel()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		lr, err := r.api.Leader(ctx)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("poll leader: %w", err)
		}
		if err == nil && lr.Matches >= want {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: have %d of %d", ErrNotSettled, lr.Matches, want)
		case <-ticker.C:
		}
	}
}

func (r *Runner) verify(ctx context.Context, plan Plan, rep *Report) error {
	ref := newRecount(plan.Teams, plan.Winners)
	check := func(query string, want, got any, equal bool) {
		rep.Queries++
		if !equal {
			rep.Mismatches = append(rep.Mismatches, Mismatch{Query: query, Want: want, Got: got})
		}
	}

	lr, err := r.api.Leader(ctx)
	if err != nil {
		return fmt.Errorf("leader: %w", err)
	}
	rep.Leader = lr.Team
	check("leader", ref.leader(), lr.Team, ref.leader() == lr.Team)

	st, err := r.api.State(ctx)
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}
	want := plan.Seed().WinnerNames
	check("history", want, st.Winners, slices.Equal(want, st.Winners))

	n := len(plan.Winners)
	bounds := [][2]int{{1, n}, {n, 1}, {0, n + 5}, {n, n}}
	faker := gofakeit.New(r.querySeed)
	for len(bounds) < r.queries {
		bounds = append(bounds, [2]int{faker.Number(1, n), faker.Number(1, n)})
	}
	for _, b := range bounds[:max(r.queries, 0)] {
		got, err := r.api.Range(ctx, b[0], b[1])
		if err != nil {
			return fmt.Errorf("range %d..%d: %w", b[0], b[1], err)
		}
		exp := ref.rangeBest(b[0], b[1])
		check(fmt.Sprintf("range %d..%d", b[0], b[1]), exp, got, exp == got)
	}
	return nil
}

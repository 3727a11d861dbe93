// Package repository holds the shared, concurrency-safe ledger store.
package repository

import (
	"context"

	"github.com/okian/rangeboard/internal/domain/ledger"
)

// TeamTotal is one registry row in a snapshot.
type TeamTotal struct {
	Name string
	Wins int
}

// Snapshot is an immutable view of the ledger published after each change.
type Snapshot struct {
	Version    uint64
	Leader     string
	LeaderWins int
	Teams      []TeamTotal
	Matches    int
}

// Store provides read/write access to the match ledger.
type Store interface {
	// Build replaces every team and match.
	Build(ctx context.Context, names []string, winners []int) error
	// AddTeam registers a new team. Returns ledger.ErrDuplicateTeam if the
	// name is taken.
	AddTeam(ctx context.Context, name string, initialWins int) error
	// RemoveTeam deletes a team and all matches it won.
	RemoveTeam(ctx context.Context, name string) error
	// RecordMatch appends a match won by a registered team.
	RecordMatch(ctx context.Context, winner string) error

	// QueryRange returns the best team among matches from..to (1-based).
	QueryRange(ctx context.Context, from, to int) ledger.RangeBest
	// Leader returns the overall leader, or "" if nobody has won.
	Leader(ctx context.Context) string
	// State copies the full ledger for diagnostics.
	State(ctx context.Context) ledger.State
	// HasTeam reports whether name is registered.
	HasTeam(ctx context.Context, name string) bool
	// Suggest proposes registered names close to name.
	Suggest(ctx context.Context, name string) []string
	// Count returns the number of teams and matches.
	Count(ctx context.Context) (teams, matches int)

	// Snapshot returns the last published snapshot without blocking.
	Snapshot() *Snapshot
}

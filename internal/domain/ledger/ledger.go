// Package ledger keeps the team registry, cumulative win totals and the
// match-winner history in step, and answers leader and range questions
// through a segment tree rebuilt after every change.
//
// A Ledger is not safe for concurrent use; wrap it (see the repository
// package) when more than one goroutine needs it.
package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/okian/rangeboard/internal/domain/segtree"
	"github.com/okian/rangeboard/pkg/logger"
)

// Unassigned marks a history position whose winner was out of range when the
// history was loaded. It occupies a match slot but never counts as a win.
const Unassigned = -1

const defaultMaxSuggestions = 3

// Ledger owns three index-aligned collections: team names, their cumulative
// win totals, and the winning team index of every recorded match.
type Ledger struct {
	names   []string
	wins    []int
	winners []int

	tree *segtree.Tree

	logger         logger.Logger
	verify         bool
	onRebuild      func(RebuildStats)
	maxSuggestions int
}

// New returns an empty ledger with no teams and no matches.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		logger:         logger.Nop(),
		maxSuggestions: defaultMaxSuggestions,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.tree = segtree.Build(nil, nil)
	return l
}

// Build replaces the registry and history wholesale. Win totals are
// recomputed by tallying winners; indices outside [0, len(names)) keep their
// position as Unassigned and add nothing.
func (l *Ledger) Build(ctx context.Context, names []string, winners []int) error {
	if len(names) == 0 || len(winners) == 0 {
		l.logger.Warn(ctx, "build rejected",
			logger.Int("teams", len(names)),
			logger.Int("matches", len(winners)),
		)
		return ErrEmptyInput
	}

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			l.logger.Warn(ctx, "build rejected: blank team name")
			return ErrInvalidTeamName
		}
		if _, dup := seen[name]; dup {
			l.logger.Warn(ctx, "build rejected: duplicate team", logger.String("team", name))
			return fmt.Errorf("%w: %q", ErrDuplicateTeam, name)
		}
		seen[name] = struct{}{}
	}

	nextNames := slices.Clone(names)
	nextWins := make([]int, len(names))
	nextWinners := make([]int, len(winners))
	ignored := 0
	for i, w := range winners {
		if w < 0 || w >= len(names) {
			nextWinners[i] = Unassigned
			ignored++
			continue
		}
		nextWinners[i] = w
		nextWins[w]++
	}

	l.names, l.wins, l.winners = nextNames, nextWins, nextWinners
	l.rebuild()

	l.logger.Info(ctx, "ledger built",
		logger.Int("teams", len(l.names)),
		logger.Int("matches", len(l.winners)),
		logger.Int("unassigned", ignored),
	)
	return nil
}

// AddTeam registers a new team with initialWins cumulative wins. A negative
// initialWins is clamped to zero. Names are matched case-sensitively.
func (l *Ledger) AddTeam(ctx context.Context, name string, initialWins int) error {
	if strings.TrimSpace(name) == "" {
		l.logger.Warn(ctx, "add team rejected: blank name")
		return ErrInvalidTeamName
	}
	if _, ok := l.IndexOf(name); ok {
		l.logger.Warn(ctx, "add team rejected: duplicate", logger.String("team", name))
		return fmt.Errorf("%w: %q", ErrDuplicateTeam, name)
	}
	if initialWins < 0 {
		l.logger.Warn(ctx, "negative initial wins clamped to zero",
			logger.String("team", name),
			logger.Int("wins", initialWins),
		)
		initialWins = 0
	}

	l.names = append(l.names, name)
	l.wins = append(l.wins, initialWins)
	// Every node's count vector grows by one slot.
	l.rebuild()

	l.logger.Info(ctx, "team added",
		logger.String("team", name),
		logger.Int("index", len(l.names)-1),
		logger.Int("wins", initialWins),
	)
	return nil
}

// RemoveTeam deletes a team and every match it won. Matches won by teams
// registered after it are renumbered down by one so the history stays aligned
// with the shrunken registry. Unassigned slots are compacted away as well, so
// afterwards the history holds only registered indices.
func (l *Ledger) RemoveTeam(ctx context.Context, name string) error {
	idx, ok := l.IndexOf(name)
	if !ok {
		err := l.unknownTeam(name)
		l.logger.Warn(ctx, "remove team rejected", logger.String("team", name), logger.Error(err))
		return err
	}

	// Renumber against the pre-removal index space while dropping the team's
	// own matches. Strictly greater: index idx itself is being discarded.
	kept := make([]int, 0, len(l.winners))
	dropped := 0
	for _, w := range l.winners {
		switch {
		case w == idx || w == Unassigned:
			dropped++
		case w > idx:
			kept = append(kept, w-1)
		default:
			kept = append(kept, w)
		}
	}

	l.names = slices.Delete(l.names, idx, idx+1)
	l.wins = slices.Delete(l.wins, idx, idx+1)
	l.winners = kept
	l.rebuild()

	l.logger.Info(ctx, "team removed",
		logger.String("team", name),
		logger.Int("index", idx),
		logger.Int("matchesDropped", dropped),
		logger.Int("matches", len(l.winners)),
	)
	return nil
}

// AddMatchByName appends a match won by winner and bumps its total. The team
// must already be registered.
func (l *Ledger) AddMatchByName(ctx context.Context, winner string) error {
	idx, ok := l.IndexOf(winner)
	if !ok {
		err := l.unknownTeam(winner)
		l.logger.Warn(ctx, "match rejected: unregistered winner", logger.String("team", winner), logger.Error(err))
		return err
	}

	l.winners = append(l.winners, idx)
	l.wins[idx]++
	l.rebuild()

	l.logger.Debug(ctx, "match recorded",
		logger.String("team", winner),
		logger.Int("match", len(l.winners)),
		logger.Int("wins", l.wins[idx]),
	)
	return nil
}

// rebuild discards the current tree and builds a new one from the arrays.
func (l *Ledger) rebuild() {
	start := time.Now()
	l.tree = nil
	tree := segtree.Build(l.names, l.winners)
	if l.verify {
		if err := tree.Verify(); err != nil {
			panic(fmt.Sprintf("ledger: rebuilt tree is inconsistent: %v", err))
		}
	}
	l.tree = tree

	if l.onRebuild != nil {
		l.onRebuild(RebuildStats{
			Teams:   len(l.names),
			Matches: len(l.winners),
			Took:    time.Since(start),
		})
	}
}

// IndexOf returns the registry position of name.
func (l *Ledger) IndexOf(name string) (int, bool) {
	i := slices.Index(l.names, name)
	return i, i >= 0
}

// TeamCount returns the number of registered teams.
func (l *Ledger) TeamCount() int { return len(l.names) }

// MatchCount returns the number of matches in the history.
func (l *Ledger) MatchCount() int { return len(l.winners) }

// Names returns a copy of the registry in index order.
func (l *Ledger) Names() []string { return slices.Clone(l.names) }

// WinTotals returns a copy of the cumulative win totals in index order.
func (l *Ledger) WinTotals() []int { return slices.Clone(l.wins) }

// History returns a copy of the winner index of every match, Unassigned
// positions included.
func (l *Ledger) History() []int { return slices.Clone(l.winners) }

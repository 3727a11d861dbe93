package ledger

import (
	"time"

	"github.com/okian/rangeboard/pkg/logger"
)

// RebuildStats describes one completed tree rebuild.
type RebuildStats struct {
	Teams   int
	Matches int
	Took    time.Duration
}

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithLogger sets the logger rejections and mutations are reported to.
func WithLogger(l logger.Logger) Option {
	return func(led *Ledger) {
		if l != nil {
			led.logger = l
		}
	}
}

// WithConsistencyChecks verifies every tree invariant after each rebuild and
// panics on a violation.
func WithConsistencyChecks(enabled bool) Option {
	return func(led *Ledger) {
		led.verify = enabled
	}
}

// WithRebuildHook registers fn to run after every rebuild.
func WithRebuildHook(fn func(RebuildStats)) Option {
	return func(led *Ledger) {
		led.onRebuild = fn
	}
}

// WithMaxSuggestions caps how many names an UnknownTeamError proposes.
func WithMaxSuggestions(n int) Option {
	return func(led *Ledger) {
		if n >= 0 {
			led.maxSuggestions = n
		}
	}
}

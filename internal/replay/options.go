package replay

import (
	"time"

	"github.com/okian/rangeboard/pkg/logger"
	"golang.org/x/time/rate"
)

// Option configures a Runner.
type Option func(*Runner)

// WithRate paces submissions. A non-positive rate removes the limit.
func WithRate(perSec float64, burst int) Option {
	return func(r *Runner) {
		if perSec <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSec), max(burst, 1))
	}
}

// WithPreload sends the first n matches with the initial build instead of
// submitting them one by one. At least one match is always preloaded.
func WithPreload(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.preload = n
		}
	}
}

// WithQueries sets how many range and leader checks run after the replay.
func WithQueries(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.queries = n
		}
	}
}

// WithRetries sets how often a throttled submission is retried.
func WithRetries(n int, backoff time.Duration) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxRetries = n
		}
		if backoff > 0 {
			r.retryBackoff = backoff
		}
	}
}

// WithSettleTimeout bounds the wait for the server to record every match.
func WithSettleTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.settleTimeout = d
		}
	}
}

// WithQuerySeed fixes the random range bounds.
func WithQuerySeed(seed uint64) Option {
	return func(r *Runner) {
		r.querySeed = seed
	}
}

// WithLogger sets the logger progress is reported to.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

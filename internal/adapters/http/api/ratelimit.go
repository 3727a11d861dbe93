package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/okian/rangeboard/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	// limiterCleanupThreshold is the map size before stale clients are pruned.
	limiterCleanupThreshold = 500
	limiterMaxIdle          = 10 * time.Minute
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter hands out one token bucket per client address.
type ClientRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientEntry
	r       rate.Limit
	b       int
}

// NewClientRateLimiter creates a limiter allowing r requests per second with
// bursts of b for each client.
func NewClientRateLimiter(r rate.Limit, b int) *ClientRateLimiter {
	return &ClientRateLimiter{
		clients: make(map[string]*clientEntry),
		r:       r,
		b:       b,
	}
}

// Allow reports whether the client identified by addr may proceed.
func (c *ClientRateLimiter) Allow(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if len(c.clients) > limiterCleanupThreshold {
		cutoff := now.Add(-limiterMaxIdle)
		for k, e := range c.clients {
			if e.lastSeen.Before(cutoff) {
				delete(c.clients, k)
			}
		}
	}

	e, ok := c.clients[host]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(c.r, c.b)}
		c.clients[host] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// RateLimitMiddleware rejects requests over the client's budget with 429.
// A nil limiter disables limiting.
func RateLimitMiddleware(limiter *ClientRateLimiter, endpoint string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.RemoteAddr) {
				metrics.RecordRateLimited(endpoint)
				writeError(w, http.StatusTooManyRequests, "rate_limited", ErrRateLimited)
				return
			}
			next(w, r)
		}
	}
}

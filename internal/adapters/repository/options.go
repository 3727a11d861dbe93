package repository

import (
	"time"

	"github.com/okian/rangeboard/internal/domain/ledger"
	"github.com/okian/rangeboard/pkg/logger"
)

// Option applies a configuration option to the LedgerStore.
type Option func(*LedgerStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *LedgerStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithLogger sets the logger handed to the underlying ledger.
func WithLogger(l logger.Logger) Option {
	return func(s *LedgerStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConsistencyChecks verifies the tree after every rebuild.
func WithConsistencyChecks(enabled bool) Option {
	return func(s *LedgerStore) {
		s.verify = enabled
	}
}

// WithLedgerOptions passes extra options through to ledger.New.
func WithLedgerOptions(opts ...ledger.Option) Option {
	return func(s *LedgerStore) {
		s.ledgerOpts = append(s.ledgerOpts, opts...)
	}
}

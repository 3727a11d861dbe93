// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and environment on top.
// - Validation errors wrap ErrInvalidConfig so callers can use errors.Is.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory match event queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of match workers. More than one worker
	// may apply concurrently submitted matches out of submission order.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the match id cache used for idempotent submissions.
	DedupeSize int `koanf:"dedupe_size"`

	// SeedFile optionally points at a YAML ledger seed loaded at startup.
	SeedFile string `koanf:"seed_file"`

	// VerifyRebuilds re-checks every tree invariant after each rebuild.
	VerifyRebuilds bool `koanf:"verify_rebuilds"`

	// MutationRatePerSec and MutationBurst shape the token bucket in front of
	// mutating endpoints. A zero rate disables limiting.
	MutationRatePerSec float64 `koanf:"mutation_rate_per_sec"`
	MutationBurst      int     `koanf:"mutation_burst"`

	// MaxBodyBytes caps request bodies on mutating endpoints.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		QueueSize:          10_000,
		WorkerCount:        1,
		DedupeSize:         100_000,
		VerifyRebuilds:     false,
		MutationRatePerSec: 200,
		MutationBurst:      50,
		MaxBodyBytes:       1 << 20,
	}
}

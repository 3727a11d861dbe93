// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/rangeboard/internal/adapters/repository"
	"github.com/okian/rangeboard/internal/domain/dedupe"
	"github.com/okian/rangeboard/internal/domain/ledger"
	"github.com/okian/rangeboard/internal/domain/model"
	"github.com/okian/rangeboard/internal/domain/types"
	"github.com/okian/rangeboard/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	defaultMaxBodyBytes = 1 << 20
	defaultRatePerSec   = 200
	defaultBurst        = 50
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper
	LedgerWriter
	LedgerReader

	// Enqueue pushes a match for async recording. Returns false on backpressure.
	Enqueue(ctx context.Context, e model.MatchEvent) bool
}

// LedgerWriter covers the synchronous roster operations.
type LedgerWriter interface {
	Build(ctx context.Context, names []string, winners []int) error
	AddTeam(ctx context.Context, name string, initialWins int) error
	RemoveTeam(ctx context.Context, name string) error
}

// LedgerReader covers every read the handlers perform.
type LedgerReader interface {
	QueryRange(ctx context.Context, from, to int) ledger.RangeBest
	Leader(ctx context.Context) string
	State(ctx context.Context) ledger.State
	HasTeam(ctx context.Context, name string) bool
	Suggest(ctx context.Context, name string) []string
	Count(ctx context.Context) (teams, matches int)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	ledgerHandler  *LedgerHandler
	teamsHandler   *TeamsHandler
	matchesHandler *MatchesHandler
	leaderHandler  *LeaderHandler
	rangeHandler   *RangeHandler
	stateHandler   *StateHandler

	limiter      *ClientRateLimiter
	maxBodyBytes int64
	logger       logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateLimit limits mutating requests per client address.
func WithRateLimit(perSec float64, burst int) ServerOption {
	return func(s *Server) {
		if perSec > 0 && burst > 0 {
			s.limiter = NewClientRateLimiter(rate.Limit(perSec), burst)
		}
	}
}

// WithMaxBodyBytes caps the size of request bodies.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger used for unexpected handler errors.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		limiter:      NewClientRateLimiter(defaultRatePerSec, defaultBurst),
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	body := bodyLimits{maxBytes: s.maxBodyBytes}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.ledgerHandler = NewLedgerHandler(deps, body, s.logger)
	s.teamsHandler = NewTeamsHandler(deps, body, s.logger)
	s.matchesHandler = NewMatchesHandler(deps, body, s.logger)
	s.leaderHandler = NewLeaderHandler(deps)
	s.rangeHandler = NewRangeHandler(deps)
	s.stateHandler = NewStateHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	limited := func(h http.HandlerFunc, endpoint string) http.HandlerFunc {
		return MetricsMiddleware(RateLimitMiddleware(s.limiter, endpoint)(h), endpoint)
	}

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/ledger", limited(s.ledgerHandler.HandlePutLedger, "ledger"))
	mux.HandleFunc("/teams", limited(s.teamsHandler.HandlePostTeam, "teams"))
	mux.HandleFunc("/teams/", limited(s.teamsHandler.HandleDeleteTeam, "teams"))
	mux.HandleFunc("/matches", limited(s.matchesHandler.HandlePostMatch, "matches"))
	mux.HandleFunc("/leader", MetricsMiddleware(s.leaderHandler.HandleGetLeader, "leader"))
	mux.HandleFunc("/range", MetricsMiddleware(s.rangeHandler.HandleGetRange, "range"))
	mux.HandleFunc("/state", MetricsMiddleware(s.stateHandler.HandleGetState, "state"))
}

type bodyLimits struct {
	maxBytes int64
}

// decode reads a single JSON object from the request body.
func (b bodyLimits) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, b.maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON body", ErrBadRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}

// writeLedgerError translates ledger and store errors into HTTP replies.
func writeLedgerError(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	var unknown *ledger.UnknownTeamError
	switch {
	case errors.As(err, &unknown):
		writeJSON(w, http.StatusNotFound, types.ErrorResponse{
			Code:        "team_not_found",
			Message:     err.Error(),
			Suggestions: unknown.Suggestions,
		})
	case errors.Is(err, ledger.ErrTeamNotFound):
		writeError(w, http.StatusNotFound, "team_not_found", err)
	case errors.Is(err, ledger.ErrDuplicateTeam):
		writeError(w, http.StatusConflict, "duplicate_team", err)
	case errors.Is(err, ledger.ErrEmptyInput), errors.Is(err, ledger.ErrInvalidTeamName):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		log.Error(ctx, "unexpected ledger error", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func summary(ctx context.Context, deps LedgerReader, status string) types.LedgerSummary {
	teams, matches := deps.Count(ctx)
	return types.LedgerSummary{
		Status:  status,
		Teams:   teams,
		Matches: matches,
		Leader:  deps.Leader(ctx),
	}
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rangeboard/internal/domain/dedupe"
	"github.com/okian/rangeboard/internal/domain/ledger"
	"github.com/okian/rangeboard/internal/domain/model"
	"github.com/okian/rangeboard/internal/domain/types"
	"github.com/okian/rangeboard/pkg/logger"
	"github.com/okian/rangeboard/pkg/metrics"
)

// MatchDependencies defines the interface for match submission dependencies.
type MatchDependencies interface {
	dedupe.Deduper
	HasTeam(ctx context.Context, name string) bool
	Suggest(ctx context.Context, name string) []string
	Enqueue(ctx context.Context, e model.MatchEvent) bool
}

// MatchesHandler accepts match results for asynchronous recording.
type MatchesHandler struct {
	deps   MatchDependencies
	body   bodyLimits
	logger logger.Logger
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies, body bodyLimits, log logger.Logger) *MatchesHandler {
	return &MatchesHandler{deps: deps, body: body, logger: log}
}

// HandlePostMatch handles POST /matches requests.
func (h *MatchesHandler) HandlePostMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	var req types.MatchRequest
	if err := h.body.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.Winner) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing winner"))
		return
	}

	// Reject unknown winners up front; the worker re-checks when applying.
	if !h.deps.HasTeam(ctx, req.Winner) {
		err := &ledger.UnknownTeamError{Name: req.Winner, Suggestions: h.deps.Suggest(ctx, req.Winner)}
		writeLedgerError(ctx, w, h.logger, err)
		return
	}

	if req.MatchID == "" {
		req.MatchID = uuid.NewString()
	}

	if h.deps.SeenAndRecord(ctx, req.MatchID) {
		metrics.RecordMatchDuplicate()
		writeJSON(w, http.StatusOK, types.MatchAck{Status: "duplicate", MatchID: req.MatchID, Duplicate: true})
		return
	}

	event := model.MatchEvent{MatchID: req.MatchID, Winner: req.Winner, TS: time.Now().UTC()}
	if ok := h.deps.Enqueue(ctx, event); !ok {
		// Forget the id so the client can retry.
		h.deps.Unrecord(ctx, req.MatchID)
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, types.MatchAck{Status: "accepted", MatchID: req.MatchID})
}

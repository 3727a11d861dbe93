package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/okian/rangeboard/internal/domain/ledger"
	"github.com/okian/rangeboard/internal/domain/types"
)

// RangeDependencies defines the interface for range queries.
type RangeDependencies interface {
	QueryRange(ctx context.Context, from, to int) ledger.RangeBest
}

// RangeHandler handles range requests.
type RangeHandler struct {
	deps RangeDependencies
}

// NewRangeHandler creates a new range handler.
func NewRangeHandler(deps RangeDependencies) *RangeHandler {
	return &RangeHandler{deps: deps}
}

// HandleGetRange handles GET /range?from=L&to=R requests. Missing bounds
// default to the whole history; out-of-range values are clamped by the ledger.
func (h *RangeHandler) HandleGetRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	from, err := parseBound(q.Get("from"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: from: %w", ErrBadRequest, err))
		return
	}
	to, err := parseBound(q.Get("to"), math.MaxInt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: to: %w", ErrBadRequest, err))
		return
	}

	res := h.deps.QueryRange(r.Context(), from, to)
	writeJSON(w, http.StatusOK, types.RangeResponse{
		Team:             res.Team,
		WinsInRange:      res.WinsInRange,
		TotalWinsOverall: res.TotalWinsOverall,
		From:             res.From,
		To:               res.To,
	})
}

func parseBound(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return v, nil
}

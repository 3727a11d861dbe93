package api

import (
	"context"
	"net/http"

	"github.com/okian/rangeboard/internal/domain/types"
	"github.com/okian/rangeboard/pkg/logger"
)

// LedgerDependencies defines what the build handler needs.
type LedgerDependencies interface {
	LedgerReader
	Build(ctx context.Context, names []string, winners []int) error
}

// LedgerHandler handles whole-ledger replacement.
type LedgerHandler struct {
	deps   LedgerDependencies
	body   bodyLimits
	logger logger.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(deps LedgerDependencies, body bodyLimits, log logger.Logger) *LedgerHandler {
	return &LedgerHandler{deps: deps, body: body, logger: log}
}

// HandlePutLedger handles PUT /ledger requests.
func (h *LedgerHandler) HandlePutLedger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	var req types.BuildRequest
	if err := h.body.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.Build(r.Context(), req.Teams, req.Winners); err != nil {
		writeLedgerError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary(r.Context(), h.deps, "built"))
}

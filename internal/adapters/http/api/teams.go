package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/rangeboard/internal/domain/types"
	"github.com/okian/rangeboard/pkg/logger"
)

// TeamsDependencies defines the interface for roster operations.
type TeamsDependencies interface {
	LedgerReader
	AddTeam(ctx context.Context, name string, initialWins int) error
	RemoveTeam(ctx context.Context, name string) error
}

// TeamsHandler handles team registration and removal.
type TeamsHandler struct {
	deps   TeamsDependencies
	body   bodyLimits
	logger logger.Logger
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamsDependencies, body bodyLimits, log logger.Logger) *TeamsHandler {
	return &TeamsHandler{deps: deps, body: body, logger: log}
}

// HandlePostTeam handles POST /teams requests.
func (h *TeamsHandler) HandlePostTeam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.TeamRequest
	if err := h.body.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.AddTeam(r.Context(), req.Name, req.Wins); err != nil {
		writeLedgerError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary(r.Context(), h.deps, "team_added"))
}

// HandleDeleteTeam handles DELETE /teams/{name} requests. The name is taken
// from the escaped path so names containing '/' can be removed.
func (h *TeamsHandler) HandleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	escaped := strings.TrimPrefix(r.URL.EscapedPath(), "/teams/")
	name, err := url.PathUnescape(escaped)
	if err != nil || name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := h.deps.RemoveTeam(r.Context(), name); err != nil {
		writeLedgerError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary(r.Context(), h.deps, "team_removed"))
}

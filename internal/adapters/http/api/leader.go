package api

import (
	"context"
	"net/http"

	"github.com/okian/rangeboard/internal/domain/types"
)

// LeaderDependencies defines the interface for leader lookups.
type LeaderDependencies interface {
	Leader(ctx context.Context) string
	Count(ctx context.Context) (teams, matches int)
}

// LeaderHandler handles leader requests.
type LeaderHandler struct {
	deps LeaderDependencies
}

// NewLeaderHandler creates a new leader handler.
func NewLeaderHandler(deps LeaderDependencies) *LeaderHandler {
	return &LeaderHandler{deps: deps}
}

// HandleGetLeader handles GET /leader requests.
func (h *LeaderHandler) HandleGetLeader(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	_, matches := h.deps.Count(r.Context())
	writeJSON(w, http.StatusOK, types.LeaderResponse{
		Team:    h.deps.Leader(r.Context()),
		Matches: matches,
	})
}

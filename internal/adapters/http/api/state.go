package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/rangeboard/internal/domain/ledger"
	"github.com/okian/rangeboard/internal/domain/types"
)

// StateDependencies defines the interface for diagnostic state reads.
type StateDependencies interface {
	State(ctx context.Context) ledger.State
}

// StateHandler handles state requests.
type StateHandler struct {
	deps StateDependencies
}

// NewStateHandler creates a new state handler.
func NewStateHandler(deps StateDependencies) *StateHandler {
	return &StateHandler{deps: deps}
}

// HandleGetState handles GET /state requests. With Accept: text/plain the
// ledger's text rendering is returned instead of JSON.
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	st := h.deps.State(r.Context())

	if strings.Contains(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = st.WriteTo(w)
		return
	}

	resp := types.StateResponse{
		Teams:   make([]types.TeamRow, len(st.Teams)),
		Winners: st.Winners,
		Leader:  st.Leader,
		Matches: st.Matches,
	}
	for i, t := range st.Teams {
		resp.Teams[i] = types.TeamRow{Index: t.Index, Name: t.Name, Wins: t.Wins}
	}
	writeJSON(w, http.StatusOK, resp)
}

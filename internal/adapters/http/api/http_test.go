package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/rangeboard/internal/adapters/http/api"
	"github.com/okian/rangeboard/internal/adapters/repository"
	"github.com/okian/rangeboard/internal/domain/dedupe"
	"github.com/okian/rangeboard/internal/domain/model"
	"github.com/okian/rangeboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// testDeps backs the handlers with a real store and deduper. Enqueued
// matches are applied immediately unless the queue is marked full.
type testDeps struct {
	*repository.LedgerStore
	dedupe.Deduper

	mu       sync.Mutex
	full     bool
	enqueued []model.MatchEvent
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	store := repository.NewLedgerStore(context.Background())
	t.Cleanup(func() { _ = store.Close() })
	return &testDeps{LedgerStore: store, Deduper: dedupe.NewInMemoryDeduper()}
}

func (d *testDeps) Enqueue(ctx context.Context, e model.MatchEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.full {
		return false
	}
	d.enqueued = append(d.enqueued, e)
	return d.RecordMatch(ctx, e.Winner) == nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

func newMux(deps api.Dependencies, opts ...api.ServerOption) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"ok": true}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.NewDecoder(w.Body).Decode(&v), ShouldBeNil)
	return v
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newTestDeps(t))

		Convey("Then health endpoint should serve metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats endpoint should be accessible", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]any](w)["ok"], ShouldEqual, true)
		})

		Convey("Then unknown paths return 404", func() {
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods return 404", func() {
			So(do(mux, http.MethodGet, "/ledger", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/leader", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLedgerScenario(t *testing.T) {
	Convey("Given a server with a built ledger", t, func() {
		deps := newTestDeps(t)
		mux := newMux(deps)

		w := do(mux, http.MethodPut, "/ledger", `{"teams":["Alpha","Beta"],"winners":[0,1,0,1,0]}`)
		So(w.Code, ShouldEqual, http.StatusOK)
		built := decode[types.LedgerSummary](w)
		So(built.Teams, ShouldEqual, 2)
		So(built.Matches, ShouldEqual, 5)
		So(built.Leader, ShouldEqual, "Alpha")

		Convey("When the leader is requested", func() {
			w := do(mux, http.MethodGet, "/leader", "")

			Convey("Then Alpha leads", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				resp := decode[types.LeaderResponse](w)
				So(resp.Team, ShouldEqual, "Alpha")
				So(resp.Matches, ShouldEqual, 5)
			})
		})

		Convey("When matches 2 to 4 are queried", func() {
			w := do(mux, http.MethodGet, "/range?from=2&to=4", "")

			Convey("Then Beta wins the window", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[types.RangeResponse](w), ShouldResemble, types.RangeResponse{
					Team: "Beta", WinsInRange: 2, TotalWinsOverall: 2, From: 2, To: 4,
				})
			})
		})

		Convey("When the range bounds are reversed and missing", func() {
			reversed := decode[types.RangeResponse](do(mux, http.MethodGet, "/range?from=4&to=2", ""))
			whole := decode[types.RangeResponse](do(mux, http.MethodGet, "/range", ""))

			Convey("Then they are normalised", func() {
				So(reversed.Team, ShouldEqual, "Beta")
				So(whole.From, ShouldEqual, 1)
				So(whole.To, ShouldEqual, 5)
				So(whole.Team, ShouldEqual, "Alpha")
			})
		})

		Convey("When a bound is not an integer", func() {
			w := do(mux, http.MethodGet, "/range?from=two", "")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[types.ErrorResponse](w).Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When a match names an unregistered team", func() {
			w := do(mux, http.MethodPost, "/matches", `{"winner":"Alpah"}`)

			Convey("Then it is rejected with suggestions and nothing is queued", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				resp := decode[types.ErrorResponse](w)
				So(resp.Code, ShouldEqual, "team_not_found")
				So(resp.Suggestions, ShouldContain, "Alpha")
				So(deps.enqueued, ShouldBeEmpty)
				_, matches := deps.Count(context.Background())
				So(matches, ShouldEqual, 5)
			})
		})

		Convey("When a team is added and wins matches", func() {
			So(do(mux, http.MethodPost, "/teams", `{"name":"Gamma","wins":-2}`).Code, ShouldEqual, http.StatusCreated)
			for range 4 {
				So(do(mux, http.MethodPost, "/matches", `{"winner":"Gamma"}`).Code, ShouldEqual, http.StatusAccepted)
			}

			Convey("Then Gamma leads", func() {
				resp := decode[types.LeaderResponse](do(mux, http.MethodGet, "/leader", ""))
				So(resp.Team, ShouldEqual, "Gamma")
				So(resp.Matches, ShouldEqual, 9)
			})
		})

		Convey("When a duplicate team is added", func() {
			w := do(mux, http.MethodPost, "/teams", `{"name":"Beta"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("When a team is removed", func() {
			w := do(mux, http.MethodDelete, "/teams/Beta", "")

			Convey("Then its matches are gone", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				resp := decode[types.LedgerSummary](w)
				So(resp.Teams, ShouldEqual, 1)
				So(resp.Matches, ShouldEqual, 3)
			})
		})

		Convey("When an unknown team is removed", func() {
			w := do(mux, http.MethodDelete, "/teams/Betta", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode[types.ErrorResponse](w).Suggestions, ShouldContain, "Beta")
		})

		Convey("When the state is requested", func() {
			st := decode[types.StateResponse](do(mux, http.MethodGet, "/state", ""))

			Convey("Then it lists teams and named winners", func() {
				So(st.Matches, ShouldEqual, 5)
				So(st.Winners, ShouldResemble, []string{"Alpha", "Beta", "Alpha", "Beta", "Alpha"})
				So(st.Teams, ShouldResemble, []types.TeamRow{{Index: 0, Name: "Alpha", Wins: 3}, {Index: 1, Name: "Beta", Wins: 2}})
			})
		})

		Convey("When the state is requested as text", func() {
			req := httptest.NewRequest(http.MethodGet, "/state", nil)
			req.Header.Set("Accept", "text/plain")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the text rendering is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "Leader: Alpha")
			})
		})
	})
}

func TestLedgerHandler_BadInput(t *testing.T) {
	Convey("Given a server", t, func() {
		mux := newMux(newTestDeps(t), api.WithMaxBodyBytes(64))

		Convey("Then an empty roster is rejected", func() {
			w := do(mux, http.MethodPut, "/ledger", `{"teams":[],"winners":[0]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then duplicate names are rejected", func() {
			w := do(mux, http.MethodPut, "/ledger", `{"teams":["A","A"],"winners":[0]}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("Then malformed JSON is rejected", func() {
			So(do(mux, http.MethodPut, "/ledger", `{"teams":`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPut, "/ledger", `{"teams":["A"],"winners":[0]} {}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/teams", `{"name":"A","colour":"red"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then oversized bodies are rejected", func() {
			body := `{"teams":["` + strings.Repeat("x", 100) + `"],"winners":[0]}`
			So(do(mux, http.MethodPut, "/ledger", body).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then a match without a winner is rejected", func() {
			So(do(mux, http.MethodPost, "/matches", `{"match_id":"m1"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then reads on an empty ledger return empty results", func() {
			So(decode[types.LeaderResponse](do(mux, http.MethodGet, "/leader", "")).Team, ShouldEqual, "")
			So(decode[types.RangeResponse](do(mux, http.MethodGet, "/range?from=1&to=3", "")), ShouldResemble, types.RangeResponse{})
		})
	})
}

func TestMatchesHandler_HandlePostMatch(t *testing.T) {
	Convey("Given a matches handler over a built ledger", t, func() {
		deps := newTestDeps(t)
		So(deps.Build(context.Background(), []string{"Alpha", "Beta"}, []int{0}), ShouldBeNil)
		mux := newMux(deps)

		Convey("When a match is submitted without an id", func() {
			w := do(mux, http.MethodPost, "/matches", `{"winner":"Beta"}`)

			Convey("Then one is generated", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				ack := decode[types.MatchAck](w)
				So(ack.Status, ShouldEqual, "accepted")
				So(ack.MatchID, ShouldNotBeEmpty)
				So(deps.enqueued[0].MatchID, ShouldEqual, ack.MatchID)
			})
		})

		Convey("When the same match id is submitted twice", func() {
			first := do(mux, http.MethodPost, "/matches", `{"match_id":"m-1","winner":"Beta"}`)
			second := do(mux, http.MethodPost, "/matches", `{"match_id":"m-1","winner":"Beta"}`)

			Convey("Then the second is acknowledged as a duplicate and not recorded", func() {
				So(first.Code, ShouldEqual, http.StatusAccepted)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(decode[types.MatchAck](second).Duplicate, ShouldBeTrue)
				So(len(deps.enqueued), ShouldEqual, 1)
			})
		})

		Convey("When the queue is full", func() {
			deps.full = true
			w := do(mux, http.MethodPost, "/matches", `{"match_id":"m-2","winner":"Beta"}`)

			Convey("Then it reports backpressure and the id can be retried", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode[types.ErrorResponse](w).Code, ShouldEqual, "backpressure")

				deps.full = false
				So(do(mux, http.MethodPost, "/matches", `{"match_id":"m-2","winner":"Beta"}`).Code, ShouldEqual, http.StatusAccepted)
			})
		})
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	Convey("Given a server with a tight mutation budget", t, func() {
		deps := newTestDeps(t)
		So(deps.Build(context.Background(), []string{"Alpha"}, []int{0}), ShouldBeNil)
		mux := newMux(deps, api.WithRateLimit(0.001, 2))

		Convey("When a client exceeds its burst", func() {
			codes := make([]int, 0, 3)
			for range 3 {
				codes = append(codes, do(mux, http.MethodPost, "/matches", `{"winner":"Alpha"}`).Code)
			}

			Convey("Then the extra request is rejected", func() {
				So(codes, ShouldResemble, []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests})
			})

			Convey("Then reads are not limited", func() {
				So(do(mux, http.MethodGet, "/leader", "").Code, ShouldEqual, http.StatusOK)
			})
		})
	})

	Convey("Given a limiter shared by two clients", t, func() {
		limiter := api.NewClientRateLimiter(0.001, 1)

		Convey("Then each client has its own budget", func() {
			So(limiter.Allow("10.0.0.1:1234"), ShouldBeTrue)
			So(limiter.Allow("10.0.0.1:5678"), ShouldBeFalse)
			So(limiter.Allow("10.0.0.2:1234"), ShouldBeTrue)
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		handler := api.NewStatsHandler(&mockStatsProvider{
			stats: map[string]any{"matches": 12, "teams": 3},
		})

		Convey("When handling stats request", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			w := httptest.NewRecorder()
			handler.HandleStats(w, req)

			Convey("Then it should return stats", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				response := decode[map[string]any](w)
				So(response["matches"], ShouldEqual, float64(12))
				So(response["teams"], ShouldEqual, float64(3))
			})
		})
	})
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	Convey("Given a health handler", t, func() {
		handler := api.NewHealthHandler()

		Convey("When handling health check request", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			w := httptest.NewRecorder()
			handler.HandleHealth(w, req)

			Convey("Then it should expose ledger metrics", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "rangeboard_")
			})
		})
	})
}

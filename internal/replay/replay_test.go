package replay_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/rangeboard/internal/adapters/http/api"
	service "github.com/okian/rangeboard/internal/app"
	"github.com/okian/rangeboard/internal/client"
	"github.com/okian/rangeboard/internal/domain/types"
	"github.com/okian/rangeboard/internal/replay"
	"github.com/okian/rangeboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestRunAgainstServer(t *testing.T) {
	convey.Convey("Given a running server", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(service.WithLogger(logger.Nop()), service.WithConsistencyChecks(true))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, api.WithRateLimit(10_000, 1_000)).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		c, err := client.New(srv.URL)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When a generated history is replayed", func() {
			plan, err := replay.NewPlan(99, 8, 120)
			convey.So(err, convey.ShouldBeNil)

			runner := replay.NewRunner(c,
				replay.WithRate(0, 0),
				replay.WithPreload(20),
				replay.WithQueries(30),
				replay.WithQuerySeed(5),
			)
			rep, err := runner.Run(ctx, plan)

			convey.Convey("Then every answer matches the recount", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(rep.OK(), convey.ShouldBeTrue)
				convey.So(rep.Preloaded, convey.ShouldEqual, 20)
				convey.So(rep.Submitted, convey.ShouldEqual, 100)
				convey.So(rep.Queries, convey.ShouldEqual, 32)
				convey.So(rep.Leader, convey.ShouldNotBeEmpty)
			})
		})
	})
}

// fakeAPI answers like a server that records everything instantly, with
// hooks to inject throttling and wrong answers.
type fakeAPI struct {
	teams      []string
	winners    []int
	throttle   int
	wrongLeader bool
}

func (f *fakeAPI) Build(_ context.Context, teams []string, winners []int) (types.LedgerSummary, error) {
	f.teams = teams
	f.winners = append([]int(nil), winners...)
	return types.LedgerSummary{Status: "built", Teams: len(teams), Matches: len(winners)}, nil
}

func (f *fakeAPI) SubmitMatch(_ context.Context, matchID, winner string) (types.MatchAck, error) {
	if f.throttle > 0 {
		f.throttle--
		return types.MatchAck{}, &client.APIError{StatusCode: http.StatusTooManyRequests, Code: "backpressure"}
	}
	for i, name := range f.teams {
		if name == winner {
			f.winners = append(f.winners, i)
		}
	}
	return types.MatchAck{Status: "accepted", MatchID: matchID}, nil
}

func (f *fakeAPI) Leader(context.Context) (types.LeaderResponse, error) {
	counts := make([]int, len(f.teams))
	for _, w := range f.winners {
		counts[w]++
	}
	team, top := "", 0
	for i, c := range counts {
		if c > top || (c == top && c > 0 && f.teams[i] < team) {
			team, top = f.teams[i], c
		}
	}
	if f.wrongLeader {
		team = "nobody"
	}
	return types.LeaderResponse{Team: team, Matches: len(f.winners)}, nil
}

func (f *fakeAPI) Range(_ context.Context, from, to int) (types.RangeResponse, error) {
	return types.RangeResponse{}, nil
}

func (f *fakeAPI) State(context.Context) (types.StateResponse, error) {
	names := make([]string, len(f.winners))
	for i, w := range f.winners {
		names[i] = f.teams[w]
	}
	return types.StateResponse{Winners: names, Matches: len(names)}, nil
}

func TestRunWithFakeAPI(t *testing.T) {
	convey.Convey("Given a plan", t, func() {
		ctx := context.Background()
		plan, err := replay.NewPlan(3, 3, 10)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the server throttles twice", func() {
			f := &fakeAPI{throttle: 2}
			runner := replay.NewRunner(f,
				replay.WithRate(0, 0),
				replay.WithQueries(0),
				replay.WithRetries(3, time.Millisecond),
			)
			rep, err := runner.Run(ctx, plan)

			convey.Convey("Then the submissions are retried and the replay passes", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(rep.Retries, convey.ShouldEqual, 2)
				convey.So(rep.Submitted, convey.ShouldEqual, 9)
			})
		})

		convey.Convey("When throttling outlasts the retry budget", func() {
			f := &fakeAPI{throttle: 10}
			runner := replay.NewRunner(f,
				replay.WithRate(0, 0),
				replay.WithRetries(1, time.Millisecond),
			)
			_, err := runner.Run(ctx, plan)

			convey.Convey("Then the replay fails with the throttling error", func() {
				convey.So(errors.Is(err, client.ErrThrottled), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the server reports the wrong leader", func() {
			f := &fakeAPI{wrongLeader: true}
			runner := replay.NewRunner(f, replay.WithRate(0, 0), replay.WithQueries(0))
			rep, err := runner.Run(ctx, plan)

			convey.Convey("Then the mismatch is reported", func() {
				convey.So(errors.Is(err, replay.ErrMismatch), convey.ShouldBeTrue)
				convey.So(rep.OK(), convey.ShouldBeFalse)
				convey.So(rep.Mismatches[0].Query, convey.ShouldEqual, "leader")
			})
		})

		convey.Convey("When the server never records the matches", func() {
			f := &stuckAPI{fakeAPI: &fakeAPI{}}
			runner := replay.NewRunner(f,
				replay.WithRate(0, 0),
				replay.WithSettleTimeout(50*time.Millisecond),
			)
			_, err := runner.Run(ctx, plan)

			convey.Convey("Then the replay gives up", func() {
				convey.So(errors.Is(err, replay.ErrNotSettled), convey.ShouldBeTrue)
			})
		})
	})
}

// stuckAPI accepts submissions but never records them.
type stuckAPI struct {
	*fakeAPI
}

func (s *stuckAPI) SubmitMatch(_ context.Context, matchID, _ string) (types.MatchAck, error) {
	return types.MatchAck{Status: "accepted", MatchID: matchID}, nil
}

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/okian/rangeboard/internal/replay"
	"github.com/okian/rangeboard/pkg/logger"
	"github.com/spf13/cobra"
)

type replayFlags struct {
	teams     int
	matches   int
	seed      uint64
	rate      float64
	burst     int
	preload   int
	queries   int
	save      string
	logFormat string
}

func newReplayCmd(g *globals) *cobra.Command {
	f := &replayFlags{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a generated history against the server and verify it",
		Long: `Generate fake teams and match results, rebuild the server's ledger from
them, submit the matches one at a time, then compare the leader, the history
and a set of random ranges with a local recount.

This REPLACES the ledger on the target server.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().IntVar(&f.teams, "teams", 10, "number of teams to generate")
	cmd.Flags().IntVar(&f.matches, "matches", 1000, "number of matches to generate")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "generator seed; 0 picks a random one")
	cmd.Flags().Float64Var(&f.rate, "rate", 100, "submissions per second; 0 for unlimited")
	cmd.Flags().IntVar(&f.burst, "burst", 10, "submission burst size")
	cmd.Flags().IntVar(&f.preload, "preload", 1, "matches sent with the initial build")
	cmd.Flags().IntVar(&f.queries, "queries", 25, "range checks to run after the replay")
	cmd.Flags().StringVar(&f.save, "save", "", "write the generated history as a seed file")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "text", "progress log format: text or json")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		plan, err := replay.NewPlan(f.seed, f.teams, f.matches)
		if err != nil {
			return err
		}
		if f.save != "" {
			if err := plan.Seed().Save(f.save); err != nil {
				return err
			}
		}

		if err := logger.InitWithWriter(cmd.ErrOrStderr(), logger.Format(f.logFormat)); err != nil {
			return err
		}
		c, err := g.client()
		if err != nil {
			return err
		}

		runner := replay.NewRunner(c,
			replay.WithRate(f.rate, f.burst),
			replay.WithPreload(f.preload),
			replay.WithQueries(f.queries),
			replay.WithQuerySeed(f.seed),
			replay.WithLogger(logger.Named("replay")),
		)
		rep, runErr := runner.Run(cmd.Context(), plan)
		if rep != nil {
			if err := g.emit(cmd.OutOrStdout(), rep, func(w io.Writer) { writeReport(w, rep) }); err != nil {
				return err
			}
		}
		return runErr
	}
	return cmd
}

func writeReport(w io.Writer, r *replay.Report) {
	fmt.Fprintf(w, "teams %d, matches %d (%d preloaded, %d submitted, %d retries)\n",
		r.Teams, r.Matches, r.Preloaded, r.Submitted, r.Retries)
	fmt.Fprintf(w, "leader %s, %d checks in %s\n", r.Leader, r.Queries, r.Elapsed.Round(time.Millisecond))
	for _, m := range r.Mismatches {
		fmt.Fprintf(w, "MISMATCH %s: want %+v, got %+v\n", m.Query, m.Want, m.Got)
	}
}


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/rangeboard/internal/client"
	"github.com/okian/rangeboard/internal/domain/types"
	"github.com/okian/rangeboard/internal/seed"
	"github.com/spf13/cobra"
)

func newBuildCmd(g *globals) *cobra.Command {
	var (
		teams    []string
		winners  []int
		seedFile string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Replace the ledger with a roster and match history",
		Long: `Replace every team and match on the server.

Either give the roster and winner indices directly, or a YAML seed file:
  matchctl build --teams Alpha,Beta --winners 0,1,0
  matchctl build --seed ledger.yaml`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringSliceVar(&teams, "teams", nil, "team names in registry order")
	cmd.Flags().IntSliceVar(&winners, "winners", nil, "winning team index of every match")
	cmd.Flags().StringVar(&seedFile, "seed", "", "YAML seed file to build from")
	cmd.MarkFlagsMutuallyExclusive("seed", "teams")
	cmd.MarkFlagsMutuallyExclusive("seed", "winners")

	cmd.RunE = withClient(g, func(ctx context.Context, c *client.Client, out io.Writer) error {
		if seedFile != "" {
			doc, err := seed.Load(seedFile)
			if err != nil {
				return err
			}
			if teams, winners, err = doc.Resolve(); err != nil {
				return err
			}
		}
		sum, err := c.Build(ctx, teams, winners)
		if err != nil {
			return err
		}
		return g.emit(out, sum, func(w io.Writer) { writeSummary(w, sum) })
	})
	return cmd
}

func newAddTeamCmd(g *globals) *cobra.Command {
	var wins int
	cmd := &cobra.Command{
		Use:   "add-team NAME",
		Short: "Register a team",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().IntVar(&wins, "wins", 0, "initial cumulative wins (negative is treated as zero)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := g.client()
		if err != nil {
			return err
		}
		sum, err := c.AddTeam(cmd.Context(), args[0], wins)
		if err != nil {
			return err
		}
		return g.emit(cmd.OutOrStdout(), sum, func(w io.Writer) { writeSummary(w, sum) })
	}
	return cmd
}

func newRemoveTeamCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-team NAME",
		Short: "Remove a team and every match it won",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			sum, err := c.RemoveTeam(cmd.Context(), args[0])
			if err != nil {
				printSuggestions(cmd.ErrOrStderr(), err)
				return err
			}
			return g.emit(cmd.OutOrStdout(), sum, func(w io.Writer) { writeSummary(w, sum) })
		},
	}
}

func newAddMatchCmd(g *globals) *cobra.Command {
	var matchID string
	cmd := &cobra.Command{
		Use:   "add-match WINNER",
		Short: "Record a match won by a registered team",
		Long: `Submit a match result. The server records it asynchronously.

Passing the same --id twice records the match once.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&matchID, "id", "", "idempotency key; assigned by the server when empty")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := g.client()
		if err != nil {
			return err
		}
		ack, err := c.SubmitMatch(cmd.Context(), matchID, args[0])
		if err != nil {
			printSuggestions(cmd.ErrOrStderr(), err)
			return err
		}
		return g.emit(cmd.OutOrStdout(), ack, func(w io.Writer) {
			if ack.Duplicate {
				fmt.Fprintf(w, "match %s already recorded\n", ack.MatchID)
				return
			}
			fmt.Fprintf(w, "match %s %s\n", ack.MatchID, ack.Status)
		})
	}
	return cmd
}

func newLeaderCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "leader",
		Short: "Show the team with the most wins",
		Args:  cobra.NoArgs,
		RunE: withClient(g, func(ctx context.Context, c *client.Client, out io.Writer) error {
			lr, err := c.Leader(ctx)
			if err != nil {
				return err
			}
			return g.emit(out, lr, func(w io.Writer) { writeLeader(w, lr) })
		}),
	}
}

func newRangeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "range FROM TO",
		Short: "Show the best team over matches FROM..TO (1-based, inclusive)",
		Long: `Show the team with the most wins among matches FROM..TO.

Bounds outside the history are clamped and reversed bounds are swapped.
Equal win counts go to the alphabetically smaller name.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("FROM: %w", err)
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("TO: %w", err)
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			rr, err := c.Range(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), rr, func(w io.Writer) { writeRange(w, rr) })
		},
	}
}

func newStateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print teams, totals and the match history",
		Args:  cobra.NoArgs,
		RunE: withClient(g, func(ctx context.Context, c *client.Client, out io.Writer) error {
			if g.json {
				st, err := c.State(ctx)
				if err != nil {
					return err
				}
				return g.emit(out, st, nil)
			}
			text, err := c.StateText(ctx)
			if err != nil {
				return err
			}
			_, err = io.WriteString(out, text)
			return err
		}),
	}
}

func suggestions(err error) []string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Suggestions
	}
	return nil
}

func writeSummary(w io.Writer, s types.LedgerSummary) {
	leader := s.Leader
	if leader == "" {
		leader = "none"
	}
	fmt.Fprintf(w, "%s: %d teams, %d matches, leader %s\n", s.Status, s.Teams, s.Matches, leader)
}

func writeLeader(w io.Writer, lr types.LeaderResponse) {
	if lr.Team == "" {
		fmt.Fprintf(w, "no leader yet (%d matches)\n", lr.Matches)
		return
	}
	fmt.Fprintf(w, "%s leads after %d matches\n", lr.Team, lr.Matches)
}

func writeRange(w io.Writer, rr types.RangeResponse) {
	if rr.Team == "" {
		if rr.From == 0 {
			fmt.Fprintln(w, "no matches recorded")
			return
		}
		fmt.Fprintf(w, "matches %d..%d: no winner\n", rr.From, rr.To)
		return
	}
	fmt.Fprintf(w, "matches %d..%d: %s with %d wins in range, %d overall\n",
		rr.From, rr.To, rr.Team, rr.WinsInRange, rr.TotalWinsOverall)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/rangeboard/internal/client"
	"github.com/spf13/cobra"
)

const (
	envServer     = "MATCHCTL_SERVER"
	defaultServer = "http://localhost:9080"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	server  string
	timeout time.Duration
	json    bool
}

func (g *globals) client() (*client.Client, error) {
	return client.New(g.server, client.WithTimeout(g.timeout))
}

// emit prints v as indented JSON when --json is set and otherwise calls text.
func (g *globals) emit(w io.Writer, v any, text func(io.Writer)) error {
	if g.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "matchctl",
		Short: "Manage and query a rangeboard match ledger",
		Long: `matchctl talks to a running rangeboard server.

Examples:
  matchctl build --teams Alpha,Beta --winners 0,1,0
  matchctl add-match Beta
  matchctl range 2 3
  matchctl replay --teams 20 --matches 5000 --seed 7`,
		SilenceUsage: true,
	}

	server := os.Getenv(envServer)
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVarP(&g.server, "server", "s", server,
		"server base URL (env "+envServer+")")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 10*time.Second,
		"per-request timeout")
	root.PersistentFlags().BoolVar(&g.json, "json", false,
		"print raw JSON responses")

	root.AddCommand(
		newBuildCmd(g),
		newAddTeamCmd(g),
		newRemoveTeamCmd(g),
		newAddMatchCmd(g),
		newLeaderCmd(g),
		newRangeCmd(g),
		newStateCmd(g),
		newReplayCmd(g),
	)
	return root
}

// withClient runs fn with a client and the command's context.
func withClient(g *globals, fn func(ctx context.Context, c *client.Client, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		c, err := g.client()
		if err != nil {
			return err
		}
		return fn(cmd.Context(), c, cmd.OutOrStdout())
	}
}

func printSuggestions(w io.Writer, err error) {
	if s := suggestions(err); len(s) > 0 {
		fmt.Fprintf(w, "did you mean: %v\n", s)
	}
}

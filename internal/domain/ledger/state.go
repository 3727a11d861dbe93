package ledger

import (
	"fmt"
	"io"
	"strings"
)

// TeamState is one registry row.
type TeamState struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Wins  int    `json:"wins"`
}

// State is a point-in-time copy of the ledger for diagnostics.
type State struct {
	Teams   []TeamState `json:"teams"`
	Winners []string    `json:"winners"`
	Leader  string      `json:"leader"`
	Matches int         `json:"matches"`
}

// State copies the registry and the named history. Unassigned history
// positions are counted in Matches but left out of Winners.
func (l *Ledger) State() State {
	st := State{
		Teams:   make([]TeamState, len(l.names)),
		Winners: make([]string, 0, len(l.winners)),
		Leader:  l.Leader(),
		Matches: len(l.winners),
	}
	for i, name := range l.names {
		st.Teams[i] = TeamState{Index: i, Name: name, Wins: l.wins[i]}
	}
	for _, w := range l.winners {
		if w >= 0 && w < len(l.names) {
			st.Winners = append(st.Winners, l.names[w])
		}
	}
	return st
}

// WriteTo renders the state as plain text.
func (s State) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString("Teams:\n")
	for _, t := range s.Teams {
		fmt.Fprintf(&b, "  [%d] %s: %d wins\n", t.Index, t.Name, t.Wins)
	}
	fmt.Fprintf(&b, "Matches (%d): %s\n", s.Matches, strings.Join(s.Winners, " "))
	if s.Leader == "" {
		b.WriteString("Leader: none\n")
	} else {
		fmt.Fprintf(&b, "Leader: %s\n", s.Leader)
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

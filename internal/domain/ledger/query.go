package ledger

import "github.com/okian/rangeboard/internal/domain/segtree"

// RangeBest is the answer to a range query. Team is empty when the range holds
// no wins for anyone; From and To echo the 1-based bounds actually used.
type RangeBest struct {
	Team             string `json:"team"`
	WinsInRange      int    `json:"winsInRange"`
	TotalWinsOverall int    `json:"totalWinsOverall"`
	From             int    `json:"from"`
	To               int    `json:"to"`
}

// Found reports whether some team won at least one match in the range.
func (r RangeBest) Found() bool { return r.Team != "" }

// Leader returns the best team over the whole history, or "" when no match
// has a registered winner.
func (l *Ledger) Leader() string {
	idx, count := l.tree.Leader()
	if idx == segtree.NoTeam || count == 0 {
		return ""
	}
	return l.names[idx]
}

// LeaderWins returns the leader together with its win count across the
// history, or ("", 0) when nobody has won a match.
func (l *Ledger) LeaderWins() (string, int) {
	idx, count := l.tree.Leader()
	if idx == segtree.NoTeam || count == 0 {
		return "", 0
	}
	return l.names[idx], count
}

// QueryMatchRange finds the team with the most wins among matches from..to,
// 1-based and inclusive. Bounds are clamped into the history independently and
// swapped if they end up reversed, so any pair of integers is accepted.
func (l *Ledger) QueryMatchRange(from, to int) RangeBest {
	n := len(l.winners)
	if n == 0 || len(l.names) == 0 {
		return RangeBest{}
	}

	lo, hi := clampIndex(from, n), clampIndex(to, n)
	if lo > hi {
		lo, hi = hi, lo
	}

	res := RangeBest{From: lo + 1, To: hi + 1}
	idx, count := l.tree.Query(lo, hi)
	if idx == segtree.NoTeam || count == 0 {
		return res
	}
	res.Team = l.names[idx]
	res.WinsInRange = count
	res.TotalWinsOverall = l.wins[idx]
	return res
}

// clampIndex maps a 1-based position onto [0, n-1] without overflowing on
// extreme inputs.
func clampIndex(pos, n int) int {
	switch {
	case pos < 1:
		return 0
	case pos > n:
		return n - 1
	default:
		return pos - 1
	}
}

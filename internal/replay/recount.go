package replay

import "github.com/okian/rangeboard/internal/domain/types"

// recount answers leader and range questions by scanning the plan directly.
// It is the reference the server's answers are checked against.
type recount struct {
	teams   []string
	winners []int
	totals  []int
}

func newRecount(teams []string, winners []int) *recount {
	r := &recount{teams: teams, winners: winners, totals: make([]int, len(teams))}
	for _, w := range winners {
		r.totals[w]++
	}
	return r
}

// best picks the highest count; equal counts go to the smaller name and a
// zero count never wins.
func (r *recount) best(counts []int) (string, int) {
	team, top := "", 0
	for i, c := range counts {
		if c == 0 {
			continue
		}
		if c > top || (c == top && r.teams[i] < team) {
			team, top = r.teams[i], c
		}
	}
	return team, top
}

func (r *recount) leader() string {
	team, _ := r.best(r.totals)
	return team
}

func (r *recount) rangeBest(from, to int) types.RangeResponse {
	n := len(r.winners)
	if n == 0 {
		return types.RangeResponse{}
	}
	lo, hi := clamp(from, n), clamp(to, n)
	if lo > hi {
		lo, hi = hi, lo
	}

	counts := make([]int, len(r.teams))
	for _, w := range r.winners[lo-1 : hi] {
		counts[w]++
	}

	res := types.RangeResponse{From: lo, To: hi}
	team, wins := r.best(counts)
	if team == "" {
		return res
	}
	res.Team = team
	res.WinsInRange = wins
	for i, name := range r.teams {
		if name == team {
			res.TotalWinsOverall = r.totals[i]
			break
		}
	}
	return res
}

// clamp maps a 1-based position into [1, n].
func clamp(pos, n int) int {
	return min(max(pos, 1), n)
}

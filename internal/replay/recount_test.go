package replay

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/rangeboard/internal/domain/ledger"
	"github.com/okian/rangeboard/internal/domain/types"
	"github.com/stretchr/testify/require"
)

func TestRecountAgreesWithLedger(t *testing.T) {
	plan, err := NewPlan(7, 6, 80)
	require.NoError(t, err)

	l := ledger.New()
	require.NoError(t, l.Build(context.Background(), plan.Teams, plan.Winners))
	ref := newRecount(plan.Teams, plan.Winners)

	require.Equal(t, l.Leader(), ref.leader())

	n := len(plan.Winners)
	for from := -1; from <= n+1; from += 3 {
		for to := -1; to <= n+1; to += 5 {
			got := l.QueryMatchRange(from, to)
			want := ref.rangeBest(from, to)
			have := types.RangeResponse{
				Team:             got.Team,
				WinsInRange:      got.WinsInRange,
				TotalWinsOverall: got.TotalWinsOverall,
				From:             got.From,
				To:               got.To,
			}
			if diff := cmp.Diff(want, have); diff != "" {
				t.Fatalf("range %d..%d (-recount +ledger):\n%s", from, to, diff)
			}
		}
	}
}

func TestRecountTieBreak(t *testing.T) {
	ref := newRecount([]string{"Zulu", "Alpha"}, []int{0, 1})

	require.Equal(t, "Alpha", ref.leader())
	require.Equal(t, types.RangeResponse{Team: "Zulu", WinsInRange: 1, TotalWinsOverall: 1, From: 1, To: 1}, ref.rangeBest(1, 1))
	require.Equal(t, "Alpha", ref.rangeBest(2, 1).Team)
}

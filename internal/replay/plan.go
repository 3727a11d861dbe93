package replay

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/okian/rangeboard/internal/seed"
)

// Plan is a generated roster and the winner index of every match, in order.
type Plan struct {
	Teams   []string
	Winners []int
}

// NewPlan generates teams unique team names and matches winners. The same
// seed always yields the same plan; seed 0 picks a random one.
func NewPlan(seedValue uint64, teams, matches int) (Plan, error) {
	if teams < 1 || matches < 1 {
		return Plan{}, fmt.Errorf("%w: need at least one team and one match", ErrInvalidConfig)
	}

	faker := gofakeit.New(seedValue)
	p := Plan{
		Teams:   make([]string, 0, teams),
		Winners: make([]int, matches),
	}

	taken := make(map[string]struct{}, teams)
	for len(p.Teams) < teams {
		name := faker.Company()
		if _, dup := taken[name]; dup {
			name = fmt.Sprintf("%s %s", name, faker.Numerify("###"))
			if _, dup := taken[name]; dup {
				name = fmt.Sprintf("%s #%d", name, len(p.Teams))
			}
		}
		taken[name] = struct{}{}
		p.Teams = append(p.Teams, name)
	}

	for i := range p.Winners {
		p.Winners[i] = faker.Number(0, teams-1)
	}
	return p, nil
}

// Seed converts the plan into a seed document keyed by team name.
func (p Plan) Seed() *seed.File {
	names := make([]string, len(p.Winners))
	for i, w := range p.Winners {
		names[i] = p.Teams[w]
	}
	return &seed.File{Teams: p.Teams, WinnerNames: names}
}

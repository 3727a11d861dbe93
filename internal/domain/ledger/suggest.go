package ledger

import (
	"slices"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Suggest returns up to the configured number of registered names that look
// like name. Subsequence matches rank first, then names within a small edit
// distance, both case-insensitively.
func (l *Ledger) Suggest(name string) []string {
	if l.maxSuggestions == 0 || len(l.names) == 0 || strings.TrimSpace(name) == "" {
		return nil
	}

	lower := make([]string, len(l.names))
	for i, n := range l.names {
		lower[i] = strings.ToLower(n)
	}
	target := strings.ToLower(name)

	ranks := fuzzy.RankFindFold(target, lower)
	sort.Sort(ranks)

	out := make([]string, 0, l.maxSuggestions)
	add := func(i int) bool {
		if !slices.Contains(out, l.names[i]) {
			out = append(out, l.names[i])
		}
		return len(out) >= l.maxSuggestions
	}
	for _, r := range ranks {
		if add(r.OriginalIndex) {
			return out
		}
	}

	type near struct{ idx, dist int }
	limit := max(2, len(target)/3)
	var nearby []near
	for i, n := range lower {
		if d := fuzzy.LevenshteinDistance(target, n); d <= limit {
			nearby = append(nearby, near{i, d})
		}
	}
	sort.SliceStable(nearby, func(a, b int) bool { return nearby[a].dist < nearby[b].dist })
	for _, c := range nearby {
		if add(c.idx) {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (l *Ledger) unknownTeam(name string) error {
	return &UnknownTeamError{Name: name, Suggestions: l.Suggest(name)}
}

// Package segtree implements the range-aggregation tree over a match history.
//
// Each node covers an inclusive slice [start, end] of match positions and
// caches a dense per-team win-count vector together with the locally best
// team. Trees are immutable once built; callers rebuild instead of patching.
package segtree

import (
	"fmt"
)

// NoTeam marks the absence of a best team.
const NoTeam = -1

// node is a single aggregation node. Children are owned exclusively by their
// parent; nothing outside the subtree points into it.
type node struct {
	start     int
	end       int
	counts    []int
	best      int
	bestCount int
	left      *node
	right     *node
}

func newNode(start, end, width int) *node {
	return &node{
		start:  start,
		end:    end,
		counts: make([]int, width),
		best:   NoTeam,
	}
}

func (n *node) isLeaf() bool { return n.start == n.end }

// Tree is a range-aggregation tree built from a snapshot of team names and a
// winner history. The zero value is an empty tree.
type Tree struct {
	root    *node
	names   []string
	winners []int
}

// Build constructs a tree for the given registry and history. Winner indices
// outside [0, len(names)) are kept as positions but contribute no wins.
// Build copies both slices; later changes by the caller do not affect the tree.
func Build(names []string, winners []int) *Tree {
	t := &Tree{
		names:   append([]string(nil), names...),
		winners: append([]int(nil), winners...),
	}
	if len(t.winners) > 0 {
		t.root = t.buildRange(0, len(t.winners)-1)
	}
	// Drop the history copy; nodes hold everything queries need.
	t.winners = nil
	return t
}

func (t *Tree) buildRange(start, end int) *node {
	n := newNode(start, end, len(t.names))

	if start == end {
		w := t.winners[start]
		if w >= 0 && w < len(t.names) {
			n.counts[w] = 1
			n.best = w
			n.bestCount = 1
		}
		return n
	}

	mid := (start + end) / 2
	n.left = t.buildRange(start, mid)
	n.right = t.buildRange(mid+1, end)

	for i := range n.counts {
		n.counts[i] = n.left.counts[i] + n.right.counts[i]
	}
	// Always re-scan the merged vector: a team leading one half may lose overall.
	n.best, n.bestCount = Best(n.counts, t.names)
	return n
}

// Len returns the number of match positions covered by the tree.
func (t *Tree) Len() int {
	if t == nil || t.root == nil {
		return 0
	}
	return t.root.end + 1
}

// Width returns the number of teams each count vector holds.
func (t *Tree) Width() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Leader returns the index and count of the best team over the whole history,
// or NoTeam and zero when the tree is empty or nobody has a win.
func (t *Tree) Leader() (int, int) {
	if t == nil || t.root == nil {
		return NoTeam, 0
	}
	return t.root.best, t.root.bestCount
}

// Counts sums the per-team wins over the 0-based inclusive range [l, r] into
// a fresh vector. Bounds are used as given; callers clamp them first.
func (t *Tree) Counts(l, r int) []int {
	acc := make([]int, t.Width())
	if t == nil || t.root == nil {
		return acc
	}
	queryRange(t.root, l, r, acc)
	return acc
}

// Query returns the best team over [l, r] (0-based, inclusive) and its count.
func (t *Tree) Query(l, r int) (int, int) {
	if t == nil || t.root == nil {
		return NoTeam, 0
	}
	return Best(t.Counts(l, r), t.names)
}

func queryRange(n *node, l, r int, acc []int) {
	if n == nil {
		return
	}
	// disjoint
	if n.end < l || n.start > r {
		return
	}
	// fully covered
	if l <= n.start && n.end <= r {
		for i, c := range n.counts {
			acc[i] += c
		}
		return
	}
	queryRange(n.left, l, r, acc)
	queryRange(n.right, l, r, acc)
}

// Best applies the leader rule to a count vector: highest count wins, equal
// positive counts go to the lexicographically smallest name, and a team with
// zero wins is never chosen.
func Best(counts []int, names []string) (int, int) {
	best, bestCount := NoTeam, 0
	for i, c := range counts {
		switch {
		case c > bestCount:
			best, bestCount = i, c
		case c == bestCount && c > 0 && best != NoTeam && names[i] < names[best]:
			best = i
		}
	}
	return best, bestCount
}

// Verify walks the tree and checks that every internal node's counts equal
// the sum of its children and that every cached best matches a re-scan.
func (t *Tree) Verify() error {
	if t == nil || t.root == nil {
		return nil
	}
	return t.verify(t.root)
}

func (t *Tree) verify(n *node) error {
	if len(n.counts) != len(t.names) {
		return fmt.Errorf("%w: node [%d,%d] has %d counts for %d teams",
			ErrCorrupt, n.start, n.end, len(n.counts), len(t.names))
	}
	if n.isLeaf() {
		if n.left != nil || n.right != nil {
			return fmt.Errorf("%w: leaf [%d,%d] has children", ErrCorrupt, n.start, n.end)
		}
		total := 0
		for _, c := range n.counts {
			total += c
		}
		if total > 1 {
			return fmt.Errorf("%w: leaf [%d,%d] counts %d wins", ErrCorrupt, n.start, n.end, total)
		}
	} else {
		if n.left == nil || n.right == nil {
			return fmt.Errorf("%w: internal node [%d,%d] is missing a child", ErrCorrupt, n.start, n.end)
		}
		mid := (n.start + n.end) / 2
		if n.left.start != n.start || n.left.end != mid || n.right.start != mid+1 || n.right.end != n.end {
			return fmt.Errorf("%w: node [%d,%d] split incorrectly", ErrCorrupt, n.start, n.end)
		}
		for i, c := range n.counts {
			if c != n.left.counts[i]+n.right.counts[i] {
				return fmt.Errorf("%w: node [%d,%d] team %d has %d, children sum to %d",
					ErrCorrupt, n.start, n.end, i, c, n.left.counts[i]+n.right.counts[i])
			}
		}
		if err := t.verify(n.left); err != nil {
			return err
		}
		if err := t.verify(n.right); err != nil {
			return err
		}
	}
	best, bestCount := Best(n.counts, t.names)
	if best != n.best || bestCount != n.bestCount {
		return fmt.Errorf("%w: node [%d,%d] caches best %d/%d, re-scan gives %d/%d",
			ErrCorrupt, n.start, n.end, n.best, n.bestCount, best, bestCount)
	}
	return nil
}

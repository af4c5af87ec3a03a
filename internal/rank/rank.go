// Package rank implements the scheduling primitives shared by every
// variant in internal/scheduler: upward rank (HEFT-style priority), the
// Optimistic Cost Table (PEFT priority), and earliest-finish-time
// computation via insertion-based slot search.
package rank

import (
	"time"

	"github.com/katanaflow/heftsim/internal/dag"
)

// Upward computes rank(n) = exec(n) + max over successors s of
// (transfer(n,s) + rank(s)), with rank(n) = exec(n) for sinks (spec.md
// §4.2). It is computed by memoized DFS; a cycle is guarded against by
// treating re-entry into a node still being computed as rank 0, per
// spec.md §9 (the authoritative guard against cycles is the topological
// sort performed upstream in CPM/validation).
func Upward(g *dag.Graph) map[string]time.Duration {
	memo := make(map[string]time.Duration, g.NodeCount())
	inProgress := make(map[string]bool, g.NodeCount())

	var compute func(id string) time.Duration
	compute = func(id string) time.Duration {
		if r, ok := memo[id]; ok {
			return r
		}
		if inProgress[id] {
			return 0
		}
		inProgress[id] = true

		node, _ := g.Node(id)
		successors := g.Successors(id)
		var best time.Duration
		for _, e := range successors {
			candidate := e.TransferTime + compute(e.TargetID)
			if candidate > best {
				best = candidate
			}
		}
		r := node.ExecutionTime + best
		memo[id] = r
		inProgress[id] = false
		return r
	}

	for _, id := range g.NodeIDs() {
		compute(id)
	}
	return memo
}

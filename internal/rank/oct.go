package rank

import (
	"time"

	"github.com/katanaflow/heftsim/internal/dag"
)

// OCT is the Optimistic Cost Table: OCT(n, p) is a best-case lower bound
// on the remaining completion time of node n if it were placed on
// processor index p (spec.md §4.2 "Optimistic Cost Table (OCT) for
// PEFT"). It is indexed OCT[nodeID][processorIndex].
type OCT map[string][]time.Duration

// Compute builds the OCT for every node across workerCount processors by
// a bottom-up DP over a reverse-topological queue: sinks get OCT(n,p)=0
// for every p; an inner node takes, for each successor, the minimum over
// processors of (OCT(s,p') + exec(s) + transfer if p' != p), then the max
// over successors (spec.md §4.2).
func Compute(g *dag.Graph, workerCount int) (OCT, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	table := make(OCT, g.NodeCount())
	for _, id := range order {
		table[id] = make([]time.Duration, workerCount)
	}

	// Process in reverse topological order so every successor of a node
	// has already been computed (sinks first).
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		successors := g.Successors(id)
		if len(successors) == 0 {
			continue // already zero-initialized
		}

		row := table[id]
		for p := 0; p < workerCount; p++ {
			var worst time.Duration
			first := true
			for _, e := range successors {
				succNode, _ := g.Node(e.TargetID)
				succRow := table[e.TargetID]

				var best time.Duration
				bestSet := false
				for pp := 0; pp < workerCount; pp++ {
					transfer := e.TransferTime
					if pp == p {
						transfer = 0
					}
					candidate := succRow[pp] + succNode.ExecutionTime + transfer
					if !bestSet || candidate < best {
						best = candidate
						bestSet = true
					}
				}
				if first || best > worst {
					worst = best
					first = false
				}
			}
			row[p] = worst
		}
	}

	return table, nil
}

// Mean returns the arithmetic mean of OCT(n, ·) across processors — the
// per-node priority value used by PEFT (spec.md §4.2).
func (o OCT) Mean(nodeID string) time.Duration {
	row := o[nodeID]
	if len(row) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range row {
		sum += v
	}
	return sum / time.Duration(len(row))
}

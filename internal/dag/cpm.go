package dag

import (
	"time"

	"github.com/katanaflow/heftsim/pkg/models"
)

// epsilon is the slack tolerance below which a node is considered on the
// critical path (spec.md §4.1 step 4, ε = 10^-3 time units).
const epsilon = time.Millisecond

// Analyzer runs the forward/backward pass critical-path method over a
// Graph and extracts the canonical critical path.
type Analyzer struct{}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze computes per-node CPM annotations and the canonical critical
// path for g. When includeTransferTimes is false, every edge is treated
// as having zero transfer time for the purposes of the forward/backward
// pass. An empty graph yields an empty, zero-duration result (spec.md
// §4.1 "Failure modes").
func (a *Analyzer) Analyze(g *Graph, includeTransferTimes bool) (*models.CPMResult, error) {
	result := &models.CPMResult{
		EarliestStart:  make(map[string]time.Duration),
		EarliestFinish: make(map[string]time.Duration),
		LatestStart:    make(map[string]time.Duration),
		LatestFinish:   make(map[string]time.Duration),
		Slack:          make(map[string]time.Duration),
		OnCriticalPath: make(map[string]bool),
	}

	if g.NodeCount() == 0 {
		return result, nil
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	transfer := func(from, to string) time.Duration {
		if !includeTransferTimes {
			return 0
		}
		return g.TransferTime(from, to)
	}

	// Forward pass: ES/EF (spec.md §4.1 step 2).
	for _, id := range order {
		node, _ := g.Node(id)
		var es time.Duration
		for _, e := range g.Predecessors(id) {
			ready := result.EarliestFinish[e.SourceID] + transfer(e.SourceID, id)
			if ready > es {
				es = ready
			}
		}
		result.EarliestStart[id] = es
		result.EarliestFinish[id] = es + node.ExecutionTime
	}

	var total time.Duration
	for _, id := range order {
		if ef := result.EarliestFinish[id]; ef > total {
			total = ef
		}
	}
	result.TotalDuration = total

	// Backward pass: LS/LF (spec.md §4.1 step 3). Sinks initialize LF to
	// their own EF; everything else starts at T_total and is tightened by
	// successors, walked in reverse topological order.
	for _, id := range order {
		if len(g.Successors(id)) == 0 {
			result.LatestFinish[id] = result.EarliestFinish[id]
		} else {
			result.LatestFinish[id] = total
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		node, _ := g.Node(id)
		successors := g.Successors(id)
		if len(successors) == 0 {
			result.LatestStart[id] = result.LatestFinish[id] - node.ExecutionTime
			continue
		}
		lf := result.LatestFinish[id]
		first := true
		for _, e := range successors {
			candidate := result.LatestStart[e.TargetID] - transfer(id, e.TargetID)
			if first || candidate < lf {
				lf = candidate
				first = false
			}
		}
		result.LatestFinish[id] = lf
		result.LatestStart[id] = lf - node.ExecutionTime
	}

	// Slack and CP flag (spec.md §4.1 step 4).
	for _, id := range order {
		slack := result.LatestStart[id] - result.EarliestStart[id]
		result.Slack[id] = slack
		if slack < epsilon && slack > -epsilon {
			result.OnCriticalPath[id] = true
		}
	}

	levels := g.Levels(order)
	result.CriticalPath = a.canonicalPath(g, result, levels)
	// Clear the flag on every slack-zero node not on the walked canonical
	// path, so exactly one distinguished path remains (spec.md §4.1 step 5).
	onPath := make(map[string]bool, len(result.CriticalPath))
	for _, id := range result.CriticalPath {
		onPath[id] = true
	}
	for id := range result.OnCriticalPath {
		result.OnCriticalPath[id] = onPath[id]
	}

	return result, nil
}

// canonicalPath walks from a zero-ES, zero-slack start node to a sink,
// preferring at each step a slack-zero successor one level below the
// current node and falling back to any slack-zero successor (spec.md
// §4.1 step 5).
func (a *Analyzer) canonicalPath(g *Graph, result *models.CPMResult, levels map[string]int) []string {
	var start string
	found := false
	for _, id := range g.NodeIDs() {
		if result.OnCriticalPath[id] && result.EarliestStart[id] == 0 {
			start = id
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	path := []string{start}
	current := start
	for {
		successors := g.Successors(current)
		var next string
		nextFound := false
		// Prefer the slack-zero successor one level below current.
		for _, e := range successors {
			if result.OnCriticalPath[e.TargetID] && levels[e.TargetID] == levels[current]+1 {
				next = e.TargetID
				nextFound = true
				break
			}
		}
		if !nextFound {
			for _, e := range successors {
				if result.OnCriticalPath[e.TargetID] {
					next = e.TargetID
					nextFound = true
					break
				}
			}
		}
		if !nextFound {
			break
		}
		path = append(path, next)
		current = next
	}
	return path
}

// MarkCPEdgesTransferZero returns a copy of topology's edges with transfer
// time set to 0 on every edge whose endpoints are both on the critical
// path, per spec.md §4.1 "Helper". It is used before computing the
// theoretical minimum runtime, which assumes CP co-location is free.
func MarkCPEdgesTransferZero(topology *models.WorkflowTopology, onCriticalPath map[string]bool) []models.Edge {
	edges := make([]models.Edge, len(topology.Edges))
	copy(edges, topology.Edges)
	for i := range edges {
		if onCriticalPath[edges[i].SourceID] && onCriticalPath[edges[i].TargetID] {
			edges[i].TransferTime = 0
		}
	}
	return edges
}

// Package dag builds the graph representation of a workflow topology and
// the critical-path analyzer that runs on top of it.
package dag

import (
	"fmt"
	"time"

	"github.com/katanaflow/heftsim/pkg/models"
)

// Graph is the adjacency-list representation of a WorkflowTopology, built
// once per topology and shared read-only across scheduling passes. It
// carries the incoming-edge index described in spec.md §9 so that the
// forward pass, the backward pass, and every EFT call reuse the same
// predecessor lookup instead of re-scanning the node list.
type Graph struct {
	nodes map[string]*models.Node

	// outEdges[u] lists every edge leaving u; inEdges[v] lists every edge
	// arriving at v. Together they are the forward/incoming-edge index.
	outEdges map[string][]*models.Edge
	inEdges  map[string][]*models.Edge
}

// NewGraph builds a Graph from a topology. The topology is not copied; the
// returned Graph holds pointers into it and must not outlive mutation of
// topology.Nodes backing array (use AnnotatedDAG for per-pass copies).
func NewGraph(topology *models.WorkflowTopology) *Graph {
	g := &Graph{
		nodes:    make(map[string]*models.Node, len(topology.Nodes)),
		outEdges: make(map[string][]*models.Edge),
		inEdges:  make(map[string][]*models.Edge),
	}

	for i := range topology.Nodes {
		n := &topology.Nodes[i]
		g.nodes[n.ID] = n
		g.outEdges[n.ID] = nil
		g.inEdges[n.ID] = nil
	}

	for i := range topology.Edges {
		e := &topology.Edges[i]
		g.outEdges[e.SourceID] = append(g.outEdges[e.SourceID], e)
		g.inEdges[e.TargetID] = append(g.inEdges[e.TargetID], e)
	}

	return g
}

// NodeIDs returns every node ID in the graph, in no particular order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Node returns the node for id.
func (g *Graph) Node(id string) (*models.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Predecessors returns the edges arriving at id (the incoming-edge index
// entry for id).
func (g *Graph) Predecessors(id string) []*models.Edge {
	return g.inEdges[id]
}

// Successors returns the edges leaving id.
func (g *Graph) Successors(id string) []*models.Edge {
	return g.outEdges[id]
}

// Roots returns every node with no predecessors.
func (g *Graph) Roots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.inEdges[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Leaves returns every node with no successors.
func (g *Graph) Leaves() []string {
	var leaves []string
	for id := range g.nodes {
		if len(g.outEdges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// ReadyTasks returns the IDs of tasks whose predecessors are all in done,
// excluding tasks already in done themselves.
func (g *Graph) ReadyTasks(done map[string]bool) []string {
	var ready []string
	for id := range g.nodes {
		if done[id] {
			continue
		}
		allDone := true
		for _, e := range g.inEdges[id] {
			if !done[e.SourceID] {
				allDone = false
				break
			}
		}
		if allDone {
			ready = append(ready, id)
		}
	}
	return ready
}

// TopologicalOrder returns node IDs via DFS-based topological sort: push
// onto a stack in post-order from every unvisited node, then reverse
// (spec.md §4.1 step 1). It returns ErrCycle if a node is revisited while
// still being visited.
func (g *Graph) TopologicalOrder() ([]string, error) {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(g.nodes))
	order := make([]string, 0, len(g.nodes))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("%w: involves node %s", ErrCycle, id)
		}
		state[id] = visiting
		for _, e := range g.outEdges[id] {
			if err := visit(e.TargetID); err != nil {
				return err
			}
		}
		state[id] = visited
		order = append(order, id)
		return nil
	}

	for id := range g.nodes {
		if state[id] == unvisited {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}

	// order is currently post-order (sinks first); reverse to get sources
	// first, matching spec.md §4.1 step 1 ("push in post-order, reverse").
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// Levels assigns level(n) = 0 for sources, else 1 + max(level(p)) over
// predecessors, in a single topo-ordered pass (spec.md §4.1 "Level
// assignment").
func (g *Graph) Levels(order []string) map[string]int {
	levels := make(map[string]int, len(g.nodes))
	for _, id := range order {
		preds := g.inEdges[id]
		if len(preds) == 0 {
			levels[id] = 0
			continue
		}
		max := 0
		for _, e := range preds {
			if l := levels[e.SourceID] + 1; l > max {
				max = l
			}
		}
		levels[id] = max
	}
	return levels
}

// TransferTime returns the transfer time of the edge (from, to), or 0 if
// no such edge exists (e.g. when include_transfer_times is false).
func (g *Graph) TransferTime(from, to string) time.Duration {
	for _, e := range g.outEdges[from] {
		if e.TargetID == to {
			return e.TransferTime
		}
	}
	return 0
}

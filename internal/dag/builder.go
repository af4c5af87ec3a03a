package dag

import (
	"time"

	"github.com/katanaflow/heftsim/pkg/models"
)

// AnnotatedDAG is a deep copy of a WorkflowTopology owned exclusively by
// one scheduling pass (spec.md §3 "Ownership"). The Monte-Carlo runner
// populates ExecutionTime/TransferTime on the copy before scheduling;
// the original template is never mutated.
type AnnotatedDAG struct {
	Topology *models.WorkflowTopology
	Graph    *Graph
	CPM      *models.CPMResult

	// OriginalEdgeTransferTimes preserves the transfer times sampled
	// before any CP-edge zeroing, keyed by "source->target" (spec.md
	// scenario F: schedulers use original transfer times when a CP task
	// is not colocated, even though the theoretical-minimum computation
	// zeroes CP edges).
	OriginalEdgeTransferTimes map[string]time.Duration
}

// NewAnnotatedDAG deep-copies topology and builds its Graph. Nodes and
// edges are copied by value so the caller may freely mutate durations on
// the result without affecting the shared template.
func NewAnnotatedDAG(topology *models.WorkflowTopology) *AnnotatedDAG {
	cp := &models.WorkflowTopology{
		ID:    topology.ID,
		Name:  topology.Name,
		Nodes: make([]models.Node, len(topology.Nodes)),
		Edges: make([]models.Edge, len(topology.Edges)),
	}
	copy(cp.Nodes, topology.Nodes)
	copy(cp.Edges, topology.Edges)

	return &AnnotatedDAG{
		Topology:                  cp,
		Graph:                     NewGraph(cp),
		OriginalEdgeTransferTimes: edgeTransferSnapshot(cp),
	}
}

// RunCPM runs the critical-path analyzer over the current topology state
// and stores the result on the AnnotatedDAG, annotating each Node's Level
// and CriticalPath fields in place.
func (a *AnnotatedDAG) RunCPM(includeTransferTimes bool) error {
	result, err := NewAnalyzer().Analyze(a.Graph, includeTransferTimes)
	if err != nil {
		return err
	}
	a.CPM = result

	levels, _ := a.Graph.TopologicalOrder()
	levelOf := a.Graph.Levels(levels)
	for i := range a.Topology.Nodes {
		n := &a.Topology.Nodes[i]
		n.Level = levelOf[n.ID]
		n.CriticalPath = result.OnCriticalPath[n.ID]
	}
	return nil
}

// TheoreticalRuntime zeroes transfer times on every edge between two
// adjacent critical-path nodes and re-runs CPM, returning the resulting
// total duration — the theoretical minimum makespan of spec.md §4.4 step
// 4. The AnnotatedDAG's edges are mutated in place to the zeroed values;
// OriginalEdgeTransferTimes still holds the pre-zeroing values.
func (a *AnnotatedDAG) TheoreticalRuntime() (time.Duration, error) {
	if a.CPM == nil {
		if err := a.RunCPM(true); err != nil {
			return 0, err
		}
	}
	a.Topology.Edges = MarkCPEdgesTransferZero(a.Topology, a.CPM.OnCriticalPath)
	a.Graph = NewGraph(a.Topology)
	if err := a.RunCPM(true); err != nil {
		return 0, err
	}
	return a.CPM.TotalDuration, nil
}

// EdgeTransferTime returns the original (pre-zeroing) transfer time for
// the edge from -> to.
func (a *AnnotatedDAG) EdgeTransferTime(from, to string) time.Duration {
	return a.OriginalEdgeTransferTimes[edgeKey(from, to)]
}

// RestoreOriginalEdges rebuilds the topology's edges from
// OriginalEdgeTransferTimes and re-runs CPM, undoing TheoreticalRuntime's
// CP-edge zeroing (spec.md §4.4 step 5: the scheduler itself runs against
// the original, non-zeroed transfer times).
func (a *AnnotatedDAG) RestoreOriginalEdges() error {
	for i := range a.Topology.Edges {
		e := &a.Topology.Edges[i]
		e.TransferTime = a.OriginalEdgeTransferTimes[edgeKey(e.SourceID, e.TargetID)]
	}
	a.Graph = NewGraph(a.Topology)
	return a.RunCPM(true)
}

func edgeKey(from, to string) string {
	return from + "->" + to
}

func edgeTransferSnapshot(topology *models.WorkflowTopology) map[string]time.Duration {
	snap := make(map[string]time.Duration, len(topology.Edges))
	for _, e := range topology.Edges {
		snap[edgeKey(e.SourceID, e.TargetID)] = e.TransferTime
	}
	return snap
}

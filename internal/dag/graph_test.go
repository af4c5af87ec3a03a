package dag

import (
	"testing"
	"time"

	"github.com/katanaflow/heftsim/pkg/models"
)

func chainTopology() *models.WorkflowTopology {
	return &models.WorkflowTopology{
		Name: "chain",
		Nodes: []models.Node{
			{ID: "A", ExecutionTime: time.Second},
			{ID: "B", ExecutionTime: time.Second},
			{ID: "C", ExecutionTime: time.Second},
		},
		Edges: []models.Edge{
			{SourceID: "A", TargetID: "B", TransferTime: time.Second},
			{SourceID: "B", TargetID: "C", TransferTime: time.Second},
		},
	}
}

func TestTopologicalOrder_RespectsDependencies(t *testing.T) {
	g := NewGraph(chainTopology())
	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if pos["A"] > pos["B"] || pos["B"] > pos["C"] {
		t.Errorf("order %v violates A before B before C", order)
	}
}

func TestRootsAndLeaves(t *testing.T) {
	g := NewGraph(diamondTopology())

	roots := g.Roots()
	if len(roots) != 1 || roots[0] != "A" {
		t.Errorf("Roots() = %v, want [A]", roots)
	}

	leaves := g.Leaves()
	if len(leaves) != 1 || leaves[0] != "D" {
		t.Errorf("Leaves() = %v, want [D]", leaves)
	}
}

func TestReadyTasks(t *testing.T) {
	g := NewGraph(diamondTopology())

	ready := g.ReadyTasks(map[string]bool{})
	if len(ready) != 1 || ready[0] != "A" {
		t.Errorf("ReadyTasks(none done) = %v, want [A]", ready)
	}

	ready = g.ReadyTasks(map[string]bool{"A": true})
	gotSet := map[string]bool{}
	for _, id := range ready {
		gotSet[id] = true
	}
	if !gotSet["B"] || !gotSet["C"] || len(ready) != 2 {
		t.Errorf("ReadyTasks(A done) = %v, want [B C]", ready)
	}
}

func TestPredecessorsIsIncomingEdgeIndex(t *testing.T) {
	g := NewGraph(diamondTopology())
	preds := g.Predecessors("D")
	if len(preds) != 2 {
		t.Fatalf("Predecessors(D) has %d entries, want 2", len(preds))
	}
}

func TestLevels(t *testing.T) {
	g := NewGraph(diamondTopology())
	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	levels := g.Levels(order)

	if levels["A"] != 0 {
		t.Errorf("level(A) = %d, want 0", levels["A"])
	}
	if levels["B"] != 1 || levels["C"] != 1 {
		t.Errorf("level(B)=%d level(C)=%d, want both 1", levels["B"], levels["C"])
	}
	if levels["D"] != 2 {
		t.Errorf("level(D) = %d, want 2", levels["D"])
	}
}

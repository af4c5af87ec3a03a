package rank

import (
	"testing"
	"time"

	"github.com/katanaflow/heftsim/internal/dag"
	"github.com/katanaflow/heftsim/pkg/models"
)

func TestCompute_DiamondOCT(t *testing.T) {
	table, err := Compute(diamondGraph(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Sinks are always zero.
	for _, p := range table["D"] {
		if p != 0 {
			t.Errorf("OCT(D, ·) = %v, want all zero", table["D"])
		}
	}

	// OCT(B,p) = min over pp of (OCT(D,pp) + exec(D) + transfer(B,D) if pp != p)
	//          = min(0+1+0, 0+1+1) = 1s, for both processors.
	for p, got := range table["B"] {
		if got != time.Second {
			t.Errorf("OCT(B,%d) = %v, want 1s", p, got)
		}
	}

	// OCT(C,p) has the same shape as B: 1s for both processors.
	for p, got := range table["C"] {
		if got != time.Second {
			t.Errorf("OCT(C,%d) = %v, want 1s", p, got)
		}
	}

	// OCT(A,p) = max(min(1+3+0,1+3+1), min(1+4+0,1+4+2)) = max(4,5) = 5s.
	for p, got := range table["A"] {
		if got != 5*time.Second {
			t.Errorf("OCT(A,%d) = %v, want 5s", p, got)
		}
	}
}

func TestOCT_Mean(t *testing.T) {
	table, err := Compute(diamondGraph(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := table.Mean("A"); got != 5*time.Second {
		t.Errorf("Mean(A) = %v, want 5s", got)
	}
	if got := table.Mean("D"); got != 0 {
		t.Errorf("Mean(D) = %v, want 0", got)
	}
}

func TestCompute_SingleWorker(t *testing.T) {
	table, err := Compute(diamondGraph(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// With one processor every transfer is intra-processor (zeroed), so
	// OCT collapses to pure downstream execution time: OCT(A,0) = exec(B)+exec(D) or exec(C)+exec(D), whichever is larger.
	if got := table.Mean("A"); got != 5*time.Second {
		t.Errorf("Mean(A) with 1 worker = %v, want 5s", got)
	}
}

func TestCompute_CycleReturnsError(t *testing.T) {
	g := diamondGraph()
	_, err := Compute(g, 2)
	if err != nil {
		t.Fatalf("unexpected error on valid graph: %v", err)
	}

	cyclic := dag.NewGraph(&models.WorkflowTopology{
		Name:  "cyclic",
		Nodes: []models.Node{{ID: "A"}, {ID: "B"}},
		Edges: []models.Edge{
			{SourceID: "A", TargetID: "B"},
			{SourceID: "B", TargetID: "A"},
		},
	})
	if _, err := Compute(cyclic, 2); err == nil {
		t.Fatal("expected an error for a cyclic graph, got nil")
	}
}

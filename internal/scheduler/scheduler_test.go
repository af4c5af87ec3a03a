package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/katanaflow/heftsim/internal/dag"
	"github.com/katanaflow/heftsim/pkg/models"
)

func diamondAnnotated(t *testing.T) *dag.AnnotatedDAG {
	t.Helper()
	topology := &models.WorkflowTopology{
		Name: "diamond",
		Nodes: []models.Node{
			{ID: "A", ExecutionTime: 2 * time.Second},
			{ID: "B", ExecutionTime: 3 * time.Second},
			{ID: "C", ExecutionTime: 4 * time.Second},
			{ID: "D", ExecutionTime: 1 * time.Second},
		},
		Edges: []models.Edge{
			{SourceID: "A", TargetID: "B", TransferTime: 1 * time.Second},
			{SourceID: "A", TargetID: "C", TransferTime: 2 * time.Second},
			{SourceID: "B", TargetID: "D", TransferTime: 1 * time.Second},
			{SourceID: "C", TargetID: "D", TransferTime: 1 * time.Second},
		},
	}
	annotated := dag.NewAnnotatedDAG(topology)
	if err := annotated.RunCPM(true); err != nil {
		t.Fatalf("RunCPM: %v", err)
	}
	return annotated
}

func taskByNode(schedule []models.ScheduledTask, nodeID string) models.ScheduledTask {
	for _, s := range schedule {
		if s.NodeID == nodeID {
			return s
		}
	}
	return models.ScheduledTask{}
}

// TestHEFT_DiamondTwoWorkers verifies spec.md Scenario A end to end.
func TestHEFT_DiamondTwoWorkers(t *testing.T) {
	annotated := diamondAnnotated(t)
	workers := []*models.Worker{{ID: "W1"}, {ID: "W2"}}

	schedule, err := NewHEFT().Schedule(context.Background(), annotated, workers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a := taskByNode(schedule, "A")
	if a.WorkerID != "W1" || a.Start != 0 || a.End != 2*time.Second {
		t.Errorf("A = %+v, want W1 [0,2s]", a)
	}
	c := taskByNode(schedule, "C")
	if c.WorkerID != "W1" || c.Start != 2*time.Second || c.End != 6*time.Second {
		t.Errorf("C = %+v, want W1 [2s,6s]", c)
	}
	b := taskByNode(schedule, "B")
	if b.WorkerID != "W2" || b.Start != 3*time.Second || b.End != 6*time.Second {
		t.Errorf("B = %+v, want W2 [3s,6s]", b)
	}
	d := taskByNode(schedule, "D")
	if d.WorkerID != "W1" || d.Start != 7*time.Second || d.End != 8*time.Second {
		t.Errorf("D = %+v, want W1 [7s,8s]", d)
	}

	var makespan time.Duration
	for _, s := range schedule {
		if s.End > makespan {
			makespan = s.End
		}
	}
	if makespan != 8*time.Second {
		t.Errorf("makespan = %v, want 8s", makespan)
	}
}

// TestHEFT_Idempotent verifies spec.md testable property 9: scheduling
// the same annotated DAG and workers twice produces identical output.
func TestHEFT_Idempotent(t *testing.T) {
	workers := func() []*models.Worker { return []*models.Worker{{ID: "W1"}, {ID: "W2"}} }

	s1, err := NewHEFT().Schedule(context.Background(), diamondAnnotated(t), workers())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	s2, err := NewHEFT().Schedule(context.Background(), diamondAnnotated(t), workers())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(s1) != len(s2) {
		t.Fatalf("len mismatch: %d vs %d", len(s1), len(s2))
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Errorf("schedule[%d] = %+v, want %+v", i, s2[i], s1[i])
		}
	}
}

// TestHEFT_SingleWorker verifies spec.md testable property 5: with one
// worker, makespan equals the sum of execution times.
func TestHEFT_SingleWorker(t *testing.T) {
	annotated := diamondAnnotated(t)
	workers := []*models.Worker{{ID: "W1"}}

	schedule, err := NewHEFT().Schedule(context.Background(), annotated, workers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var makespan time.Duration
	for _, s := range schedule {
		if s.End > makespan {
			makespan = s.End
		}
	}
	want := 2*time.Second + 3*time.Second + 4*time.Second + 1*time.Second
	if makespan != want {
		t.Errorf("makespan = %v, want %v", makespan, want)
	}
}

// TestGreedy_TwoDisjointChains verifies the boundary scenario: two
// disjoint chains on two workers run concurrently, and makespan is the
// max of the two chain lengths.
func TestGreedy_TwoDisjointChains(t *testing.T) {
	topology := &models.WorkflowTopology{
		Name: "disjoint",
		Nodes: []models.Node{
			{ID: "A1", ExecutionTime: 2 * time.Second},
			{ID: "A2", ExecutionTime: 2 * time.Second},
			{ID: "B1", ExecutionTime: 1 * time.Second},
			{ID: "B2", ExecutionTime: 1 * time.Second},
		},
		Edges: []models.Edge{
			{SourceID: "A1", TargetID: "A2"},
			{SourceID: "B1", TargetID: "B2"},
		},
	}
	annotated := dag.NewAnnotatedDAG(topology)
	workers := []*models.Worker{{ID: "W1"}, {ID: "W2"}}

	schedule, err := NewGreedy().Schedule(context.Background(), annotated, workers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var makespan time.Duration
	for _, s := range schedule {
		if s.End > makespan {
			makespan = s.End
		}
	}
	if makespan != 4*time.Second {
		t.Errorf("makespan = %v, want 4s (max chain length)", makespan)
	}
}

// TestCPGreedy_NonCPTaskAvoidsDelayingCPWorker verifies that CP-Greedy
// places a non-CP sibling of a CP task off the CP worker and runs the CP
// chain on the CP worker without delay. B (CP) is placed before S in the
// same round, so S lands on W2 by earliest finish (W2 [7s,10s] vs. Wcp
// [10s,13s]); the delay guard itself is exercised by
// TestCPGreedy_GuardTriggersDynamicWorkerCreation.
func TestCPGreedy_NonCPTaskAvoidsDelayingCPWorker(t *testing.T) {
	topology := &models.WorkflowTopology{
		Name: "cp-sibling",
		Nodes: []models.Node{
			{ID: "A", ExecutionTime: 5 * time.Second},
			{ID: "B", ExecutionTime: 5 * time.Second},
			{ID: "S", ExecutionTime: 3 * time.Second},
		},
		Edges: []models.Edge{
			{SourceID: "A", TargetID: "B"},
			{SourceID: "A", TargetID: "S", TransferTime: 2 * time.Second},
		},
	}
	annotated := dag.NewAnnotatedDAG(topology)
	if err := annotated.RunCPM(true); err != nil {
		t.Fatalf("RunCPM: %v", err)
	}
	// A->B (length 10) dominates A->S (length 5+2+3=10 too, a tie); force
	// A and B onto the canonical CP explicitly for a deterministic test
	// regardless of which tie the analyzer picked.
	for i := range annotated.Topology.Nodes {
		n := &annotated.Topology.Nodes[i]
		n.CriticalPath = n.ID == "A" || n.ID == "B"
	}
	annotated.CPM.OnCriticalPath = map[string]bool{"A": true, "B": true}
	annotated.CPM.CriticalPath = []string{"A", "B"}
	annotated.CPM.EarliestStart = map[string]time.Duration{"A": 0, "B": 5 * time.Second}

	workers := []*models.Worker{
		{ID: "Wcp", CriticalPathWorker: true},
		{ID: "W2"},
	}

	schedule, err := NewCPGreedy().Schedule(context.Background(), annotated, workers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := taskByNode(schedule, "S")
	if s.WorkerID != "W2" {
		t.Errorf("S.WorkerID = %s, want W2 (earliest finish is off the CP worker)", s.WorkerID)
	}
	a := taskByNode(schedule, "A")
	b := taskByNode(schedule, "B")
	if a.WorkerID != "Wcp" || b.WorkerID != "Wcp" {
		t.Errorf("CP tasks must stay on Wcp, got A=%s B=%s", a.WorkerID, b.WorkerID)
	}
	if b.Start != a.End {
		t.Errorf("B.Start = %v, want %v (immediately after A, undelayed)", b.Start, a.End)
	}
}

// TestCPGreedy_GuardTriggersDynamicWorkerCreation verifies spec.md §4.3,
// §9: when every existing worker is guarded out (no alternative to the CP
// worker would exist), CP-Greedy creates a new worker under its dynamic
// cap rather than perturbing CP timing by placing on the CP worker anyway.
func TestCPGreedy_GuardTriggersDynamicWorkerCreation(t *testing.T) {
	topology := &models.WorkflowTopology{
		Name: "cp-sibling-single-worker",
		Nodes: []models.Node{
			{ID: "A", ExecutionTime: 5 * time.Second},
			{ID: "B", ExecutionTime: 5 * time.Second},
			{ID: "S", ExecutionTime: 3 * time.Second},
		},
		Edges: []models.Edge{
			{SourceID: "A", TargetID: "B"},
		},
	}
	annotated := dag.NewAnnotatedDAG(topology)
	if err := annotated.RunCPM(true); err != nil {
		t.Fatalf("RunCPM: %v", err)
	}
	for i := range annotated.Topology.Nodes {
		n := &annotated.Topology.Nodes[i]
		n.CriticalPath = n.ID == "A" || n.ID == "B"
	}
	annotated.CPM.OnCriticalPath = map[string]bool{"A": true, "B": true}
	annotated.CPM.CriticalPath = []string{"A", "B"}
	annotated.CPM.EarliestStart = map[string]time.Duration{"A": 0, "B": 5 * time.Second}

	// S has no predecessor, so it is dispatched in the same round as A,
	// while B is still unscheduled: S on Wcp would end at 8s, past B's
	// expected start of 5s. Only the CP worker exists, so S has no existing
	// alternative; the guard must fall through to dynamic worker creation
	// instead of placing S on Wcp.
	workers := []*models.Worker{{ID: "Wcp", CriticalPathWorker: true}}

	schedule, err := NewCPGreedy().Schedule(context.Background(), annotated, workers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := taskByNode(schedule, "S")
	if s.WorkerID == "Wcp" {
		t.Errorf("S.WorkerID = Wcp, want a dynamically created worker")
	}
	a := taskByNode(schedule, "A")
	b := taskByNode(schedule, "B")
	if a.WorkerID != "Wcp" || b.WorkerID != "Wcp" {
		t.Errorf("CP tasks must stay on Wcp, got A=%s B=%s", a.WorkerID, b.WorkerID)
	}
	if b.Start != a.End {
		t.Errorf("B.Start = %v, want %v (undelayed by dynamic worker creation)", b.Start, a.End)
	}
}

func TestPEFT_DiamondProducesValidSchedule(t *testing.T) {
	annotated := diamondAnnotated(t)
	workers := []*models.Worker{{ID: "W1"}, {ID: "W2"}}

	schedule, err := NewPEFT().Schedule(context.Background(), annotated, workers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schedule) != 4 {
		t.Fatalf("len(schedule) = %d, want 4", len(schedule))
	}
	assertNoOverlaps(t, schedule)
	assertPrecedenceRespected(t, annotated, schedule)
}

// assertNoOverlaps verifies spec.md testable property 2.
func assertNoOverlaps(t *testing.T, schedule []models.ScheduledTask) {
	t.Helper()
	byWorker := make(map[string][]models.ScheduledTask)
	for _, s := range schedule {
		byWorker[s.WorkerID] = append(byWorker[s.WorkerID], s)
	}
	for worker, tasks := range byWorker {
		for i := 0; i < len(tasks); i++ {
			for j := i + 1; j < len(tasks); j++ {
				a, b := tasks[i], tasks[j]
				if a.End > b.Start && b.End > a.Start {
					t.Errorf("worker %s: tasks %s %+v and %s %+v overlap", worker, a.NodeID, a, b.NodeID, b)
				}
			}
		}
	}
}

// assertPrecedenceRespected verifies spec.md testable property 1.
func assertPrecedenceRespected(t *testing.T, annotated *dag.AnnotatedDAG, schedule []models.ScheduledTask) {
	t.Helper()
	byNode := make(map[string]models.ScheduledTask, len(schedule))
	for _, s := range schedule {
		byNode[s.NodeID] = s
	}
	for _, s := range schedule {
		for _, pred := range annotated.Graph.Predecessors(s.NodeID) {
			p := byNode[pred.SourceID]
			transfer := pred.TransferTime
			if p.WorkerID == s.WorkerID {
				transfer = 0
			}
			if s.Start < p.End+transfer {
				t.Errorf("%s.Start = %v, must be >= predecessor %s.End(%v)+transfer(%v)", s.NodeID, s.Start, p.NodeID, p.End, transfer)
			}
		}
	}
}

func TestHEFT_EmptyGraphYieldsEmptySchedule(t *testing.T) {
	// An empty graph must yield an empty schedule and no error.
	annotated := dag.NewAnnotatedDAG(&models.WorkflowTopology{Name: "empty"})
	schedule, err := NewHEFT().Schedule(context.Background(), annotated, []*models.Worker{{ID: "W1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schedule) != 0 {
		t.Errorf("schedule = %+v, want empty", schedule)
	}
}

func TestSingleTaskSingleWorker(t *testing.T) {
	annotated := dag.NewAnnotatedDAG(&models.WorkflowTopology{
		Name:  "single",
		Nodes: []models.Node{{ID: "A", ExecutionTime: 5 * time.Second}},
	})
	schedule, err := NewGreedy().Schedule(context.Background(), annotated, []*models.Worker{{ID: "W1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schedule) != 1 || schedule[0].Start != 0 || schedule[0].End != 5*time.Second {
		t.Errorf("schedule = %+v, want one task [0,5s]", schedule)
	}
}

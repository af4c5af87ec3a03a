package montecarlo

import (
	"context"
	"testing"
	"time"

	"github.com/katanaflow/heftsim/pkg/models"
)

func gammaTemplate() *models.WorkflowTopology {
	return &models.WorkflowTopology{
		Name: "gamma-diamond",
		Nodes: []models.Node{
			{ID: "A", Gamma: models.GammaParams{Shape: 2, Scale: 1}},
			{ID: "B", Gamma: models.GammaParams{Shape: 3, Scale: 1}},
			{ID: "C", Gamma: models.GammaParams{Shape: 4, Scale: 1}},
			{ID: "D", Gamma: models.GammaParams{Shape: 1, Scale: 1}},
		},
		Edges: []models.Edge{
			{SourceID: "A", TargetID: "B", TransferTime: time.Second, Gamma: models.GammaParams{Shape: 1, Scale: 1}},
			{SourceID: "A", TargetID: "C", TransferTime: time.Second, Gamma: models.GammaParams{Shape: 1, Scale: 1}},
			{SourceID: "B", TargetID: "D", TransferTime: time.Second, Gamma: models.GammaParams{Shape: 1, Scale: 1}},
			{SourceID: "C", TargetID: "D", TransferTime: time.Second, Gamma: models.GammaParams{Shape: 1, Scale: 1}},
		},
	}
}

func TestSequentialRunner_ProducesNRecords(t *testing.T) {
	cfg := BatchConfig{
		Template:             gammaTemplate(),
		Workers:              []*models.Worker{{ID: "W1"}, {ID: "W2"}},
		Algorithm:            models.AlgorithmHEFT,
		UseTransferTime:      true,
		IncludeTransferInCPM: true,
		N:                    10,
		Seed:                 1,
	}
	records, err := NewSequentialRunner().Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 10 {
		t.Fatalf("len(records) = %d, want 10", len(records))
	}
	for i, r := range records {
		if r.SimNumber != i {
			t.Errorf("records[%d].SimNumber = %d, want %d", i, r.SimNumber, i)
		}
		if r.Theoretical <= 0 {
			t.Errorf("records[%d].Theoretical = %v, want > 0", i, r.Theoretical)
		}
		if r.Actual < r.Theoretical {
			t.Errorf("records[%d].Actual = %v, want >= Theoretical %v (CP co-location is optimistic)", i, r.Actual, r.Theoretical)
		}
		if len(r.CPNodeIDs) == 0 {
			t.Errorf("records[%d].CPNodeIDs is empty", i)
		}
	}
}

func TestSequentialRunner_TemplateUnmutated(t *testing.T) {
	template := gammaTemplate()
	cfg := BatchConfig{
		Template:             template,
		Workers:              []*models.Worker{{ID: "W1"}},
		Algorithm:            models.AlgorithmGreedy,
		UseTransferTime:      true,
		IncludeTransferInCPM: true,
		N:                    5,
		Seed:                 3,
	}
	if _, err := NewSequentialRunner().Run(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, n := range template.Nodes {
		if n.ExecutionTime != 0 {
			t.Errorf("template node %s mutated: ExecutionTime = %v", n.ID, n.ExecutionTime)
		}
	}
}

func TestParallelRunner_MatchesSequentialRunnerRecordCount(t *testing.T) {
	cfg := BatchConfig{
		Template:             gammaTemplate(),
		Workers:              []*models.Worker{{ID: "W1"}, {ID: "W2"}},
		Algorithm:            models.AlgorithmPEFT,
		UseTransferTime:      true,
		IncludeTransferInCPM: true,
		N:                    20,
		Seed:                 9,
	}
	records, err := NewParallelRunner(4).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 20 {
		t.Fatalf("len(records) = %d, want 20", len(records))
	}
	for i, r := range records {
		if r.SimNumber != i {
			t.Errorf("records[%d].SimNumber = %d, want %d (order-preserving sink)", i, r.SimNumber, i)
		}
	}
}

func TestRunner_CancelledContextStopsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := BatchConfig{
		Template:             gammaTemplate(),
		Workers:              []*models.Worker{{ID: "W1"}},
		Algorithm:            models.AlgorithmGreedy,
		UseTransferTime:      true,
		IncludeTransferInCPM: true,
		N:                    5,
		Seed:                 1,
	}
	_, err := NewSequentialRunner().Run(ctx, cfg)
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestRunner_UnknownAlgorithmRejected(t *testing.T) {
	cfg := BatchConfig{
		Template: gammaTemplate(),
		Workers:  []*models.Worker{{ID: "W1"}},
		Algorithm: models.AlgorithmODPIP,
		N:        1,
	}
	if _, err := NewSequentialRunner().Run(context.Background(), cfg); err == nil {
		t.Fatal("expected error: ODP-IP is not buildable via scheduler.New")
	}
}

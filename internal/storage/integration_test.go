// +build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/katanaflow/heftsim/pkg/models"
)

func TestTopologyRepository_Integration(t *testing.T) {
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	topologyRepo, _ := CreateTestRepositories(db.DB)
	ctx := context.Background()

	t.Run("Create and Get topology", func(t *testing.T) {
		topology := &models.WorkflowTopology{
			Name: "diamond-" + uuid.New().String(),
			Nodes: []models.Node{
				{ID: "A", ExecutionTime: 2 * time.Second},
				{ID: "B", ExecutionTime: 3 * time.Second},
			},
			Edges: []models.Edge{
				{SourceID: "A", TargetID: "B", TransferTime: time.Second},
			},
		}

		if err := topologyRepo.Create(ctx, topology); err != nil {
			t.Fatalf("Failed to create topology: %v", err)
		}
		if topology.ID == "" {
			t.Error("topology ID should be set after creation")
		}

		retrieved, err := topologyRepo.Get(ctx, topology.ID)
		if err != nil {
			t.Fatalf("Failed to get topology: %v", err)
		}
		if retrieved.Name != topology.Name {
			t.Errorf("retrieved name = %s, want %s", retrieved.Name, topology.Name)
		}
		if len(retrieved.Nodes) != 2 {
			t.Errorf("retrieved Nodes len = %d, want 2", len(retrieved.Nodes))
		}

		byName, err := topologyRepo.GetByName(ctx, topology.Name)
		if err != nil {
			t.Fatalf("Failed to get topology by name: %v", err)
		}
		if byName.ID != topology.ID {
			t.Errorf("retrieved ID = %s, want %s", byName.ID, topology.ID)
		}
	})

	t.Run("List topologies with name prefix filter", func(t *testing.T) {
		prefix := "prefix-" + uuid.New().String()
		topology := &models.WorkflowTopology{Name: prefix + "-match"}
		if err := topologyRepo.Create(ctx, topology); err != nil {
			t.Fatalf("Failed to create topology: %v", err)
		}

		rows, err := topologyRepo.List(ctx, TopologyFilters{NamePrefix: prefix, Limit: 10})
		if err != nil {
			t.Fatalf("Failed to list topologies: %v", err)
		}
		if len(rows) != 1 {
			t.Errorf("len(rows) = %d, want 1", len(rows))
		}
	})

	t.Run("Update topology", func(t *testing.T) {
		topology := &models.WorkflowTopology{Name: "update-" + uuid.New().String()}
		if err := topologyRepo.Create(ctx, topology); err != nil {
			t.Fatalf("Failed to create topology: %v", err)
		}

		topology.Nodes = []models.Node{{ID: "A", ExecutionTime: time.Second}}
		if err := topologyRepo.Update(ctx, topology); err != nil {
			t.Fatalf("Failed to update topology: %v", err)
		}

		updated, err := topologyRepo.Get(ctx, topology.ID)
		if err != nil {
			t.Fatalf("Failed to get updated topology: %v", err)
		}
		if len(updated.Nodes) != 1 {
			t.Errorf("updated Nodes len = %d, want 1", len(updated.Nodes))
		}
	})

	t.Run("Delete topology", func(t *testing.T) {
		topology := &models.WorkflowTopology{Name: "delete-" + uuid.New().String()}
		if err := topologyRepo.Create(ctx, topology); err != nil {
			t.Fatalf("Failed to create topology: %v", err)
		}

		if err := topologyRepo.Delete(ctx, topology.ID); err != nil {
			t.Fatalf("Failed to delete topology: %v", err)
		}

		if _, err := topologyRepo.Get(ctx, topology.ID); err == nil {
			t.Error("expected error getting deleted topology")
		}
	})
}

func TestSimulationRepository_Integration(t *testing.T) {
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	topologyRepo, simulationRepo := CreateTestRepositories(db.DB)
	ctx := context.Background()

	topology := &models.WorkflowTopology{Name: "sim-topology-" + uuid.New().String()}
	if err := topologyRepo.Create(ctx, topology); err != nil {
		t.Fatalf("Failed to create topology: %v", err)
	}
	batchID := uuid.New().String()

	t.Run("CreateBatch and List by batch", func(t *testing.T) {
		records := make([]models.SimulationRecord, 5)
		for i := range records {
			records[i] = models.SimulationRecord{
				SimNumber:   i,
				Actual:      10 * time.Second,
				Theoretical: 8 * time.Second,
				Algorithm:   models.AlgorithmHEFT,
				WorkerCount: 2,
			}
		}

		if err := simulationRepo.CreateBatch(ctx, batchID, topology.ID, records); err != nil {
			t.Fatalf("Failed to create simulation batch: %v", err)
		}

		rows, err := simulationRepo.List(ctx, SimulationRecordFilters{BatchID: batchID})
		if err != nil {
			t.Fatalf("Failed to list simulation records: %v", err)
		}
		if len(rows) != 5 {
			t.Fatalf("len(rows) = %d, want 5", len(rows))
		}
		for i, row := range rows {
			if row.SimNumber != i {
				t.Errorf("rows[%d].SimNumber = %d, want %d", i, row.SimNumber, i)
			}
		}
	})

	t.Run("DeleteBatch removes all records", func(t *testing.T) {
		innerBatchID := uuid.New().String()
		record := models.SimulationRecord{SimNumber: 0, Algorithm: models.AlgorithmGreedy}
		if err := simulationRepo.Create(ctx, innerBatchID, topology.ID, &record); err != nil {
			t.Fatalf("Failed to create simulation record: %v", err)
		}

		if err := simulationRepo.DeleteBatch(ctx, innerBatchID); err != nil {
			t.Fatalf("Failed to delete simulation batch: %v", err)
		}

		rows, err := simulationRepo.List(ctx, SimulationRecordFilters{BatchID: innerBatchID})
		if err != nil {
			t.Fatalf("Failed to list simulation records: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("len(rows) = %d, want 0 after DeleteBatch", len(rows))
		}
	})
}

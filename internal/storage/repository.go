package storage

import (
	"context"
	"time"

	"github.com/katanaflow/heftsim/pkg/models"
)

// WorkflowTopologyRepository defines the interface for workflow topology
// persistence. Topologies are stored as templates: the nodes/edges shape
// loaded once from YAML/JSON and reused across many simulation batches.
type WorkflowTopologyRepository interface {
	Create(ctx context.Context, topology *models.WorkflowTopology) error
	Get(ctx context.Context, id string) (*models.WorkflowTopology, error)
	GetByName(ctx context.Context, name string) (*models.WorkflowTopology, error)
	List(ctx context.Context, filters TopologyFilters) ([]*models.WorkflowTopology, error)
	Update(ctx context.Context, topology *models.WorkflowTopology) error
	Delete(ctx context.Context, id string) error
}

// TopologyFilters defines filters for listing workflow topologies.
type TopologyFilters struct {
	NamePrefix string
	Limit      int
	Offset     int
}

// SimulationRecordRepository defines the interface for Monte-Carlo
// simulation record persistence. Records are append-only: once a
// simulation step completes there is no field left to mutate, so the
// interface offers no Update.
type SimulationRecordRepository interface {
	Create(ctx context.Context, batchID, topologyID string, record *models.SimulationRecord) error
	CreateBatch(ctx context.Context, batchID, topologyID string, records []models.SimulationRecord) error
	Get(ctx context.Context, id string) (*models.SimulationRecord, error)
	List(ctx context.Context, filters SimulationRecordFilters) ([]*models.SimulationRecord, error)
	DeleteBatch(ctx context.Context, batchID string) error
}

// SimulationRecordFilters defines filters for listing simulation records.
type SimulationRecordFilters struct {
	BatchID    string
	TopologyID string
	Algorithm  *models.Algorithm
	After      *time.Time
	Before     *time.Time
	Limit      int
	Offset     int
}

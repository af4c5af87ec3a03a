package storage

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/katanaflow/heftsim/pkg/models"
)

// JSONB is a custom type for JSONB columns.
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface.
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, j)
}

// NodeList and EdgeList are custom JSONB-backed types for a topology's node
// and edge sets. Nodes/Edges are embedded in the topology row rather than
// normalized into their own tables: they are never queried independently
// of their owning topology, only ever loaded/stored as a unit.
type NodeList []models.Node
type EdgeList []models.Edge

func (n NodeList) Value() (driver.Value, error) { return json.Marshal(n) }
func (n *NodeList) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, n)
}

func (e EdgeList) Value() (driver.Value, error) { return json.Marshal(e) }
func (e *EdgeList) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, e)
}

// WorkflowTopologyModel is the database model for a stored workflow
// template. Only the template is persisted: executed-copy annotations
// (ExecutionTime, Level, CriticalPath) live only on an in-memory
// AnnotatedDAG and are never written back here.
type WorkflowTopologyModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name      string    `gorm:"type:varchar(255);unique;not null;index:idx_topologies_name"`
	Nodes     NodeList  `gorm:"type:jsonb;not null;default:'[]'"`
	Edges     EdgeList  `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for WorkflowTopologyModel.
func (WorkflowTopologyModel) TableName() string { return "workflow_topologies" }

// ToTopology converts a WorkflowTopologyModel to a models.WorkflowTopology.
func (m *WorkflowTopologyModel) ToTopology() *models.WorkflowTopology {
	return &models.WorkflowTopology{
		ID:    m.ID.String(),
		Name:  m.Name,
		Nodes: []models.Node(m.Nodes),
		Edges: []models.Edge(m.Edges),
	}
}

// FromTopology converts a models.WorkflowTopology to a WorkflowTopologyModel.
func FromTopology(t *models.WorkflowTopology) (*WorkflowTopologyModel, error) {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		id = uuid.New()
	}
	return &WorkflowTopologyModel{
		ID:    id,
		Name:  t.Name,
		Nodes: NodeList(t.Nodes),
		Edges: EdgeList(t.Edges),
	}, nil
}

// SimulationRecordModel is the database model for one Monte-Carlo
// simulation step's output, persisted for batch-statistics recomputation
// and audit.
type SimulationRecordModel struct {
	ID                         uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	BatchID                    uuid.UUID `gorm:"type:uuid;not null;index:idx_sim_records_batch_id"`
	TopologyID                 uuid.UUID `gorm:"type:uuid;not null;index:idx_sim_records_topology_id"`
	SimNumber                  int       `gorm:"not null"`
	Algorithm                  string    `gorm:"type:varchar(50);not null;index:idx_sim_records_algorithm"`
	WorkerCount                int       `gorm:"not null"`
	ActualNanos                int64     `gorm:"not null"`
	TheoreticalNanos           int64     `gorm:"not null"`
	PerNodeExec                JSONB     `gorm:"type:jsonb"`
	PerEdgeTransfer            JSONB     `gorm:"type:jsonb"`
	CPNodeIDs                  StringArray `gorm:"type:jsonb;default:'[]'"`
	OriginalEdgeTransferTimes  JSONB     `gorm:"type:jsonb"`
	FinalWorkerCumulativeTimes JSONB     `gorm:"type:jsonb"`
	Schedule                   JSONB     `gorm:"type:jsonb"`
	CreatedAt                  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_sim_records_created_at"`
}

// TableName specifies the table name for SimulationRecordModel.
func (SimulationRecordModel) TableName() string { return "simulation_records" }

// StringArray is a custom type for string array columns.
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}

// ToSimulationRecord converts a SimulationRecordModel to a
// models.SimulationRecord. batchID/topologyID are not part of
// SimulationRecord itself; callers that need them read the model fields
// directly.
func (m *SimulationRecordModel) ToSimulationRecord() (*models.SimulationRecord, error) {
	perNodeExec, err := decodeDurationMap(m.PerNodeExec)
	if err != nil {
		return nil, err
	}
	perEdgeTransfer, err := decodeDurationMap(m.PerEdgeTransfer)
	if err != nil {
		return nil, err
	}
	originalTransfer, err := decodeDurationMap(m.OriginalEdgeTransferTimes)
	if err != nil {
		return nil, err
	}
	cumulative, err := decodeDurationMap(m.FinalWorkerCumulativeTimes)
	if err != nil {
		return nil, err
	}

	var schedule []models.ScheduledTask
	if m.Schedule != nil {
		raw, err := json.Marshal(m.Schedule)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &schedule); err != nil {
			return nil, err
		}
	}

	return &models.SimulationRecord{
		SimNumber:                  m.SimNumber,
		Actual:                     time.Duration(m.ActualNanos),
		Theoretical:                time.Duration(m.TheoreticalNanos),
		PerNodeExec:                perNodeExec,
		PerEdgeTransfer:            perEdgeTransfer,
		CPNodeIDs:                  []string(m.CPNodeIDs),
		WorkerCount:                m.WorkerCount,
		Algorithm:                  models.Algorithm(m.Algorithm),
		OriginalEdgeTransferTimes:  originalTransfer,
		FinalWorkerCumulativeTimes: cumulative,
		Schedule:                   schedule,
	}, nil
}

// FromSimulationRecord converts a models.SimulationRecord plus its owning
// batch/topology IDs into a SimulationRecordModel.
func FromSimulationRecord(batchID, topologyID uuid.UUID, r *models.SimulationRecord) (*SimulationRecordModel, error) {
	perNodeExec, err := encodeDurationMap(r.PerNodeExec)
	if err != nil {
		return nil, err
	}
	perEdgeTransfer, err := encodeDurationMap(r.PerEdgeTransfer)
	if err != nil {
		return nil, err
	}
	originalTransfer, err := encodeDurationMap(r.OriginalEdgeTransferTimes)
	if err != nil {
		return nil, err
	}
	cumulative, err := encodeDurationMap(r.FinalWorkerCumulativeTimes)
	if err != nil {
		return nil, err
	}

	scheduleRaw, err := json.Marshal(r.Schedule)
	if err != nil {
		return nil, err
	}
	var scheduleJSON JSONB
	_ = json.Unmarshal(scheduleRaw, &scheduleJSON) // array marshals fine into a map-shaped JSONB container for storage purposes only

	return &SimulationRecordModel{
		ID:                         uuid.New(),
		BatchID:                    batchID,
		TopologyID:                 topologyID,
		SimNumber:                  r.SimNumber,
		Algorithm:                  string(r.Algorithm),
		WorkerCount:                r.WorkerCount,
		ActualNanos:                int64(r.Actual),
		TheoreticalNanos:           int64(r.Theoretical),
		PerNodeExec:                perNodeExec,
		PerEdgeTransfer:            perEdgeTransfer,
		CPNodeIDs:                  StringArray(r.CPNodeIDs),
		OriginalEdgeTransferTimes:  originalTransfer,
		FinalWorkerCumulativeTimes: cumulative,
		Schedule:                   scheduleJSON,
	}, nil
}

func encodeDurationMap(m map[string]time.Duration) (JSONB, error) {
	out := make(JSONB, len(m))
	for k, v := range m {
		out[k] = int64(v)
	}
	return out, nil
}

func decodeDurationMap(m JSONB) (map[string]time.Duration, error) {
	out := make(map[string]time.Duration, len(m))
	for k, v := range m {
		switch n := v.(type) {
		case float64:
			out[k] = time.Duration(int64(n))
		case int64:
			out[k] = time.Duration(n)
		}
	}
	return out, nil
}

package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/katanaflow/heftsim/pkg/models"
	"gorm.io/gorm"
)

type simulationRepository struct {
	db *gorm.DB
}

// NewSimulationRepository creates a new simulation record repository.
func NewSimulationRepository(db *gorm.DB) SimulationRecordRepository {
	return &simulationRepository{db: db}
}

func (r *simulationRepository) Create(ctx context.Context, batchID, topologyID string, record *models.SimulationRecord) error {
	batchUUID, err := uuid.Parse(batchID)
	if err != nil {
		return fmt.Errorf("invalid batch ID: %w", err)
	}
	topologyUUID, err := uuid.Parse(topologyID)
	if err != nil {
		return fmt.Errorf("invalid topology ID: %w", err)
	}

	model, err := FromSimulationRecord(batchUUID, topologyUUID, record)
	if err != nil {
		return fmt.Errorf("failed to convert simulation record to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create simulation record: %w", err)
	}

	return nil
}

func (r *simulationRepository) CreateBatch(ctx context.Context, batchID, topologyID string, records []models.SimulationRecord) error {
	if len(records) == 0 {
		return nil
	}

	batchUUID, err := uuid.Parse(batchID)
	if err != nil {
		return fmt.Errorf("invalid batch ID: %w", err)
	}
	topologyUUID, err := uuid.Parse(topologyID)
	if err != nil {
		return fmt.Errorf("invalid topology ID: %w", err)
	}

	rows := make([]*SimulationRecordModel, len(records))
	for i := range records {
		model, err := FromSimulationRecord(batchUUID, topologyUUID, &records[i])
		if err != nil {
			return fmt.Errorf("failed to convert simulation record %d to model: %w", i, err)
		}
		rows[i] = model
	}

	if err := r.db.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("failed to create simulation record batch: %w", err)
	}

	return nil
}

func (r *simulationRepository) Get(ctx context.Context, id string) (*models.SimulationRecord, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid simulation record ID: %w", err)
	}

	var model SimulationRecordModel
	if err := r.db.WithContext(ctx).Where("id = ?", recordID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: simulation record %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get simulation record: %w", err)
	}

	return model.ToSimulationRecord()
}

func (r *simulationRepository) List(ctx context.Context, filters SimulationRecordFilters) ([]*models.SimulationRecord, error) {
	query := r.db.WithContext(ctx).Model(&SimulationRecordModel{})

	if filters.BatchID != "" {
		batchID, err := uuid.Parse(filters.BatchID)
		if err != nil {
			return nil, fmt.Errorf("invalid batch ID: %w", err)
		}
		query = query.Where("batch_id = ?", batchID)
	}
	if filters.TopologyID != "" {
		topologyID, err := uuid.Parse(filters.TopologyID)
		if err != nil {
			return nil, fmt.Errorf("invalid topology ID: %w", err)
		}
		query = query.Where("topology_id = ?", topologyID)
	}
	if filters.Algorithm != nil {
		query = query.Where("algorithm = ?", string(*filters.Algorithm))
	}
	if filters.After != nil {
		query = query.Where("created_at > ?", *filters.After)
	}
	if filters.Before != nil {
		query = query.Where("created_at < ?", *filters.Before)
	}

	query = query.Order("sim_number ASC")

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var rows []SimulationRecordModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list simulation records: %w", err)
	}

	records := make([]*models.SimulationRecord, len(rows))
	for i, row := range rows {
		record, err := row.ToSimulationRecord()
		if err != nil {
			return nil, fmt.Errorf("failed to decode simulation record %s: %w", row.ID, err)
		}
		records[i] = record
	}

	return records, nil
}

func (r *simulationRepository) DeleteBatch(ctx context.Context, batchID string) error {
	batchUUID, err := uuid.Parse(batchID)
	if err != nil {
		return fmt.Errorf("invalid batch ID: %w", err)
	}

	if err := r.db.WithContext(ctx).Where("batch_id = ?", batchUUID).Delete(&SimulationRecordModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete simulation batch: %w", err)
	}

	return nil
}

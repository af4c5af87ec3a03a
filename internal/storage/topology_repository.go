package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/katanaflow/heftsim/pkg/models"
	"gorm.io/gorm"
)

type topologyRepository struct {
	db *gorm.DB
}

// NewTopologyRepository creates a new workflow topology repository.
func NewTopologyRepository(db *gorm.DB) WorkflowTopologyRepository {
	return &topologyRepository{db: db}
}

func (r *topologyRepository) Create(ctx context.Context, topology *models.WorkflowTopology) error {
	model, err := FromTopology(topology)
	if err != nil {
		return fmt.Errorf("failed to convert topology to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create topology: %w", err)
	}

	topology.ID = model.ID.String()

	return nil
}

func (r *topologyRepository) Get(ctx context.Context, id string) (*models.WorkflowTopology, error) {
	topologyID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid topology ID: %w", err)
	}

	var model WorkflowTopologyModel
	if err := r.db.WithContext(ctx).Where("id = ?", topologyID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: topology %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get topology: %w", err)
	}

	return model.ToTopology(), nil
}

func (r *topologyRepository) GetByName(ctx context.Context, name string) (*models.WorkflowTopology, error) {
	var model WorkflowTopologyModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: topology %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to get topology by name: %w", err)
	}

	return model.ToTopology(), nil
}

func (r *topologyRepository) List(ctx context.Context, filters TopologyFilters) ([]*models.WorkflowTopology, error) {
	query := r.db.WithContext(ctx).Model(&WorkflowTopologyModel{})

	if filters.NamePrefix != "" {
		query = query.Where("name LIKE ?", filters.NamePrefix+"%")
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var rows []WorkflowTopologyModel
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list topologies: %w", err)
	}

	topologies := make([]*models.WorkflowTopology, len(rows))
	for i, row := range rows {
		topologies[i] = row.ToTopology()
	}

	return topologies, nil
}

func (r *topologyRepository) Update(ctx context.Context, topology *models.WorkflowTopology) error {
	topologyID, err := uuid.Parse(topology.ID)
	if err != nil {
		return fmt.Errorf("invalid topology ID: %w", err)
	}

	model, err := FromTopology(topology)
	if err != nil {
		return fmt.Errorf("failed to convert topology to model: %w", err)
	}
	model.ID = topologyID

	if err := r.db.WithContext(ctx).Model(&WorkflowTopologyModel{}).Where("id = ?", topologyID).Updates(model).Error; err != nil {
		return fmt.Errorf("failed to update topology: %w", err)
	}

	return nil
}

func (r *topologyRepository) Delete(ctx context.Context, id string) error {
	topologyID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid topology ID: %w", err)
	}

	result := r.db.WithContext(ctx).Delete(&WorkflowTopologyModel{}, "id = ?", topologyID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete topology: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: topology %s", ErrNotFound, id)
	}

	return nil
}

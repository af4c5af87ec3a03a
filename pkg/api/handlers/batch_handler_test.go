package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/katanaflow/heftsim/internal/montecarlo"
	"github.com/katanaflow/heftsim/internal/storage"
	"github.com/katanaflow/heftsim/pkg/api/dto"
	"github.com/katanaflow/heftsim/pkg/api/handlers"
	"github.com/katanaflow/heftsim/pkg/models"
)

// MockSimulationRepository is a mock implementation of storage.SimulationRecordRepository.
type MockSimulationRepository struct {
	mock.Mock
}

func (m *MockSimulationRepository) Create(ctx context.Context, batchID, topologyID string, record *models.SimulationRecord) error {
	args := m.Called(ctx, batchID, topologyID, record)
	return args.Error(0)
}

func (m *MockSimulationRepository) CreateBatch(ctx context.Context, batchID, topologyID string, records []models.SimulationRecord) error {
	args := m.Called(ctx, batchID, topologyID, records)
	return args.Error(0)
}

func (m *MockSimulationRepository) Get(ctx context.Context, id string) (*models.SimulationRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SimulationRecord), args.Error(1)
}

func (m *MockSimulationRepository) List(ctx context.Context, filters storage.SimulationRecordFilters) ([]*models.SimulationRecord, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SimulationRecord), args.Error(1)
}

func (m *MockSimulationRepository) DeleteBatch(ctx context.Context, batchID string) error {
	args := m.Called(ctx, batchID)
	return args.Error(0)
}

func diamondTopology() *models.WorkflowTopology {
	return &models.WorkflowTopology{
		ID:   "t1",
		Name: "diamond",
		Nodes: []models.Node{
			{ID: "A", ExecutionTime: 2 * time.Second},
			{ID: "B", ExecutionTime: 3 * time.Second},
			{ID: "C", ExecutionTime: 4 * time.Second},
			{ID: "D", ExecutionTime: 1 * time.Second},
		},
		Edges: []models.Edge{
			{SourceID: "A", TargetID: "B"},
			{SourceID: "A", TargetID: "C"},
			{SourceID: "B", TargetID: "D"},
			{SourceID: "C", TargetID: "D"},
		},
	}
}

func TestSimulate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("successful batch run", func(t *testing.T) {
		mockTopoRepo := new(MockTopologyRepository)
		mockRecordRepo := new(MockSimulationRepository)
		handler := handlers.NewBatchHandler(mockTopoRepo, mockRecordRepo, montecarlo.NewBatchCache(montecarlo.BatchCacheConfig{}), nil)

		mockTopoRepo.On("Get", mock.Anything, "t1").Return(diamondTopology(), nil)
		mockRecordRepo.On("CreateBatch", mock.Anything, mock.Anything, "t1", mock.Anything).Return(nil)

		reqBody := dto.SimulateRequest{
			Algorithm:   "greedy",
			WorkerCount: 2,
			Simulations: 5,
		}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/t1/simulate", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router := gin.Default()
		router.POST("/api/v1/workflows/:id/simulate", handler.Simulate)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.BatchResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "t1", response.TopologyID)
		assert.Equal(t, 5, response.Statistics.Count)
		assert.Len(t, response.Records, 5)

		mockTopoRepo.AssertExpectations(t)
		mockRecordRepo.AssertExpectations(t)
	})

	t.Run("unknown topology", func(t *testing.T) {
		mockTopoRepo := new(MockTopologyRepository)
		mockRecordRepo := new(MockSimulationRepository)
		handler := handlers.NewBatchHandler(mockTopoRepo, mockRecordRepo, nil, nil)

		mockTopoRepo.On("Get", mock.Anything, "missing").Return(nil, fmt.Errorf("wrap: %w", storage.ErrNotFound))

		reqBody := dto.SimulateRequest{Algorithm: "greedy", WorkerCount: 2, Simulations: 5}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/missing/simulate", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router := gin.Default()
		router.POST("/api/v1/workflows/:id/simulate", handler.Simulate)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockRecordRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		mockTopoRepo := new(MockTopologyRepository)
		mockRecordRepo := new(MockSimulationRepository)
		handler := handlers.NewBatchHandler(mockTopoRepo, mockRecordRepo, nil, nil)

		mockTopoRepo.On("Get", mock.Anything, "t1").Return(diamondTopology(), nil)

		reqBody := map[string]interface{}{
			"algorithm":    "quantum_anneal",
			"worker_count": 2,
			"simulations":  5,
		}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/t1/simulate", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router := gin.Default()
		router.POST("/api/v1/workflows/:id/simulate", handler.Simulate)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetBatch(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("successful get", func(t *testing.T) {
		mockTopoRepo := new(MockTopologyRepository)
		mockRecordRepo := new(MockSimulationRepository)
		handler := handlers.NewBatchHandler(mockTopoRepo, mockRecordRepo, nil, nil)

		records := []*models.SimulationRecord{
			{SimNumber: 0, Actual: 10 * time.Second, Theoretical: 8 * time.Second, Algorithm: models.AlgorithmGreedy},
			{SimNumber: 1, Actual: 9 * time.Second, Theoretical: 8 * time.Second, Algorithm: models.AlgorithmGreedy},
		}
		mockRecordRepo.On("List", mock.Anything, mock.AnythingOfType("storage.SimulationRecordFilters")).Return(records, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/batches/b1", nil)
		w := httptest.NewRecorder()

		router := gin.Default()
		router.GET("/api/v1/batches/:id", handler.GetBatch)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.BatchResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "b1", response.BatchID)
		assert.Equal(t, 2, response.Statistics.Count)
		mockRecordRepo.AssertExpectations(t)
	})

	t.Run("batch not found", func(t *testing.T) {
		mockTopoRepo := new(MockTopologyRepository)
		mockRecordRepo := new(MockSimulationRepository)
		handler := handlers.NewBatchHandler(mockTopoRepo, mockRecordRepo, nil, nil)

		mockRecordRepo.On("List", mock.Anything, mock.AnythingOfType("storage.SimulationRecordFilters")).Return([]*models.SimulationRecord{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/batches/missing", nil)
		w := httptest.NewRecorder()

		router := gin.Default()
		router.GET("/api/v1/batches/:id", handler.GetBatch)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockRecordRepo.AssertExpectations(t)
	})
}

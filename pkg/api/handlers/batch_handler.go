package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/katanaflow/heftsim/internal/montecarlo"
	"github.com/katanaflow/heftsim/internal/scheduler"
	"github.com/katanaflow/heftsim/internal/solver"
	"github.com/katanaflow/heftsim/internal/storage"
	"github.com/katanaflow/heftsim/pkg/api/dto"
	"github.com/katanaflow/heftsim/pkg/api/middleware"
	"github.com/katanaflow/heftsim/pkg/models"
)

// BatchHandler handles Monte-Carlo batch simulation HTTP requests.
type BatchHandler struct {
	topologyRepo storage.WorkflowTopologyRepository
	recordRepo   storage.SimulationRecordRepository
	cache        *montecarlo.BatchCache
	solverClient *solver.Client
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(
	topologyRepo storage.WorkflowTopologyRepository,
	recordRepo storage.SimulationRecordRepository,
	cache *montecarlo.BatchCache,
	solverClient *solver.Client,
) *BatchHandler {
	return &BatchHandler{
		topologyRepo: topologyRepo,
		recordRepo:   recordRepo,
		cache:        cache,
		solverClient: solverClient,
	}
}

// Simulate handles POST /api/v1/workflows/:id/simulate
// @Summary Run a Monte-Carlo simulation batch
// @Description Sample a stored workflow topology N times under an algorithm and worker count, returning batch statistics
// @Tags batches
// @Accept json
// @Produce json
// @Param id path string true "Topology ID"
// @Param request body dto.SimulateRequest true "Batch parameters"
// @Success 201 {object} dto.BatchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/workflows/{id}/simulate [post]
func (h *BatchHandler) Simulate(c *gin.Context) {
	topologyID := c.Param("id")

	var req dto.SimulateRequest
	if !middleware.BindAndValidate(c, &req) {
		return
	}

	topology, err := h.topologyRepo.Get(c.Request.Context(), topologyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.AbortWithError(c, http.StatusNotFound, "TOPOLOGY_NOT_FOUND", "workflow topology not found")
			return
		}
		middleware.AbortWithError(c, http.StatusInternalServerError, "GET_FAILED", err.Error())
		return
	}

	algorithm := models.Algorithm(req.Algorithm)
	if !algorithm.Valid() {
		middleware.AbortWithError(c, http.StatusBadRequest, "INVALID_ALGORITHM", "unknown algorithm: "+req.Algorithm)
		return
	}

	workers := buildWorkers(req.WorkerCount)

	var sched scheduler.Scheduler
	if algorithm == models.AlgorithmODPIP {
		sched, err = h.resolveODPIP(c.Request.Context(), topology, req.IncludeTransferInCPM)
		if err != nil {
			middleware.AbortWithError(c, http.StatusBadGateway, "SOLVER_FAILED", err.Error())
			return
		}
	}

	cfg := montecarlo.BatchConfig{
		Template:             topology,
		Workers:              workers,
		Algorithm:            algorithm,
		Scheduler:            sched,
		UseTransferTime:      req.UseTransferTime,
		IncludeTransferInCPM: req.IncludeTransferInCPM,
		N:                    req.Simulations,
		Seed:                 req.Seed,
	}

	var runner montecarlo.Runner
	if req.Parallel {
		runner = montecarlo.NewParallelRunner(req.Concurrency)
	} else {
		runner = montecarlo.NewSequentialRunner()
	}

	records, err := runner.Run(c.Request.Context(), cfg)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "SIMULATION_FAILED", err.Error())
		return
	}

	stats := montecarlo.Summarize(records, 20)

	batchID := uuid.New().String()
	if err := h.recordRepo.CreateBatch(c.Request.Context(), batchID, topologyID, records); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "PERSIST_FAILED", err.Error())
		return
	}
	if h.cache != nil {
		_ = h.cache.StoreResult(c.Request.Context(), batchID, stats)
	}

	recordResponses := make([]dto.SimulationRecordResponse, len(records))
	for i, r := range records {
		recordResponses[i] = dto.ToSimulationRecordResponse(r)
	}

	c.JSON(http.StatusCreated, dto.BatchResponse{
		BatchID:    batchID,
		TopologyID: topologyID,
		Statistics: dto.ToBatchStatisticsResponse(stats),
		Records:    recordResponses,
	})
}

// GetBatch handles GET /api/v1/batches/:id
// @Summary Get a batch's simulation records
// @Description Get every simulation record belonging to a batch, plus its memoized statistics if cached
// @Tags batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} dto.BatchResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/batches/{id} [get]
func (h *BatchHandler) GetBatch(c *gin.Context) {
	batchID := c.Param("id")

	records, err := h.recordRepo.List(c.Request.Context(), storage.SimulationRecordFilters{BatchID: batchID})
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "LIST_FAILED", err.Error())
		return
	}
	if len(records) == 0 {
		middleware.AbortWithError(c, http.StatusNotFound, "BATCH_NOT_FOUND", "batch not found")
		return
	}

	recs := make([]models.SimulationRecord, len(records))
	for i, r := range records {
		recs[i] = *r
	}

	stats, ok, err := h.cacheLoad(c, batchID)
	if err != nil || !ok {
		stats = montecarlo.Summarize(recs, 20)
	}

	recordResponses := make([]dto.SimulationRecordResponse, len(recs))
	for i, r := range recs {
		recordResponses[i] = dto.ToSimulationRecordResponse(r)
	}

	c.JSON(http.StatusOK, dto.BatchResponse{
		BatchID:    batchID,
		Statistics: dto.ToBatchStatisticsResponse(stats),
		Records:    recordResponses,
	})
}

func (h *BatchHandler) cacheLoad(c *gin.Context, batchID string) (models.BatchStatistics, bool, error) {
	if h.cache == nil {
		return models.BatchStatistics{}, false, nil
	}
	return h.cache.LoadResult(c.Request.Context(), batchID)
}

// buildWorkers constructs n workers, flagging the first as the critical
// path worker per spec.md §4.3's convention.
func buildWorkers(n int) []*models.Worker {
	workers := make([]*models.Worker, n)
	for i := 0; i < n; i++ {
		workers[i] = &models.Worker{
			ID:                 fmt.Sprintf("worker-%d", i),
			CriticalPathWorker: i == 0,
		}
	}
	return workers
}

// resolveODPIP resolves the ODP-IP driver for topology via the external
// solver (spec.md §6, §7).
func (h *BatchHandler) resolveODPIP(ctx context.Context, topology *models.WorkflowTopology, includeTransferInCPM bool) (scheduler.Scheduler, error) {
	if h.solverClient == nil {
		return nil, errors.New("odp_ip requires a configured solver client")
	}

	partition, err := solver.ResolvePartition(ctx, h.solverClient, topology, includeTransferInCPM)
	if err != nil {
		return nil, err
	}
	return scheduler.NewODPIP(partition), nil
}

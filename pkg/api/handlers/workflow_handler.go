package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/katanaflow/heftsim/internal/dag"
	"github.com/katanaflow/heftsim/internal/storage"
	"github.com/katanaflow/heftsim/pkg/api/dto"
	"github.com/katanaflow/heftsim/pkg/api/middleware"
)

// WorkflowHandler handles workflow-topology-related HTTP requests.
type WorkflowHandler struct {
	topologyRepo storage.WorkflowTopologyRepository
}

// NewWorkflowHandler creates a new workflow handler.
func NewWorkflowHandler(topologyRepo storage.WorkflowTopologyRepository) *WorkflowHandler {
	return &WorkflowHandler{
		topologyRepo: topologyRepo,
	}
}

// CreateTopology handles POST /api/v1/workflows
// @Summary Upload a workflow topology
// @Description Create a new workflow topology from its nodes and edges
// @Tags workflows
// @Accept json
// @Produce json
// @Param topology body dto.CreateTopologyRequest true "Workflow topology"
// @Success 201 {object} dto.TopologyResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/workflows [post]
func (h *WorkflowHandler) CreateTopology(c *gin.Context) {
	var req dto.CreateTopologyRequest
	if !middleware.BindAndValidate(c, &req) {
		return
	}

	topology := req.ToTopology()

	// Validate the graph structure (acyclicity, dangling edges) before
	// persisting it.
	if err := dag.NewValidator().Validate(topology); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "INVALID_TOPOLOGY", err.Error())
		return
	}

	if err := h.topologyRepo.Create(c.Request.Context(), topology); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "CREATE_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusCreated, dto.ToTopologyResponse(topology))
}

// ListTopologies handles GET /api/v1/workflows
// @Summary List workflow topologies
// @Description Get a paginated list of workflow topologies
// @Tags workflows
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param name_prefix query string false "Filter by name prefix"
// @Success 200 {object} dto.TopologyListResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/workflows [get]
func (h *WorkflowHandler) ListTopologies(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filters := storage.TopologyFilters{
		NamePrefix: c.Query("name_prefix"),
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}

	topologies, err := h.topologyRepo.List(c.Request.Context(), filters)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "LIST_FAILED", err.Error())
		return
	}

	responses := make([]dto.TopologyResponse, len(topologies))
	for i, t := range topologies {
		responses[i] = dto.ToTopologyResponse(t)
	}

	// TODO: get an exact total count for pagination rather than the page length.
	totalCount := int64(len(responses))

	c.JSON(http.StatusOK, dto.TopologyListResponse{
		Topologies: responses,
		Pagination: dto.NewPaginationMeta(page, pageSize, totalCount),
	})
}

// GetTopology handles GET /api/v1/workflows/:id
// @Summary Get workflow topology details
// @Description Get details of a specific workflow topology
// @Tags workflows
// @Produce json
// @Param id path string true "Topology ID"
// @Success 200 {object} dto.TopologyResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/workflows/{id} [get]
func (h *WorkflowHandler) GetTopology(c *gin.Context) {
	id := c.Param("id")

	topology, err := h.topologyRepo.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.AbortWithError(c, http.StatusNotFound, "TOPOLOGY_NOT_FOUND", "workflow topology not found")
			return
		}
		middleware.AbortWithError(c, http.StatusInternalServerError, "GET_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.ToTopologyResponse(topology))
}

// DeleteTopology handles DELETE /api/v1/workflows/:id
// @Summary Delete a workflow topology
// @Description Delete a workflow topology and its simulation history
// @Tags workflows
// @Param id path string true "Topology ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/workflows/{id} [delete]
func (h *WorkflowHandler) DeleteTopology(c *gin.Context) {
	id := c.Param("id")

	if err := h.topologyRepo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.AbortWithError(c, http.StatusNotFound, "TOPOLOGY_NOT_FOUND", "workflow topology not found")
			return
		}
		middleware.AbortWithError(c, http.StatusInternalServerError, "DELETE_FAILED", err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}

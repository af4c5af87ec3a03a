package dto

import (
	"time"

	"github.com/katanaflow/heftsim/pkg/models"
)

// GammaParamsDTO is the (shape, scale) pair of a Gamma distribution.
type GammaParamsDTO struct {
	Shape float64 `json:"shape" validate:"omitempty,gt=0"`
	Scale float64 `json:"scale" validate:"omitempty,gt=0"`
}

// NodeDTO represents a task node in a workflow topology.
type NodeDTO struct {
	ID            string         `json:"id" validate:"required"`
	Name          string         `json:"name"`
	ExecutionTime time.Duration  `json:"execution_time" validate:"min=0"`
	Gamma         GammaParamsDTO `json:"gamma_distribution"`
}

// EdgeDTO represents a directed dependency in a workflow topology.
type EdgeDTO struct {
	SourceID     string         `json:"source_id" validate:"required"`
	TargetID     string         `json:"target_id" validate:"required"`
	TransferTime time.Duration  `json:"transfer_time" validate:"min=0"`
	Gamma        GammaParamsDTO `json:"gamma_distribution"`
}

// CreateTopologyRequest represents the request to upload a workflow topology.
type CreateTopologyRequest struct {
	Name  string    `json:"name" validate:"required,min=1,max=255"`
	Nodes []NodeDTO `json:"nodes" validate:"required,min=1,dive"`
	Edges []EdgeDTO `json:"edges" validate:"dive"`
}

// TopologyResponse represents the response for a stored workflow topology.
type TopologyResponse struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Nodes []NodeDTO `json:"nodes"`
	Edges []EdgeDTO `json:"edges"`
}

// TopologyListResponse represents a paginated list of workflow topologies.
type TopologyListResponse struct {
	Topologies []TopologyResponse `json:"topologies"`
	Pagination PaginationMeta     `json:"pagination"`
}

func toGammaDTO(g models.GammaParams) GammaParamsDTO {
	return GammaParamsDTO{Shape: g.Shape, Scale: g.Scale}
}

func (g GammaParamsDTO) toModel() models.GammaParams {
	return models.GammaParams{Shape: g.Shape, Scale: g.Scale}
}

// ToNode converts a NodeDTO to a models.Node.
func (n NodeDTO) ToNode() models.Node {
	return models.Node{
		ID:            n.ID,
		Name:          n.Name,
		ExecutionTime: n.ExecutionTime,
		Gamma:         n.Gamma.toModel(),
	}
}

// ToEdge converts an EdgeDTO to a models.Edge.
func (e EdgeDTO) ToEdge() models.Edge {
	return models.Edge{
		SourceID:     e.SourceID,
		TargetID:     e.TargetID,
		TransferTime: e.TransferTime,
		Gamma:        e.Gamma.toModel(),
	}
}

// ToTopology converts a CreateTopologyRequest to a models.WorkflowTopology.
func (r CreateTopologyRequest) ToTopology() *models.WorkflowTopology {
	nodes := make([]models.Node, len(r.Nodes))
	for i, n := range r.Nodes {
		nodes[i] = n.ToNode()
	}
	edges := make([]models.Edge, len(r.Edges))
	for i, e := range r.Edges {
		edges[i] = e.ToEdge()
	}

	return &models.WorkflowTopology{
		Name:  r.Name,
		Nodes: nodes,
		Edges: edges,
	}
}

// ToTopologyResponse converts a models.WorkflowTopology to a TopologyResponse.
func ToTopologyResponse(t *models.WorkflowTopology) TopologyResponse {
	nodes := make([]NodeDTO, len(t.Nodes))
	for i, n := range t.Nodes {
		nodes[i] = NodeDTO{ID: n.ID, Name: n.Name, ExecutionTime: n.ExecutionTime, Gamma: toGammaDTO(n.Gamma)}
	}
	edges := make([]EdgeDTO, len(t.Edges))
	for i, e := range t.Edges {
		edges[i] = EdgeDTO{SourceID: e.SourceID, TargetID: e.TargetID, TransferTime: e.TransferTime, Gamma: toGammaDTO(e.Gamma)}
	}

	return TopologyResponse{
		ID:    t.ID,
		Name:  t.Name,
		Nodes: nodes,
		Edges: edges,
	}
}

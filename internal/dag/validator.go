package dag

import (
	"fmt"

	"github.com/katanaflow/heftsim/pkg/models"
)

// Validator checks the structural invariants spec.md §3 places on a
// WorkflowTopology: no duplicate node IDs, no dangling edge endpoints, no
// multi-edges, no negative durations, and no cycles.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks topology and returns the first violation found.
func (v *Validator) Validate(topology *models.WorkflowTopology) error {
	if topology.Name == "" {
		return ErrEmptyName
	}
	if len(topology.Nodes) == 0 {
		return ErrNoNodes
	}

	seen := make(map[string]bool, len(topology.Nodes))
	for _, n := range topology.Nodes {
		if seen[n.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = true
		if n.ExecutionTime < 0 {
			return fmt.Errorf("%w: node %s execution_time", ErrNegativeDuration, n.ID)
		}
	}

	edgeSeen := make(map[[2]string]bool, len(topology.Edges))
	for _, e := range topology.Edges {
		if !seen[e.SourceID] {
			return fmt.Errorf("%w: edge source %s", ErrDanglingEdge, e.SourceID)
		}
		if !seen[e.TargetID] {
			return fmt.Errorf("%w: edge target %s", ErrDanglingEdge, e.TargetID)
		}
		key := [2]string{e.SourceID, e.TargetID}
		if edgeSeen[key] {
			return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, e.SourceID, e.TargetID)
		}
		edgeSeen[key] = true
		if e.TransferTime < 0 {
			return fmt.Errorf("%w: edge %s->%s transfer_time", ErrNegativeDuration, e.SourceID, e.TargetID)
		}
	}

	if _, err := NewGraph(topology).TopologicalOrder(); err != nil {
		return err
	}

	return nil
}

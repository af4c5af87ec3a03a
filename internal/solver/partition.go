package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/katanaflow/heftsim/internal/dag"
	"github.com/katanaflow/heftsim/pkg/models"
)

// ErrInvalidPartitionIndex is returned when a solver response's 1-based
// agent index falls outside [1,N] for the requested agent count (spec.md
// §9 Open Question: the index-base mapping is asserted at the boundary).
var ErrInvalidPartitionIndex = errors.New("solver: partition index out of range")

// Partition is the solver's coalition structure translated into 0-based
// node IDs, one slice per coalition block.
type Partition [][]string

// Scope names the two non-CP task populations a partition request can be
// built over. No function in this package takes a Scope: ResolvePartition
// always builds over ScopeWorkflowWide, and the per-CP-node mode has no
// implementation.
type Scope string

const (
	// ScopeWorkflowWide partitions the entire non-CP task set in one
	// solver call.
	ScopeWorkflowWide Scope = "workflow-wide"

	// ScopePerCPNode partitions one CP node's non-CP dependency chain at
	// a time, producing multiple independent solver calls.
	ScopePerCPNode Scope = "per-cp-node"
)

// Translate maps a solver response's 1-based agent-index partition into
// node IDs via nodes[index-1], asserting every index lies in [1,len(nodes)]
// (spec.md §9, §7 Invalid input).
func Translate(rawPartition [][]int, nodes []string) (Partition, error) {
	n := len(nodes)
	partition := make(Partition, len(rawPartition))
	seen := make(map[int]bool, n)

	for bi, block := range rawPartition {
		ids := make([]string, 0, len(block))
		for _, idx := range block {
			if idx < 1 || idx > n {
				return nil, fmt.Errorf("%w: index %d outside [1,%d]", ErrInvalidPartitionIndex, idx, n)
			}
			if seen[idx] {
				return nil, fmt.Errorf("%w: index %d assigned to more than one coalition", ErrInvalidPartitionIndex, idx)
			}
			seen[idx] = true
			ids = append(ids, nodes[idx-1])
		}
		partition[bi] = ids
	}

	if len(seen) != n {
		return nil, fmt.Errorf("%w: partition covers %d/%d agents", ErrInvalidPartitionIndex, len(seen), n)
	}
	return partition, nil
}

// ResolvePartition runs CPM over topology, submits the non-critical-path
// task subset's coalition values to client, and translates the returned
// partition into node IDs (spec.md §6, §7, ScopeWorkflowWide). An empty
// non-CP subset short-circuits to an empty Partition without a solver
// call.
func ResolvePartition(ctx context.Context, client *Client, topology *models.WorkflowTopology, includeTransferInCPM bool) (Partition, error) {
	annotated := dag.NewAnnotatedDAG(topology)
	if err := annotated.RunCPM(includeTransferInCPM); err != nil {
		return nil, fmt.Errorf("cpm: %w", err)
	}

	nonCP := make([]string, 0, annotated.Graph.NodeCount())
	for _, id := range annotated.Graph.NodeIDs() {
		if !annotated.CPM.OnCriticalPath[id] {
			nonCP = append(nonCP, id)
		}
	}
	// NodeIDs() iterates a map and has no stable order; CoalitionValues's
	// power-set indexing and linearValue's visitation-order bookkeeping
	// both depend on a fixed ordering, so the subset is sorted before use
	// (spec.md §6, §8 property 8 — deterministic given identical input).
	sort.Strings(nonCP)
	if len(nonCP) == 0 {
		return Partition{}, nil
	}
	if len(nonCP) > MaxAgents {
		return nil, fmt.Errorf("%d non-critical-path tasks exceeds solver limit of %d", len(nonCP), MaxAgents)
	}

	values, err := CoalitionValues(annotated.Graph, nonCP, annotated.CPM.TotalDuration, ValueFormulaLinear, DefaultExponentialParams())
	if err != nil {
		return nil, fmt.Errorf("coalition values: %w", err)
	}

	resp, err := client.Solve(ctx, SolveRequest{
		NumOfAgents:     len(nonCP),
		CoalitionValues: values,
	})
	if err != nil {
		return nil, err
	}

	return Translate(resp.Partition, nonCP)
}

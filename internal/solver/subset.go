// Package solver bridges to the external ODP-IP coalition-structure
// solver: subset-value construction, the HTTP wire protocol, and
// partition-to-worker assignment.
package solver

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/katanaflow/heftsim/internal/dag"
)

// ErrTooManyAgents is returned when subset enumeration is attempted for
// more than MaxAgents tasks — 2^26 values would be the next power of
// two, already past the documented hard cap (spec.md §7 Resource
// exhaustion).
var ErrTooManyAgents = errors.New("solver: subset enumeration exceeds 25-agent cap")

// MaxAgents is the largest non-CP task count subset enumeration accepts;
// 2^25 ≈ 3.4e7 values is the documented hard cap (spec.md §6, §7).
const MaxAgents = 25

// ValueFormula selects which subset-value construction spec.md §6
// describes; both are preserved (§9 Design notes), default Linear.
type ValueFormula string

const (
	// ValueFormulaLinear is the production formula: execution time plus
	// internal transfer time minus boundary transfer time, zeroed when
	// it exceeds the critical path duration.
	ValueFormulaLinear ValueFormula = "linear"

	// ValueFormulaExponential is the reworked variant:
	// α·exp(-(t_S-goal)²) + β·(1-exp(-c_S²)).
	ValueFormulaExponential ValueFormula = "exponential"
)

// ExponentialParams configures ValueFormulaExponential.
type ExponentialParams struct {
	Alpha, Beta float64
	Goal        time.Duration
}

// DefaultExponentialParams returns α=β=1, matching spec.md §6.
func DefaultExponentialParams() ExponentialParams {
	return ExponentialParams{Alpha: 1, Beta: 1}
}

// SubsetToMask returns the bitmask for subset, where bit i is set iff
// nodes[i] is a member of subset.
func SubsetToMask(subset []string, nodes []string) int {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}
	mask := 0
	for _, s := range subset {
		if i, ok := index[s]; ok {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// MaskToSubset returns the node IDs selected by mask's set bits.
func MaskToSubset(mask int, nodes []string) []string {
	var subset []string
	for i, n := range nodes {
		if mask&(1<<uint(i)) != 0 {
			subset = append(subset, n)
		}
	}
	return subset
}

// CoalitionValues builds the solver request payload: value(S) for every
// subset S of nodes, indexed by bitmask 0..2^len(nodes)-1 (spec.md §6,
// §8 property 8 — the enumerated set is exactly the power set).
func CoalitionValues(g *dag.Graph, nodes []string, cpDuration time.Duration, formula ValueFormula, params ExponentialParams) ([]float64, error) {
	if len(nodes) > MaxAgents {
		return nil, fmt.Errorf("%w: %d agents requested", ErrTooManyAgents, len(nodes))
	}

	n := len(nodes)
	values := make([]float64, 1<<uint(n))
	for mask := 1; mask < len(values); mask++ {
		subset := MaskToSubset(mask, nodes)
		switch formula {
		case ValueFormulaExponential:
			values[mask] = exponentialValue(g, subset, params)
		default:
			values[mask] = linearValue(g, subset, cpDuration)
		}
	}
	return values, nil
}

// linearValue is spec.md §6's default formula: execution time of every
// member plus transfer time of edges fully inside the subset, minus
// transfer time of edges crossing the subset boundary; zeroed if the
// total exceeds the critical path duration (out-of-range subsets have no
// value).
func linearValue(g *dag.Graph, subset []string, cpDuration time.Duration) float64 {
	member := make(map[string]bool, len(subset))
	for _, s := range subset {
		member[s] = true
	}

	var total time.Duration
	for _, id := range subset {
		node, ok := g.Node(id)
		if !ok {
			continue
		}
		total += node.ExecutionTime
	}

	seen := make(map[string]bool)
	for _, id := range subset {
		for _, e := range g.Successors(id) {
			key := e.SourceID + "->" + e.TargetID
			if seen[key] {
				continue
			}
			seen[key] = true
			if member[e.TargetID] {
				total += e.TransferTime // fully inside
			} else {
				total -= e.TransferTime // crosses the boundary
			}
		}
		for _, e := range g.Predecessors(id) {
			key := e.SourceID + "->" + e.TargetID
			if seen[key] {
				continue
			}
			seen[key] = true
			if member[e.SourceID] {
				total += e.TransferTime // fully inside
			} else {
				total -= e.TransferTime // crosses the boundary
			}
		}
	}

	if total > cpDuration {
		return 0
	}
	return float64(total)
}

// exponentialValue is spec.md §6's reworked formula:
// α·exp(-(t_S-goal)²) + β·(1-exp(-c_S²)), where t_S is the subset's total
// execution time (including boundary transfer to the anchor node) and
// c_S is its internal communication time.
func exponentialValue(g *dag.Graph, subset []string, params ExponentialParams) float64 {
	member := make(map[string]bool, len(subset))
	for _, s := range subset {
		member[s] = true
	}

	var execTotal, internalComm time.Duration
	for _, id := range subset {
		node, ok := g.Node(id)
		if !ok {
			continue
		}
		execTotal += node.ExecutionTime
		for _, e := range g.Successors(id) {
			if member[e.TargetID] {
				internalComm += e.TransferTime
			} else {
				execTotal += e.TransferTime // boundary edge counted into t_S
			}
		}
	}

	tS := float64(execTotal)
	goal := float64(params.Goal)
	cS := float64(internalComm)

	return params.Alpha*math.Exp(-(tS-goal)*(tS-goal)) + params.Beta*(1-math.Exp(-cS*cS))
}

// PowerSet returns every non-empty subset of nodes as an ID list, for
// testing enumeration completeness against CoalitionValues (spec.md §8
// property 8).
func PowerSet(nodes []string) [][]string {
	var out [][]string
	for mask := 1; mask < 1<<uint(len(nodes)); mask++ {
		out = append(out, MaskToSubset(mask, nodes))
	}
	return out
}

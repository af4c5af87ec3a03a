package dag

import "errors"

var (
	// ErrCycle is returned when the topology's edges induce a cycle.
	ErrCycle = errors.New("cycle detected in workflow topology")

	// ErrEmptyName is returned when a topology has no name.
	ErrEmptyName = errors.New("workflow topology name cannot be empty")

	// ErrNoNodes is returned when a topology has no nodes.
	ErrNoNodes = errors.New("workflow topology must have at least one node")

	// ErrDuplicateNode is returned when two nodes share an ID.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrDuplicateEdge is returned when two edges share a (source, target) pair.
	ErrDuplicateEdge = errors.New("duplicate edge between same source and target")

	// ErrDanglingEdge is returned when an edge references a node that does not exist.
	ErrDanglingEdge = errors.New("edge references non-existent node")

	// ErrNegativeDuration is returned when a node or edge carries a negative duration.
	ErrNegativeDuration = errors.New("negative duration is not allowed")
)

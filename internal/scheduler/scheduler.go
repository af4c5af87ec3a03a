// Package scheduler implements the five makespan-minimizing schedulers
// (Greedy, CP-Greedy, HEFT, CP-HEFT, PEFT) and the ODP-IP coalition-driven
// variant, sharing one ready-set dispatch loop and the rank/EFT primitives
// of internal/rank.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/katanaflow/heftsim/internal/dag"
	"github.com/katanaflow/heftsim/pkg/models"
)

// ErrNoProgress is returned when a full pass over the ready set placed no
// task — a defect in the variant's priority function or a ready set that
// cannot be reconciled with the graph's dependency structure, not a
// transient condition a caller can retry past.
var ErrNoProgress = errors.New("scheduler: no progress made in dispatch pass")

// ErrNoCPWorker is returned internally when a critical-path-aware variant
// cannot find a worker flagged CriticalPathWorker; callers recover by
// falling back to the first worker and proceeding (spec-level warning,
// not a hard failure).
var ErrNoCPWorker = errors.New("scheduler: no critical-path worker designated")

// Scheduler assigns ready tasks from an annotated DAG onto workers,
// returning the resulting schedule in dependency-respecting start order.
type Scheduler interface {
	// Name identifies the variant for logging and SimulationRecord.Algorithm.
	Name() models.Algorithm
	Schedule(ctx context.Context, annotated *dag.AnnotatedDAG, workers []*models.Worker) ([]models.ScheduledTask, error)
}

// lessFunc reports whether node a must be dispatched strictly before
// node b. Implementations compare whatever tiers/keys the variant needs;
// orderByPriority falls back to node-ID comparison only when lessFunc
// reports neither order (spec.md §9 Determinism).
type lessFunc func(a, b string) bool

// byValue builds a lessFunc from a single float64 priority (ascending —
// lower value dispatched first), for variants with a one-dimensional
// priority.
func byValue(value func(nodeID string) float64) lessFunc {
	return func(a, b string) bool {
		return value(a) < value(b)
	}
}

// dataReady returns the earliest time nodeID's inputs are all available:
// the max over predecessors of (predecessor's scheduled end + transfer
// time, zero if the predecessor landed on the same worker as candidate
// worker workerID).
func dataReady(annotated *dag.AnnotatedDAG, placed map[string]models.ScheduledTask, nodeID, workerID string) time.Duration {
	var ready time.Duration
	for _, pred := range annotated.Graph.Predecessors(nodeID) {
		task, ok := placed[pred.SourceID]
		if !ok {
			continue // predecessor not yet scheduled; dispatch loop retries later
		}
		transfer := pred.TransferTime
		if task.WorkerID == workerID {
			transfer = 0
		}
		candidate := task.End + transfer
		if candidate > ready {
			ready = candidate
		}
	}
	return ready
}

// dispatch runs the shared fixed-point loop: at every round, compute the
// ready set (predecessors all placed), order it by priority, place every
// node of that round via place in that order, and repeat until every node
// is placed or a round finds no ready node (ErrNoProgress, spec.md §4.3
// Failure semantics for "DAG not schedulable under current worker set").
func dispatch(annotated *dag.AnnotatedDAG, priority lessFunc, place func(nodeID string) error) error {
	done := make(map[string]bool, annotated.Graph.NodeCount())

	for len(done) < annotated.Graph.NodeCount() {
		ready := annotated.Graph.ReadyTasks(done)
		if len(ready) == 0 {
			return fmt.Errorf("%w: %d/%d nodes placed, no ready node remains", ErrNoProgress, len(done), annotated.Graph.NodeCount())
		}

		ordered := orderByPriority(ready, priority)
		progressed := false
		for _, nodeID := range ordered {
			if err := place(nodeID); err != nil {
				return err
			}
			done[nodeID] = true
			progressed = true
		}
		if !progressed {
			return ErrNoProgress
		}
	}
	return nil
}

// orderByPriority sorts ready node IDs by less, with a stable lexical
// tie-break on node ID when less reports neither order.
func orderByPriority(ready []string, less lessFunc) []string {
	ordered := make([]string, len(ready))
	copy(ordered, ready)

	// Simple insertion sort: ready sets are small (bounded by DAG width)
	// and this keeps the comparator's tie-break trivially stable.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0; j-- {
			a, b := ordered[j-1], ordered[j]
			if orderedLess(less, a, b) {
				break
			}
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}
	return ordered
}

// orderedLess reports whether a already precedes b: either less(a,b)
// holds, or neither order holds and a sorts first lexically.
func orderedLess(less lessFunc, a, b string) bool {
	if less(a, b) {
		return true
	}
	if less(b, a) {
		return false
	}
	return a <= b
}

// ErrUnknownAlgorithm is returned by New for an algorithm name New does
// not build directly — currently only models.AlgorithmODPIP, which needs
// a solver.Partition and is constructed via NewODPIP instead.
var ErrUnknownAlgorithm = errors.New("scheduler: unknown algorithm")

// New builds the Scheduler for one of the five greedy-family variants.
// models.AlgorithmODPIP is not buildable here since it additionally
// requires a solver.Partition; callers needing it use NewODPIP directly.
func New(algorithm models.Algorithm) (Scheduler, error) {
	switch algorithm {
	case models.AlgorithmGreedy:
		return NewGreedy(), nil
	case models.AlgorithmCPGreedy:
		return NewCPGreedy(), nil
	case models.AlgorithmHEFT:
		return NewHEFT(), nil
	case models.AlgorithmCPHEFT:
		return NewCPHEFT(), nil
	case models.AlgorithmPEFT:
		return NewPEFT(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algorithm)
	}
}

// cpWorker returns the first worker flagged CriticalPathWorker, or the
// first worker in the slice with ErrNoCPWorker if none is flagged — the
// caller logs the fallback and proceeds (spec §7).
func cpWorker(workers []*models.Worker) (*models.Worker, error) {
	for _, w := range workers {
		if w.CriticalPathWorker {
			return w, nil
		}
	}
	if len(workers) == 0 {
		return nil, fmt.Errorf("%w: no workers available", ErrNoCPWorker)
	}
	return workers[0], ErrNoCPWorker
}

package scheduler

import (
	"context"
	"time"

	"github.com/katanaflow/heftsim/internal/dag"
	"github.com/katanaflow/heftsim/pkg/models"
)

// CPGreedy is spec.md §4.3.2: CP tasks are dispatched before non-CP tasks
// in every round (both classes ordered shortest-execution-first), CP
// tasks are pinned to the designated critical-path worker, and non-CP
// tasks may use the CP worker only when doing so would not delay any
// still-unscheduled CP task past its CPM-predicted earliest start.
type CPGreedy struct{}

// NewCPGreedy returns the CP-Greedy scheduler.
func NewCPGreedy() *CPGreedy { return &CPGreedy{} }

func (CPGreedy) Name() models.Algorithm { return models.AlgorithmCPGreedy }

func (CPGreedy) Schedule(ctx context.Context, annotated *dag.AnnotatedDAG, workers []*models.Worker) ([]models.ScheduledTask, error) {
	// Cap CP-First dynamic worker creation at one per task (spec §4.3,
	// §9): a bound generous enough that the guard never has to perturb CP
	// timing in practice, but still a hard, documented ceiling rather than
	// unbounded allocation.
	pool := NewWorkerPool(workers, annotated.Graph.NodeCount())
	placed := make(map[string]models.ScheduledTask, annotated.Graph.NodeCount())
	var schedule []models.ScheduledTask

	cpw, _ := pool.CPWorker() // fallback to first worker is acceptable per spec §7

	// Two tiers: CP tasks before non-CP tasks; within each tier, ascending
	// execution time (spec §4.3.2 "same priority order within CP-vs-non-CP
	// classes").
	priority := func(a, b string) bool {
		na, _ := annotated.Graph.Node(a)
		nb, _ := annotated.Graph.Node(b)
		if na.CriticalPath != nb.CriticalPath {
			return na.CriticalPath
		}
		return na.ExecutionTime < nb.ExecutionTime
	}

	place := func(nodeID string) error {
		node, _ := annotated.Graph.Node(nodeID)

		var workerID string
		var start, end time.Duration
		if node.CriticalPath {
			ready := dataReady(annotated, placed, nodeID, cpw.ID)
			start, end = pool.EFT(cpw.ID, ready, node.ExecutionTime)
			workerID = cpw.ID
		} else {
			workerID, start, end = bestEFTWithCPGuard(pool, annotated, placed, nodeID, node.ExecutionTime, cpw.ID)
		}

		pool.Commit(workerID, nodeID, start, end)
		task := models.ScheduledTask{NodeID: nodeID, WorkerID: workerID, Start: start, End: end}
		placed[nodeID] = task
		schedule = append(schedule, task)
		return nil
	}

	if err := dispatch(annotated, priority, place); err != nil {
		return nil, err
	}
	return schedule, nil
}

// bestEFTWithCPGuard behaves like bestEFT but excludes the CP worker as a
// candidate whenever placing the task there would finish after the
// earliest-start of some still-unscheduled CP node (spec §4.3.2). When
// every worker is guarded out this way, it triggers CP-First dynamic
// worker creation (spec §4.3, §9) rather than perturbing CP timing by
// falling back to the CP worker directly; EnsureDynamicWorker itself
// degrades to that perturbation once its cap is exhausted.
func bestEFTWithCPGuard(pool *WorkerPool, annotated *dag.AnnotatedDAG, placed map[string]models.ScheduledTask, nodeID string, exec time.Duration, cpWorkerID string) (workerID string, start, end time.Duration) {
	var bestEnd time.Duration = -1
	for _, id := range pool.IDs() {
		ready := dataReady(annotated, placed, nodeID, id)
		s, e := pool.EFT(id, ready, exec)

		if id == cpWorkerID && wouldDelayPendingCP(annotated, placed, e) {
			continue
		}
		if bestEnd < 0 || e < bestEnd {
			workerID, start, end, bestEnd = id, s, e, e
		}
	}
	if workerID == "" {
		workerID = pool.EnsureDynamicWorker("cp-guard")
		ready := dataReady(annotated, placed, nodeID, workerID)
		start, end = pool.EFT(workerID, ready, exec)
	}
	return workerID, start, end
}

// wouldDelayPendingCP reports whether finishing at candidateEnd on the CP
// worker would push any not-yet-placed CP node past its CPM-predicted
// earliest start.
func wouldDelayPendingCP(annotated *dag.AnnotatedDAG, placed map[string]models.ScheduledTask, candidateEnd time.Duration) bool {
	if annotated.CPM == nil {
		return false
	}
	for _, id := range annotated.CPM.CriticalPath {
		if _, done := placed[id]; done {
			continue
		}
		if candidateEnd > annotated.CPM.EarliestStart[id] {
			return true
		}
	}
	return false
}

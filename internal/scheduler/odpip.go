package scheduler

import (
	"context"
	"fmt"

	"github.com/katanaflow/heftsim/internal/dag"
	"github.com/katanaflow/heftsim/internal/solver"
	"github.com/katanaflow/heftsim/pkg/models"
)

// ODPIP drives scheduling from an externally-computed coalition partition
// (spec.md §4.3.6). Unlike the other variants it does not search for a
// placement: every worker assignment is decided up front from the
// partition, and each task is appended to its assigned worker's slot table
// in dependency order.
type ODPIP struct {
	partition solver.Partition
}

// NewODPIP builds an ODP-IP driver over a partition already translated by
// solver.Translate.
func NewODPIP(partition solver.Partition) *ODPIP {
	return &ODPIP{partition: partition}
}

func (o *ODPIP) Name() models.Algorithm { return models.AlgorithmODPIP }

// Schedule assigns CP tasks to the CP worker, each coalition block to its
// own dedicated worker, and any remaining non-CP task (not covered by the
// partition) to an additional worker created on demand, then places every
// task append-only in dependency order.
func (o *ODPIP) Schedule(ctx context.Context, annotated *dag.AnnotatedDAG, workers []*models.Worker) ([]models.ScheduledTask, error) {
	pool := NewWorkerPool(workers, len(o.partition)+annotated.Graph.NodeCount())
	cpw, _ := pool.CPWorker() // fallback to first worker is acceptable per spec §7

	assignment := make(map[string]string, annotated.Graph.NodeCount())
	for _, id := range annotated.Graph.NodeIDs() {
		if annotated.CPM.OnCriticalPath[id] {
			assignment[id] = cpw.ID
		}
	}
	for blockIdx, block := range o.partition {
		workerID := pool.EnsureDynamicWorker(fmt.Sprintf("coalition-%d", blockIdx))
		for _, id := range block {
			if _, placed := assignment[id]; !placed {
				assignment[id] = workerID
			}
		}
	}
	for _, id := range annotated.Graph.NodeIDs() {
		if _, ok := assignment[id]; !ok {
			assignment[id] = pool.EnsureDynamicWorker("overflow")
		}
	}

	order, err := annotated.Graph.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProgress, err)
	}

	placed := make(map[string]models.ScheduledTask, len(order))
	schedule := make([]models.ScheduledTask, 0, len(order))
	for _, nodeID := range order {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		node, _ := annotated.Graph.Node(nodeID)
		workerID := assignment[nodeID]
		ready := dataReady(annotated, placed, nodeID, workerID)
		start := ready
		if next := pool.slots.NextFree(workerID); next > start {
			start = next
		}
		end := start + node.ExecutionTime

		pool.Commit(workerID, nodeID, start, end)
		task := models.ScheduledTask{NodeID: nodeID, WorkerID: workerID, Start: start, End: end}
		placed[nodeID] = task
		schedule = append(schedule, task)
	}
	return schedule, nil
}

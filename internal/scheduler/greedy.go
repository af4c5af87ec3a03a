package scheduler

import (
	"context"
	"time"

	"github.com/katanaflow/heftsim/internal/dag"
	"github.com/katanaflow/heftsim/pkg/models"
)

// Greedy is the baseline scheduler of spec.md §4.3.1: ready tasks are
// dispatched shortest-execution-first, each placed on whichever worker
// gives the minimum EFT via insertion search.
type Greedy struct{}

// NewGreedy returns the baseline Greedy scheduler.
func NewGreedy() *Greedy { return &Greedy{} }

func (Greedy) Name() models.Algorithm { return models.AlgorithmGreedy }

func (Greedy) Schedule(ctx context.Context, annotated *dag.AnnotatedDAG, workers []*models.Worker) ([]models.ScheduledTask, error) {
	pool := NewWorkerPool(workers, 0)
	placed := make(map[string]models.ScheduledTask, annotated.Graph.NodeCount())
	var schedule []models.ScheduledTask

	priority := byValue(func(nodeID string) float64 {
		n, _ := annotated.Graph.Node(nodeID)
		return float64(n.ExecutionTime)
	})

	place := func(nodeID string) error {
		node, _ := annotated.Graph.Node(nodeID)
		workerID, start, end := bestEFT(pool, annotated, placed, nodeID, node.ExecutionTime)
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

// bestEFT tries every worker in pool.IDs() order and returns the one
// yielding the minimum EFT, ties broken by worker-iteration order (spec
// §9 Determinism).
func bestEFT(pool *WorkerPool, annotated *dag.AnnotatedDAG, placed map[string]models.ScheduledTask, nodeID string, exec time.Duration) (workerID string, start, end time.Duration) {
	var bestEnd time.Duration = -1
	for _, id := range pool.IDs() {
		ready := dataReady(annotated, placed, nodeID, id)
		s, e := pool.EFT(id, ready, exec)
		if bestEnd < 0 || e < bestEnd {
			workerID, start, end, bestEnd = id, s, e, e
		}
	}
	return workerID, start, end
}

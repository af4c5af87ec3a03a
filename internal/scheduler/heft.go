package scheduler

import (
	"context"

	"github.com/katanaflow/heftsim/internal/dag"
	"github.com/katanaflow/heftsim/internal/rank"
	"github.com/katanaflow/heftsim/pkg/models"
)

// HEFT is spec.md §4.3.3: ready tasks are dispatched by descending
// upward rank, each placed on the worker with minimum EFT.
type HEFT struct{}

// NewHEFT returns the HEFT scheduler.
func NewHEFT() *HEFT { return &HEFT{} }

func (HEFT) Name() models.Algorithm { return models.AlgorithmHEFT }

func (HEFT) Schedule(ctx context.Context, annotated *dag.AnnotatedDAG, workers []*models.Worker) ([]models.ScheduledTask, error) {
	ranks := rank.Upward(annotated.Graph)
	pool := NewWorkerPool(workers, 0)
	placed := make(map[string]models.ScheduledTask, annotated.Graph.NodeCount())
	var schedule []models.ScheduledTask

	priority := byValue(func(nodeID string) float64 {
		return -float64(ranks[nodeID]) // descending rank -> ascending negated rank
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

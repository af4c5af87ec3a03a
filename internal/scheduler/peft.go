package scheduler

import (
	"context"
	"time"

	"github.com/katanaflow/heftsim/internal/dag"
	"github.com/katanaflow/heftsim/internal/rank"
	"github.com/katanaflow/heftsim/pkg/models"
)

// PEFT is spec.md §4.3.5: ready tasks are dispatched by descending mean
// Optimistic Cost Table value; placement picks the worker minimizing
// EFT(n,p) + OCT(n,p), ties broken by worker-iteration order.
type PEFT struct{}

// NewPEFT returns the PEFT scheduler.
func NewPEFT() *PEFT { return &PEFT{} }

func (PEFT) Name() models.Algorithm { return models.AlgorithmPEFT }

func (PEFT) Schedule(ctx context.Context, annotated *dag.AnnotatedDAG, workers []*models.Worker) ([]models.ScheduledTask, error) {
	// rank.Compute indexes OCT rows by processor position 0..workerCount-1;
	// WorkerPool preserves the same positional order via AddWorker, so
	// oct[id][i] lines up with pool.IDs()[i].
	oct, err := rank.Compute(annotated.Graph, len(workers))
	if err != nil {
		return nil, err
	}

	pool := NewWorkerPool(workers, 0)
	placed := make(map[string]models.ScheduledTask, annotated.Graph.NodeCount())
	var schedule []models.ScheduledTask

	priority := byValue(func(nodeID string) float64 {
		return -float64(oct.Mean(nodeID))
	})

	place := func(nodeID string) error {
		node, _ := annotated.Graph.Node(nodeID)
		row := oct[nodeID]

		var bestWorker string
		var bestStart, bestEnd time.Duration
		var bestScore time.Duration = -1

		for i, id := range pool.IDs() {
			ready := dataReady(annotated, placed, nodeID, id)
			start, end := pool.EFT(id, ready, node.ExecutionTime)

			var octVal time.Duration
			if i < len(row) {
				octVal = row[i]
			}
			score := end + octVal
			if bestScore < 0 || score < bestScore {
				bestWorker, bestStart, bestEnd, bestScore = id, start, end, score
			}
		}

		pool.Commit(bestWorker, nodeID, bestStart, bestEnd)
		task := models.ScheduledTask{NodeID: nodeID, WorkerID: bestWorker, Start: bestStart, End: bestEnd}
		placed[nodeID] = task
		schedule = append(schedule, task)
		return nil
	}

	if err := dispatch(annotated, priority, place); err != nil {
		return nil, err
	}
	return schedule, nil
}

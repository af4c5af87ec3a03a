package scheduler

import (
	"context"
	"time"

	"github.com/katanaflow/heftsim/internal/dag"
	"github.com/katanaflow/heftsim/internal/rank"
	"github.com/katanaflow/heftsim/pkg/models"
)

// CPHEFT is spec.md §4.3.4: a two-tier priority — CP tasks first (by
// ascending CPM earliest start, ties by descending rank), then non-CP
// tasks by descending upward rank. CP tasks are pinned to the CP worker;
// non-CP tasks place freely by EFT.
type CPHEFT struct{}

// NewCPHEFT returns the CP-HEFT scheduler.
func NewCPHEFT() *CPHEFT { return &CPHEFT{} }

func (CPHEFT) Name() models.Algorithm { return models.AlgorithmCPHEFT }

func (CPHEFT) Schedule(ctx context.Context, annotated *dag.AnnotatedDAG, workers []*models.Worker) ([]models.ScheduledTask, error) {
	ranks := rank.Upward(annotated.Graph)
	// Same CP-First dynamic worker cap as CP-Greedy (spec §4.3, §9).
	pool := NewWorkerPool(workers, annotated.Graph.NodeCount())
	placed := make(map[string]models.ScheduledTask, annotated.Graph.NodeCount())
	var schedule []models.ScheduledTask

	cpw, _ := pool.CPWorker()

	// Two-tier comparator (spec §4.3.4): CP tasks always precede non-CP
	// tasks; within the CP tier, ascending CPM earliest_start, ties broken
	// by descending rank; within the non-CP tier, descending rank.
	priority := func(a, b string) bool {
		na, _ := annotated.Graph.Node(a)
		nb, _ := annotated.Graph.Node(b)
		if na.CriticalPath != nb.CriticalPath {
			return na.CriticalPath
		}
		if na.CriticalPath && annotated.CPM != nil {
			esa, esb := annotated.CPM.EarliestStart[a], annotated.CPM.EarliestStart[b]
			if esa != esb {
				return esa < esb
			}
			return ranks[a] > ranks[b]
		}
		return ranks[a] > ranks[b]
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
			// Reuse CP-Greedy's delay guard: a non-CP task may not occupy
			// the CP worker if doing so would push a still-unscheduled CP
			// task past its CPM-predicted earliest start (spec §4.3.2,
			// applied here for the same reason — without it, a non-CP task
			// can win the CP worker's lower transfer cost and strand the
			// next CP task behind it).
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

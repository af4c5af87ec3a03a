package scheduler

import (
	"fmt"
	"time"

	"github.com/katanaflow/heftsim/internal/rank"
	"github.com/katanaflow/heftsim/pkg/models"
)

// WorkerPool owns the SlotTable and CumulativeTime bookkeeping shared by
// every scheduler variant. A variant places a task by choosing a worker,
// asking the pool for that worker's EFT, then committing via Commit.
type WorkerPool struct {
	workers map[string]*models.Worker
	order   []string
	slots   *rank.SlotTable

	// maxDynamicWorkers caps CP-First worker creation (spec.md §4.3.6,
	// §9 Determinism: "capped, never silently allocates past it"). Zero
	// means no dynamic creation is permitted.
	maxDynamicWorkers int
	dynamicCreated    int
	nextDynamicID     int
}

// NewWorkerPool wraps a fixed worker slice. maxDynamicWorkers bounds how
// many additional workers CP-First scheduling may create beyond this set.
func NewWorkerPool(workers []*models.Worker, maxDynamicWorkers int) *WorkerPool {
	p := &WorkerPool{
		workers:           make(map[string]*models.Worker, len(workers)),
		slots:             rank.NewSlotTable(),
		maxDynamicWorkers: maxDynamicWorkers,
	}
	for _, w := range workers {
		p.workers[w.ID] = w
		p.order = append(p.order, w.ID)
		p.slots.AddWorker(w.ID)
	}
	return p
}

// IDs returns worker IDs in deterministic (addition) order.
func (p *WorkerPool) IDs() []string {
	return p.slots.WorkerIDs()
}

// Worker returns the worker record for id.
func (p *WorkerPool) Worker(id string) *models.Worker {
	return p.workers[id]
}

// EFT computes the earliest start/finish of a task ready at dataReady
// with duration exec on workerID, via the shared insertion search.
func (p *WorkerPool) EFT(workerID string, dataReady, exec time.Duration) (start, end time.Duration) {
	return p.slots.EarliestFinish(workerID, dataReady, exec)
}

// Commit places taskID on workerID at [start, end) and advances the
// worker's cumulative time bookkeeping.
func (p *WorkerPool) Commit(workerID, taskID string, start, end time.Duration) {
	p.slots.Place(workerID, taskID, start, end-start)
	if w := p.workers[workerID]; w != nil && end > w.CumulativeTime {
		w.CumulativeTime = end
	}
}

// CPWorker returns the first worker flagged CriticalPathWorker, falling
// back to the first worker in pool order with ErrNoCPWorker if none is
// flagged (spec §7: the caller logs the fallback and proceeds).
func (p *WorkerPool) CPWorker() (*models.Worker, error) {
	workers := make([]*models.Worker, 0, len(p.order))
	for _, id := range p.order {
		workers = append(workers, p.workers[id])
	}
	return cpWorker(workers)
}

// EnsureDynamicWorker creates a new worker for CP-First scheduling if the
// dynamic cap has not been reached, returning the existing/created
// worker's ID. When the cap is reached it returns the least-loaded
// existing worker instead (CP-timing perturbation fallback, spec §4.3.6).
func (p *WorkerPool) EnsureDynamicWorker(namePrefix string) string {
	if p.dynamicCreated < p.maxDynamicWorkers {
		p.nextDynamicID++
		id := fmt.Sprintf("%s-dyn-%d", namePrefix, p.nextDynamicID)
		w := &models.Worker{ID: id}
		p.workers[id] = w
		p.order = append(p.order, id)
		p.slots.AddWorker(id)
		p.dynamicCreated++
		return id
	}
	return p.leastLoaded()
}

func (p *WorkerPool) leastLoaded() string {
	var best string
	var bestTime time.Duration = -1
	for _, id := range p.order {
		next := p.slots.NextFree(id)
		if bestTime < 0 || next < bestTime {
			bestTime = next
			best = id
		}
	}
	return best
}

package rank

import (
	"time"

	"github.com/katanaflow/heftsim/pkg/models"
)

// SlotTable tracks, per worker, the committed processor slots in
// start-time order. It implements the insertion-based slot search of
// spec.md §4.2 step 2: a task is placed into the earliest gap it fits in,
// not merely appended to the end of the worker's schedule.
type SlotTable struct {
	order    []string // worker iteration order, fixed at AddWorker time (spec.md §9 determinism)
	byWorker map[string][]models.ProcessorSlot
}

// NewSlotTable creates an empty SlotTable.
func NewSlotTable() *SlotTable {
	return &SlotTable{byWorker: make(map[string][]models.ProcessorSlot)}
}

// AddWorker registers a worker with an empty slot list, fixing its
// position in WorkerIDs iteration order.
func (t *SlotTable) AddWorker(workerID string) {
	if _, exists := t.byWorker[workerID]; exists {
		return
	}
	t.order = append(t.order, workerID)
	t.byWorker[workerID] = nil
}

// WorkerIDs returns worker IDs in the deterministic order they were
// added, used to break EFT/OCT ties by first-encountered worker.
func (t *SlotTable) WorkerIDs() []string {
	return t.order
}

// Slots returns the committed slots on workerID, in start-time order.
func (t *SlotTable) Slots(workerID string) []models.ProcessorSlot {
	return t.byWorker[workerID]
}

// EarliestFinish computes the start/end of a task ready at dataReady with
// duration exec on workerID, via the three-way insertion search of
// spec.md §4.2 step 2:
//
//	(a) before the first slot, if it fits;
//	(b) in a gap between two adjacent slots, if it fits;
//	(c) after the last slot, otherwise.
func (t *SlotTable) EarliestFinish(workerID string, dataReady, exec time.Duration) (start, eft time.Duration) {
	slots := t.byWorker[workerID]

	if len(slots) == 0 {
		return dataReady, dataReady + exec
	}

	if dataReady+exec <= slots[0].Start {
		return dataReady, dataReady + exec
	}

	for i := 0; i < len(slots)-1; i++ {
		gapStart := slots[i].End
		if dataReady > gapStart {
			gapStart = dataReady
		}
		gapEnd := slots[i+1].Start
		if gapEnd-gapStart >= exec {
			return gapStart, gapStart + exec
		}
	}

	last := slots[len(slots)-1].End
	if dataReady > last {
		last = dataReady
	}
	return last, last + exec
}

// Place commits a slot on workerID at [start, start+exec), keeping the
// worker's slot list in start-time order.
func (t *SlotTable) Place(workerID, taskID string, start, exec time.Duration) {
	t.AddWorker(workerID)
	slot := models.ProcessorSlot{Start: start, End: start + exec, TaskID: taskID}

	slots := t.byWorker[workerID]
	idx := len(slots)
	for i, s := range slots {
		if start < s.Start {
			idx = i
			break
		}
	}
	slots = append(slots, models.ProcessorSlot{})
	copy(slots[idx+1:], slots[idx:])
	slots[idx] = slot
	t.byWorker[workerID] = slots
}

// Append places a slot at the end of workerID's schedule with no
// insertion search — used by the append-only ODP-IP driver (spec.md
// §4.3.6).
func (t *SlotTable) Append(workerID, taskID string, start, exec time.Duration) {
	t.Place(workerID, taskID, start, exec)
}

// NextFree returns the end time of the last committed slot on workerID,
// or 0 if the worker has none.
func (t *SlotTable) NextFree(workerID string) time.Duration {
	slots := t.byWorker[workerID]
	if len(slots) == 0 {
		return 0
	}
	return slots[len(slots)-1].End
}

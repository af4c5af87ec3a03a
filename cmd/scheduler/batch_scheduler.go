package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// BatchRunFunc runs one configured batch to completion. Errors are
// logged by the caller registered against the cron entry; they never
// stop the scheduler itself.
type BatchRunFunc func(batchName string, firedAt time.Time) error

// BatchScheduler manages cron-based recurring Monte-Carlo batch runs —
// the direct analogue of the teacher's CronScheduler, generalized from
// "create a DAG run" to "run a configured simulation batch" (spec.md has
// no notion of a persisted DAG run; a batch run is the unit that recurs).
type BatchScheduler struct {
	cron     *cron.Cron
	location *time.Location
	runner   BatchRunFunc
	entries  map[string]cron.EntryID // batch name -> entryID
	mu       sync.RWMutex
}

// NewBatchScheduler creates a new batch cron scheduler.
func NewBatchScheduler(location *time.Location, runner BatchRunFunc) *BatchScheduler {
	return &BatchScheduler{
		cron:     cron.New(cron.WithLocation(location), cron.WithSeconds()),
		location: location,
		runner:   runner,
		entries:  make(map[string]cron.EntryID),
	}
}

// Start starts the cron scheduler.
func (bs *BatchScheduler) Start() {
	bs.cron.Start()
}

// Stop stops the cron scheduler, waiting for in-flight jobs to finish.
func (bs *BatchScheduler) Stop() {
	ctx := bs.cron.Stop()
	<-ctx.Done()
}

// AddBatch registers a named batch against a cron expression.
func (bs *BatchScheduler) AddBatch(name, schedule string) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if _, exists := bs.entries[name]; exists {
		return fmt.Errorf("batch %s is already registered", name)
	}

	entryID, err := bs.cron.AddFunc(schedule, func() {
		firedAt := time.Now().In(bs.location)
		if err := bs.runner(name, firedAt); err != nil {
			fmt.Printf("batch %s run failed: %v\n", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for batch %s: %w", schedule, name, err)
	}

	bs.entries[name] = entryID
	return nil
}

// RemoveBatch unregisters a batch.
func (bs *BatchScheduler) RemoveBatch(name string) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if entryID, exists := bs.entries[name]; exists {
		bs.cron.Remove(entryID)
		delete(bs.entries, name)
	}
}

// ScheduledBatches lists every registered batch name.
func (bs *BatchScheduler) ScheduledBatches() []string {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	names := make([]string, 0, len(bs.entries))
	for name := range bs.entries {
		names = append(names, name)
	}
	return names
}

// NextExecution returns a batch's next scheduled fire time.
func (bs *BatchScheduler) NextExecution(name string) (*time.Time, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	entryID, exists := bs.entries[name]
	if !exists {
		return nil, fmt.Errorf("batch %s is not registered", name)
	}

	entry := bs.cron.Entry(entryID)
	if entry.ID == 0 {
		return nil, fmt.Errorf("entry not found for batch %s", name)
	}
	next := entry.Next
	return &next, nil
}

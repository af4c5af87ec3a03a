package batchqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/katanaflow/heftsim/internal/montecarlo"
	"github.com/katanaflow/heftsim/internal/scheduler"
	"github.com/katanaflow/heftsim/internal/solver"
	"github.com/katanaflow/heftsim/internal/storage"
	"github.com/katanaflow/heftsim/pkg/models"
)

// Config holds a Worker's runtime settings.
type Config struct {
	// Concurrency bounds the worker pool montecarlo.ParallelRunner uses
	// to run one batch's simulation steps.
	Concurrency int

	ShutdownTimeout time.Duration
}

// DefaultConfig mirrors the teacher's executor defaults.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:     5,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Worker pulls BatchMessages off BatchesPendingSubject, runs them to
// completion, persists the resulting SimulationRecords, and publishes a
// BatchResultMessage — the distributed counterpart to running a batch
// inline in the API server.
type Worker struct {
	id       string
	hostname string
	nc       *nats.Conn
	js       nats.JetStreamContext

	recordRepo   storage.SimulationRecordRepository
	solverClient *solver.Client
	config       *Config

	batchSub      *nats.Subscription
	activeBatches int
	mu            sync.RWMutex
	running       bool
	wg            sync.WaitGroup
}

// NewWorker connects to NATS and builds a Worker.
func NewWorker(natsURL string, recordRepo storage.SimulationRecordRepository, solverClient *solver.Client, config *Config) (*Worker, error) {
	if config == nil {
		config = DefaultConfig()
	}

	hostname, _ := os.Hostname()
	workerID := fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])

	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Worker{
		id:           workerID,
		hostname:     hostname,
		nc:           nc,
		js:           js,
		recordRepo:   recordRepo,
		solverClient: solverClient,
		config:       config,
	}, nil
}

// Start subscribes to the pending-batches subject and begins processing.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker already running")
	}
	w.running = true

	var err error
	w.batchSub, err = w.js.QueueSubscribe(
		BatchesPendingSubject,
		"batch-workers",
		w.handleBatch,
		nats.Durable("batch-workers"),
		nats.ManualAck(),
		nats.AckWait(30*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to batches: %w", err)
	}

	w.wg.Add(1)
	go w.sendHeartbeats(ctx)

	log.Printf("Worker %s started on %s", w.id, w.hostname)
	return nil
}

// Stop gracefully unsubscribes and waits for in-flight batches.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	log.Printf("Stopping worker %s...", w.id)

	if w.batchSub != nil {
		w.batchSub.Unsubscribe()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Worker stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		log.Println("Worker shutdown timeout reached")
	}

	w.nc.Close()
	log.Printf("Worker %s stopped", w.id)
	return nil
}

// handleBatch runs one queued batch to completion.
func (w *Worker) handleBatch(msg *nats.Msg) {
	var batchMsg BatchMessage
	if err := json.Unmarshal(msg.Data, &batchMsg); err != nil {
		log.Printf("Failed to unmarshal batch message: %v", err)
		msg.Nak()
		return
	}

	log.Printf("Worker %s received batch %s (algorithm: %s, n=%d)", w.id, batchMsg.BatchID, batchMsg.Algorithm, batchMsg.Simulations)

	w.mu.Lock()
	w.activeBatches++
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.activeBatches--
		w.mu.Unlock()
	}()

	start := time.Now()
	recordCount, err := w.runBatch(context.Background(), batchMsg)
	end := time.Now()

	result := &BatchResultMessage{
		BatchID:     batchMsg.BatchID,
		WorkerID:    w.id,
		Success:     err == nil,
		RecordCount: recordCount,
		StartTime:   start,
		EndTime:     end,
		Hostname:    w.hostname,
	}
	if err != nil {
		result.ErrorMessage = err.Error()
	}

	if pubErr := w.publishResult(result); pubErr != nil {
		log.Printf("Failed to publish result: %v", pubErr)
		msg.Nak()
		return
	}

	msg.Ack()
	log.Printf("Worker %s completed batch %s (success=%v, records=%d)", w.id, batchMsg.BatchID, err == nil, recordCount)
}

func (w *Worker) runBatch(ctx context.Context, batchMsg BatchMessage) (int, error) {
	algorithm := models.Algorithm(batchMsg.Algorithm)
	if !algorithm.Valid() {
		return 0, fmt.Errorf("unknown algorithm: %s", batchMsg.Algorithm)
	}

	workers := make([]*models.Worker, batchMsg.WorkerCount)
	for i := range workers {
		workers[i] = &models.Worker{ID: fmt.Sprintf("worker-%d", i), CriticalPathWorker: i == 0}
	}

	var sched scheduler.Scheduler
	if algorithm == models.AlgorithmODPIP {
		if w.solverClient == nil {
			return 0, fmt.Errorf("odp_ip requires a configured solver client")
		}
		partition, err := solver.ResolvePartition(ctx, w.solverClient, batchMsg.Topology, batchMsg.IncludeTransferInCPM)
		if err != nil {
			return 0, err
		}
		sched = scheduler.NewODPIP(partition)
	}

	cfg := montecarlo.BatchConfig{
		Template:             batchMsg.Topology,
		Workers:              workers,
		Algorithm:            algorithm,
		Scheduler:            sched,
		UseTransferTime:      batchMsg.UseTransferTime,
		IncludeTransferInCPM: batchMsg.IncludeTransferInCPM,
		N:                    batchMsg.Simulations,
		Seed:                 batchMsg.Seed,
	}

	concurrency := batchMsg.Concurrency
	if concurrency <= 0 {
		concurrency = w.config.Concurrency
	}
	runner := montecarlo.NewParallelRunner(concurrency)

	records, err := runner.Run(ctx, cfg)
	if err != nil {
		return 0, err
	}

	if err := w.recordRepo.CreateBatch(ctx, batchMsg.BatchID, batchMsg.TopologyID, records); err != nil {
		return 0, fmt.Errorf("persist batch: %w", err)
	}

	return len(records), nil
}

// publishResult publishes a batch result to NATS.
func (w *Worker) publishResult(result *BatchResultMessage) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if _, err := w.js.Publish(BatchesResultsSubject, data); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}
	return nil
}

// sendHeartbeats periodically publishes liveness info, mirroring the
// teacher's task-worker heartbeat cadence.
func (w *Worker) sendHeartbeats(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.RLock()
			if !w.running {
				w.mu.RUnlock()
				return
			}
			active := w.activeBatches
			w.mu.RUnlock()

			heartbeat := &WorkerHeartbeat{
				WorkerID:      w.id,
				Hostname:      w.hostname,
				ActiveBatches: active,
				Timestamp:     time.Now(),
			}

			data, err := json.Marshal(heartbeat)
			if err != nil {
				log.Printf("Failed to marshal heartbeat: %v", err)
				continue
			}
			if err := w.nc.Publish(WorkerHeartbeatSubject, data); err != nil {
				log.Printf("Failed to publish heartbeat: %v", err)
			}
		}
	}
}

// GetID returns the worker's ID.
func (w *Worker) GetID() string { return w.id }

// GetActiveBatches returns the number of batches currently running.
func (w *Worker) GetActiveBatches() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.activeBatches
}

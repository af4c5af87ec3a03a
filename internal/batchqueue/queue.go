// Package batchqueue distributes Monte-Carlo batch simulation jobs
// across worker processes over NATS JetStream, adapted from the
// teacher's task-execution queue (internal/executor's distributed
// worker) to this domain's unit of work: a whole BatchConfig run to
// completion rather than one task's bash/HTTP/Docker command.
package batchqueue

import (
	"time"

	"github.com/katanaflow/heftsim/pkg/models"
)

const (
	// BatchesPendingStream is the JetStream stream carrying queued batch
	// jobs.
	BatchesPendingStream = "BATCHES_PENDING"

	// BatchesResultsStream is the JetStream stream carrying completed
	// batch results.
	BatchesResultsStream = "BATCHES_RESULTS"

	// BatchesPendingSubject is the subject workers queue-subscribe to.
	BatchesPendingSubject = "batches.pending"

	// BatchesResultsSubject is the subject workers publish results to.
	BatchesResultsSubject = "batches.results"

	// WorkerHeartbeatSubject carries periodic worker liveness pings.
	WorkerHeartbeatSubject = "workers.heartbeat"
)

// BatchMessage is a self-contained batch job: the topology it samples
// from and the parameters of spec.md §4.4's BatchConfig, serialized
// whole so a worker needs no database round-trip to start running it.
type BatchMessage struct {
	BatchID              string                    `json:"batch_id"`
	TopologyID           string                    `json:"topology_id"`
	Topology             *models.WorkflowTopology  `json:"topology"`
	Algorithm            string                    `json:"algorithm"`
	WorkerCount          int                       `json:"worker_count"`
	Simulations          int                       `json:"simulations"`
	UseTransferTime      bool                      `json:"use_transfer_time"`
	IncludeTransferInCPM bool                      `json:"include_transfer_in_cpm"`
	Concurrency          int                       `json:"concurrency"`
	Seed                 int64                     `json:"seed"`
}

// BatchResultMessage reports a batch job's completion.
type BatchResultMessage struct {
	BatchID      string    `json:"batch_id"`
	WorkerID     string    `json:"worker_id"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RecordCount  int       `json:"record_count"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Hostname     string    `json:"hostname"`
}

// WorkerHeartbeat reports one worker's liveness and load.
type WorkerHeartbeat struct {
	WorkerID      string    `json:"worker_id"`
	Hostname      string    `json:"hostname"`
	ActiveBatches int       `json:"active_batches"`
	Timestamp     time.Time `json:"timestamp"`
}

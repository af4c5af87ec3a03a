package models

import "time"

// GammaParams is the (shape, scale) pair of a per-task or per-edge Gamma
// distribution used by the Monte-Carlo sampler. Both fields must be
// positive for a sample to be drawn; a zero GammaParams means "no
// distribution configured" and the sampler leaves the duration at its
// nominal value.
type GammaParams struct {
	Shape float64 `json:"shape" yaml:"shape"`
	Scale float64 `json:"scale" yaml:"scale"`
}

// Configured reports whether both Gamma parameters are set.
func (g GammaParams) Configured() bool {
	return g.Shape > 0 && g.Scale > 0
}

// Node is one task in a workflow topology. ExecutionTime is the nominal
// duration; it may be zero in a loaded template and is populated by the
// Monte-Carlo runner on an annotated copy before each scheduling pass.
// Level and CriticalPath are assigned by the CPM analyzer and, like
// ExecutionTime, never mutated on the shared template.
type Node struct {
	ID            string        `json:"id" yaml:"id"`
	Name          string        `json:"name" yaml:"name"`
	ExecutionTime time.Duration `json:"execution_time" yaml:"execution_time"`
	Level         int           `json:"level" yaml:"-"`
	CriticalPath  bool          `json:"critical_path" yaml:"-"`
	Gamma         GammaParams   `json:"gamma_distribution" yaml:"gamma_distribution"`
}

// Edge is a directed, weighted dependency from SourceID to TargetID. The
// transfer time is realized only when the endpoints land on different
// workers; it is non-negative and there is at most one edge per
// (source, target) pair.
type Edge struct {
	SourceID     string        `json:"source_id" yaml:"source_id"`
	TargetID     string        `json:"target_id" yaml:"target_id"`
	TransferTime time.Duration `json:"transfer_time" yaml:"transfer_time"`
	Gamma        GammaParams   `json:"gamma_distribution" yaml:"gamma_distribution"`
}

// WorkflowTopology is a complete task DAG: nodes plus their outgoing edges.
// Topology nodes are created once at load and never mutated by the core;
// all per-run state lives on an annotated copy (see internal/dag.AnnotatedDAG).
type WorkflowTopology struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Worker is a fixed-identity compute resource. Greedy, HEFT and PEFT
// never create new workers; CP-Greedy, CP-HEFT and the ODP-IP driver may,
// subject to a cap (see internal/scheduler.WorkerPool).
type Worker struct {
	ID                 string        `json:"id"`
	CumulativeTime     time.Duration `json:"cumulative_time"`
	CriticalPathWorker bool          `json:"critical_path_worker"`
}

// ProcessorSlot is a committed interval on a worker's schedule.
type ProcessorSlot struct {
	Start  time.Duration `json:"start"`
	End    time.Duration `json:"end"`
	TaskID string        `json:"task_id"`
}

// ScheduledTask is the output record of a scheduling pass. The invariant
// End - Start == exec(NodeID) must hold for every record a scheduler emits.
type ScheduledTask struct {
	NodeID   string        `json:"node_id"`
	WorkerID string        `json:"worker_id"`
	Start    time.Duration `json:"start_time"`
	End      time.Duration `json:"end_time"`
}

// CPMResult carries the per-node CPM annotations plus the canonical
// critical path produced by one analyzer run.
type CPMResult struct {
	EarliestStart  map[string]time.Duration `json:"earliest_start"`
	EarliestFinish map[string]time.Duration `json:"earliest_finish"`
	LatestStart    map[string]time.Duration `json:"latest_start"`
	LatestFinish   map[string]time.Duration `json:"latest_finish"`
	Slack          map[string]time.Duration `json:"slack"`
	OnCriticalPath map[string]bool          `json:"on_critical_path"`
	CriticalPath   []string                 `json:"critical_path"`
	TotalDuration  time.Duration            `json:"total_duration"`
}

// Algorithm names one of the scheduler variants.
type Algorithm string

const (
	AlgorithmGreedy   Algorithm = "greedy"
	AlgorithmCPGreedy Algorithm = "cp_greedy"
	AlgorithmHEFT     Algorithm = "heft"
	AlgorithmCPHEFT   Algorithm = "cp_heft"
	AlgorithmPEFT     Algorithm = "peft"
	AlgorithmODPIP    Algorithm = "odp_ip"
)

// Valid reports whether a is one of the recognized algorithm names.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmGreedy, AlgorithmCPGreedy, AlgorithmHEFT, AlgorithmCPHEFT, AlgorithmPEFT, AlgorithmODPIP:
		return true
	}
	return false
}

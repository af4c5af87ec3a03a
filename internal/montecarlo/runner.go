package montecarlo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/katanaflow/heftsim/internal/dag"
	"github.com/katanaflow/heftsim/internal/scheduler"
	"github.com/katanaflow/heftsim/pkg/models"
)

// BatchConfig parametrizes one Monte-Carlo batch (spec.md §4.4 Contract).
//
// Scheduler is optional. When nil, each runner resolves one via
// scheduler.New(Algorithm) — fine for the five greedy-family variants.
// models.AlgorithmODPIP needs a solver.Partition resolved ahead of time
// from an external solver call, so callers driving an ODP-IP batch build
// the scheduler themselves (scheduler.NewODPIP) and set it here.
type BatchConfig struct {
	Template              *models.WorkflowTopology
	Workers               []*models.Worker
	Algorithm             models.Algorithm
	Scheduler             scheduler.Scheduler
	UseTransferTime       bool
	IncludeTransferInCPM  bool
	N                     int
	Seed                  int64
}

func (cfg BatchConfig) resolveScheduler() (scheduler.Scheduler, error) {
	if cfg.Scheduler != nil {
		return cfg.Scheduler, nil
	}
	return scheduler.New(cfg.Algorithm)
}

// Runner produces N independent SimulationRecords for a BatchConfig.
type Runner interface {
	Run(ctx context.Context, cfg BatchConfig) ([]models.SimulationRecord, error)
}

// SequentialRunner runs every simulation step on the calling goroutine, in
// order. This is the reference implementation spec.md §5 requires to be
// semantically equivalent to ParallelRunner.
type SequentialRunner struct{}

func NewSequentialRunner() *SequentialRunner { return &SequentialRunner{} }

func (SequentialRunner) Run(ctx context.Context, cfg BatchConfig) ([]models.SimulationRecord, error) {
	if cfg.N <= 0 {
		return nil, nil
	}
	sched, err := cfg.resolveScheduler()
	if err != nil {
		return nil, err
	}

	records := make([]models.SimulationRecord, 0, cfg.N)
	sampler := NewSampler(cfg.Seed)
	for i := 0; i < cfg.N; i++ {
		select {
		case <-ctx.Done():
			return records, ctx.Err()
		default:
		}
		record, err := runOne(ctx, cfg, sched, sampler, i)
		if err != nil {
			return nil, fmt.Errorf("simulation %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// ParallelRunner fans simulation steps out across a worker pool. Each
// goroutine owns its own Sampler (seeded by batch seed + simulation index,
// a counter-derived substream per spec.md §5) and its own AnnotatedDAG
// copy, so there is no shared mutable state across simulations. Results
// are collected into an order-preserving sink indexed by simulation
// number. A cooperative cancel flag is checked between simulations;
// mid-simulation cancellation is not supported (spec.md §5).
type ParallelRunner struct {
	Concurrency int
}

func NewParallelRunner(concurrency int) *ParallelRunner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ParallelRunner{Concurrency: concurrency}
}

func (p ParallelRunner) Run(ctx context.Context, cfg BatchConfig) ([]models.SimulationRecord, error) {
	if cfg.N <= 0 {
		return nil, nil
	}
	sched, err := cfg.resolveScheduler()
	if err != nil {
		return nil, err
	}

	records := make([]models.SimulationRecord, cfg.N)
	errs := make([]error, cfg.N)
	var cancelled atomic.Bool

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if cancelled.Load() {
					errs[i] = ctx.Err()
					continue
				}
				select {
				case <-ctx.Done():
					cancelled.Store(true)
					errs[i] = ctx.Err()
					continue
				default:
				}
				sampler := NewSampler(cfg.Seed + int64(i))
				record, err := runOne(ctx, cfg, sched, sampler, i)
				if err != nil {
					errs[i] = err
					continue
				}
				records[i] = record
			}
		}()
	}
	for i := 0; i < cfg.N; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// runOne executes spec.md §4.4's "one simulation step": deep-copy, sample,
// CPM, theoretical runtime via CP-edge zeroing, restore original edges,
// schedule, and assemble the SimulationRecord.
func runOne(ctx context.Context, cfg BatchConfig, sched scheduler.Scheduler, sampler *Sampler, simNumber int) (models.SimulationRecord, error) {
	annotated := dag.NewAnnotatedDAG(cfg.Template)
	sampleDurations(annotated.Topology, sampler, cfg.UseTransferTime)
	annotated.Graph = dag.NewGraph(annotated.Topology)
	annotated.OriginalEdgeTransferTimes = edgeTransferSnapshot(annotated.Topology)

	if err := annotated.RunCPM(cfg.IncludeTransferInCPM); err != nil {
		return models.SimulationRecord{}, err
	}

	theoretical, err := annotated.TheoreticalRuntime()
	if err != nil {
		return models.SimulationRecord{}, err
	}
	if err := annotated.RestoreOriginalEdges(); err != nil {
		return models.SimulationRecord{}, err
	}

	workers := cloneWorkers(cfg.Workers)
	schedule, err := sched.Schedule(ctx, annotated, workers)
	if err != nil {
		return models.SimulationRecord{}, err
	}

	var actual time.Duration
	for _, task := range schedule {
		if task.End > actual {
			actual = task.End
		}
	}

	perNodeExec := make(map[string]time.Duration, len(annotated.Topology.Nodes))
	for _, n := range annotated.Topology.Nodes {
		perNodeExec[n.ID] = n.ExecutionTime
	}
	perEdgeTransfer := make(map[string]time.Duration, len(annotated.Topology.Edges))
	for _, e := range annotated.Topology.Edges {
		perEdgeTransfer[e.SourceID+"->"+e.TargetID] = e.TransferTime
	}
	cumulative := make(map[string]time.Duration, len(workers))
	for _, w := range workers {
		cumulative[w.ID] = w.CumulativeTime
	}

	return models.SimulationRecord{
		SimNumber:                  simNumber,
		Actual:                     actual,
		Theoretical:                theoretical,
		PerNodeExec:                perNodeExec,
		PerEdgeTransfer:            perEdgeTransfer,
		CPNodeIDs:                  append([]string(nil), annotated.CPM.CriticalPath...),
		WorkerCount:                len(workers),
		Algorithm:                  cfg.Algorithm,
		OriginalEdgeTransferTimes:  annotated.OriginalEdgeTransferTimes,
		FinalWorkerCumulativeTimes: cumulative,
		Schedule:                   schedule,
	}, nil
}

// sampleDurations draws exec(n) for every node and transfer(e) for every
// edge (zero if !useTransferTime), in place on topology (spec.md §4.4
// step 2).
func sampleDurations(topology *models.WorkflowTopology, sampler *Sampler, useTransferTime bool) {
	for i := range topology.Nodes {
		n := &topology.Nodes[i]
		if n.Gamma.Configured() {
			n.ExecutionTime = time.Duration(sampler.SampleDuration(n.Gamma))
		}
	}
	for i := range topology.Edges {
		e := &topology.Edges[i]
		if !useTransferTime {
			e.TransferTime = 0
			continue
		}
		if e.Gamma.Configured() {
			e.TransferTime = time.Duration(sampler.SampleDuration(e.Gamma))
		}
	}
}

func edgeTransferSnapshot(topology *models.WorkflowTopology) map[string]time.Duration {
	snap := make(map[string]time.Duration, len(topology.Edges))
	for _, e := range topology.Edges {
		snap[e.SourceID+"->"+e.TargetID] = e.TransferTime
	}
	return snap
}

func cloneWorkers(workers []*models.Worker) []*models.Worker {
	out := make([]*models.Worker, len(workers))
	for i, w := range workers {
		clone := *w
		clone.CumulativeTime = 0
		out[i] = &clone
	}
	return out
}

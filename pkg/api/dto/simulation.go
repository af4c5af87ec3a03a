package dto

import (
	"time"

	"github.com/katanaflow/heftsim/pkg/models"
)

// SimulateRequest represents the request to run a Monte-Carlo batch
// against a stored topology.
type SimulateRequest struct {
	Algorithm            string `json:"algorithm" validate:"required,oneof=greedy cp_greedy heft cp_heft peft odp_ip"`
	WorkerCount          int    `json:"worker_count" validate:"required,min=1"`
	Simulations          int    `json:"simulations" validate:"required,min=1,max=100000"`
	UseTransferTime      bool   `json:"use_transfer_time"`
	IncludeTransferInCPM bool   `json:"include_transfer_in_cpm"`
	Parallel             bool   `json:"parallel"`
	Concurrency          int    `json:"concurrency" validate:"omitempty,min=1,max=256"`
	Seed                 int64  `json:"seed"`
}

// ScheduledTaskDTO represents one task's placement in a simulation's schedule.
type ScheduledTaskDTO struct {
	NodeID   string        `json:"node_id"`
	WorkerID string        `json:"worker_id"`
	Start    time.Duration `json:"start"`
	End      time.Duration `json:"end"`
}

// SimulationRecordResponse represents one simulation step's outcome.
type SimulationRecordResponse struct {
	SimNumber   int                `json:"sim_number"`
	Actual      time.Duration      `json:"actual"`
	Theoretical time.Duration      `json:"theoretical"`
	Ratio       float64            `json:"ratio"`
	CPNodeIDs   []string           `json:"cp_node_ids"`
	WorkerCount int                `json:"worker_count"`
	Algorithm   string             `json:"algorithm"`
	Schedule    []ScheduledTaskDTO `json:"schedule"`
}

// HistogramDTO represents a ratio histogram over a batch of simulations.
type HistogramDTO struct {
	BinWidth float64 `json:"bin_width"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Counts   []int   `json:"counts"`
}

// CDFPointDTO is one point of the empirical CDF of the ratio R.
type CDFPointDTO struct {
	Value float64 `json:"value"`
	Rank  float64 `json:"rank"`
}

// BatchStatisticsResponse represents the aggregate statistics of a
// completed Monte-Carlo batch.
type BatchStatisticsResponse struct {
	Count                int             `json:"count"`
	Mean                 float64         `json:"mean"`
	Median               float64         `json:"median"`
	Min                  float64         `json:"min"`
	Max                  float64         `json:"max"`
	StdDev               float64         `json:"std_dev"`
	Percentiles          map[int]float64 `json:"percentiles"`
	Histogram            HistogramDTO    `json:"histogram"`
	CDF                  []CDFPointDTO   `json:"cdf"`
	TheoreticalMean      time.Duration   `json:"theoretical_mean"`
	TheoreticalPredicted time.Duration   `json:"theoretical_predicted,omitempty"`
}

// BatchResponse represents a completed batch: its aggregate statistics
// plus its individual simulation records.
type BatchResponse struct {
	BatchID    string                      `json:"batch_id"`
	TopologyID string                      `json:"topology_id"`
	Statistics BatchStatisticsResponse     `json:"statistics"`
	Records    []SimulationRecordResponse  `json:"records,omitempty"`
}

// ToScheduledTaskDTO converts a models.ScheduledTask to a ScheduledTaskDTO.
func ToScheduledTaskDTO(t models.ScheduledTask) ScheduledTaskDTO {
	return ScheduledTaskDTO{NodeID: t.NodeID, WorkerID: t.WorkerID, Start: t.Start, End: t.End}
}

// ToSimulationRecordResponse converts a models.SimulationRecord to a
// SimulationRecordResponse.
func ToSimulationRecordResponse(r models.SimulationRecord) SimulationRecordResponse {
	schedule := make([]ScheduledTaskDTO, len(r.Schedule))
	for i, t := range r.Schedule {
		schedule[i] = ToScheduledTaskDTO(t)
	}

	return SimulationRecordResponse{
		SimNumber:   r.SimNumber,
		Actual:      r.Actual,
		Theoretical: r.Theoretical,
		Ratio:       r.Ratio(),
		CPNodeIDs:   r.CPNodeIDs,
		WorkerCount: r.WorkerCount,
		Algorithm:   string(r.Algorithm),
		Schedule:    schedule,
	}
}

// ToBatchStatisticsResponse converts a models.BatchStatistics to a
// BatchStatisticsResponse.
func ToBatchStatisticsResponse(s models.BatchStatistics) BatchStatisticsResponse {
	cdf := make([]CDFPointDTO, len(s.CDF))
	for i, p := range s.CDF {
		cdf[i] = CDFPointDTO{Value: p.Value, Rank: p.Rank}
	}

	return BatchStatisticsResponse{
		Count:       s.Count,
		Mean:        s.Mean,
		Median:      s.Median,
		Min:         s.Min,
		Max:         s.Max,
		StdDev:      s.StdDev,
		Percentiles: s.Percentiles,
		Histogram: HistogramDTO{
			BinWidth: s.Histogram.BinWidth,
			Min:      s.Histogram.Min,
			Max:      s.Histogram.Max,
			Counts:   s.Histogram.Counts,
		},
		CDF:                  cdf,
		TheoreticalMean:      s.TheoreticalMean,
		TheoreticalPredicted: s.TheoreticalPredicted,
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ScheduledBatchConfig describes one recurring Monte-Carlo batch: which
// stored topology to resample, under which algorithm/worker count, and
// how often (a standard robfig/cron expression, seconds field included
// since BatchScheduler is built with cron.WithSeconds()).
type ScheduledBatchConfig struct {
	Name                 string `yaml:"name"`
	TopologyID           string `yaml:"topology_id"`
	Cron                 string `yaml:"cron"`
	Algorithm            string `yaml:"algorithm"`
	WorkerCount          int    `yaml:"worker_count"`
	Simulations          int    `yaml:"simulations"`
	UseTransferTime      bool   `yaml:"use_transfer_time"`
	IncludeTransferInCPM bool   `yaml:"include_transfer_in_cpm"`
	Parallel             bool   `yaml:"parallel"`
	Concurrency          int    `yaml:"concurrency"`
}

// loadScheduleConfig reads a YAML file of scheduled batches. A missing
// file is not an error — the scheduler simply starts with nothing
// registered, so it can run standalone against a freshly migrated
// database with no schedule file yet in place.
func loadScheduleConfig(path string) ([]ScheduledBatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read schedule config: %w", err)
	}

	var entries []ScheduledBatchConfig
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse schedule config: %w", err)
	}
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("schedule entry %d: name is required", i)
		}
		if e.TopologyID == "" {
			return nil, fmt.Errorf("schedule entry %s: topology_id is required", e.Name)
		}
		if e.Cron == "" {
			return nil, fmt.Errorf("schedule entry %s: cron is required", e.Name)
		}
	}
	return entries, nil
}

package dag

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/katanaflow/heftsim/pkg/models"
)

// Parser loads workflow topology definitions from YAML or JSON and
// validates them before handing back a models.WorkflowTopology.
type Parser struct {
	validator *Validator
}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{validator: NewValidator()}
}

// topologyFile is the on-disk shape of a workflow topology definition.
type topologyFile struct {
	ID    string     `json:"id" yaml:"id"`
	Name  string     `json:"name" yaml:"name"`
	Nodes []nodeFile `json:"nodes" yaml:"nodes"`
	Edges []edgeFile `json:"edges" yaml:"edges"`
}

type nodeFile struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	ExecutionTime string  `json:"execution_time,omitempty" yaml:"execution_time,omitempty"`
	GammaShape    float64 `json:"gamma_shape,omitempty" yaml:"gamma_shape,omitempty"`
	GammaScale    float64 `json:"gamma_scale,omitempty" yaml:"gamma_scale,omitempty"`
}

type edgeFile struct {
	SourceID     string  `json:"source_id" yaml:"source_id"`
	TargetID     string  `json:"target_id" yaml:"target_id"`
	TransferTime string  `json:"transfer_time,omitempty" yaml:"transfer_time,omitempty"`
	GammaShape   float64 `json:"gamma_shape,omitempty" yaml:"gamma_shape,omitempty"`
	GammaScale   float64 `json:"gamma_scale,omitempty" yaml:"gamma_scale,omitempty"`
}

// ParseYAMLFile loads and validates a topology definition from a YAML file.
func (p *Parser) ParseYAMLFile(filepath string) (*models.WorkflowTopology, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.ParseYAML(data)
}

// ParseYAML loads and validates a topology definition from YAML bytes.
func (p *Parser) ParseYAML(data []byte) (*models.WorkflowTopology, error) {
	var tf topologyFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return p.convert(&tf)
}

// ParseJSONFile loads and validates a topology definition from a JSON file.
func (p *Parser) ParseJSONFile(filepath string) (*models.WorkflowTopology, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.ParseJSON(data)
}

// ParseJSON loads and validates a topology definition from JSON bytes.
func (p *Parser) ParseJSON(data []byte) (*models.WorkflowTopology, error) {
	var tf topologyFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return p.convert(&tf)
}

func (p *Parser) convert(tf *topologyFile) (*models.WorkflowTopology, error) {
	nodes := make([]models.Node, 0, len(tf.Nodes))
	for _, nf := range tf.Nodes {
		var execTime time.Duration
		if nf.ExecutionTime != "" {
			d, err := time.ParseDuration(nf.ExecutionTime)
			if err != nil {
				return nil, fmt.Errorf("node %s: invalid execution_time: %w", nf.ID, err)
			}
			execTime = d
		}
		nodes = append(nodes, models.Node{
			ID:            nf.ID,
			Name:          nf.Name,
			ExecutionTime: execTime,
			Gamma:         models.GammaParams{Shape: nf.GammaShape, Scale: nf.GammaScale},
		})
	}

	edges := make([]models.Edge, 0, len(tf.Edges))
	for _, ef := range tf.Edges {
		var transferTime time.Duration
		if ef.TransferTime != "" {
			d, err := time.ParseDuration(ef.TransferTime)
			if err != nil {
				return nil, fmt.Errorf("edge %s->%s: invalid transfer_time: %w", ef.SourceID, ef.TargetID, err)
			}
			transferTime = d
		}
		edges = append(edges, models.Edge{
			SourceID:     ef.SourceID,
			TargetID:     ef.TargetID,
			TransferTime: transferTime,
			Gamma:        models.GammaParams{Shape: ef.GammaShape, Scale: ef.GammaScale},
		})
	}

	topology := &models.WorkflowTopology{
		ID:    tf.ID,
		Name:  tf.Name,
		Nodes: nodes,
		Edges: edges,
	}

	if err := p.validator.Validate(topology); err != nil {
		return nil, fmt.Errorf("topology validation failed: %w", err)
	}

	return topology, nil
}

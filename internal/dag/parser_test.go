package dag

import (
	"testing"
	"time"
)

const sampleYAML = `
id: wf-1
name: sample
nodes:
  - id: A
    name: Ingest
    execution_time: 2s
    gamma_shape: 9
    gamma_scale: 0.67
  - id: B
    name: Transform
    execution_time: 3s
edges:
  - source_id: A
    target_id: B
    transfer_time: 1s
`

func TestParseYAML_ValidTopology(t *testing.T) {
	topology, err := NewParser().ParseYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if topology.Name != "sample" {
		t.Errorf("Name = %q, want sample", topology.Name)
	}
	if len(topology.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(topology.Nodes))
	}
	if topology.Nodes[0].ExecutionTime != 2*time.Second {
		t.Errorf("Nodes[0].ExecutionTime = %v, want 2s", topology.Nodes[0].ExecutionTime)
	}
	if topology.Nodes[0].Gamma.Shape != 9 || topology.Nodes[0].Gamma.Scale != 0.67 {
		t.Errorf("Nodes[0].Gamma = %+v, want {9 0.67}", topology.Nodes[0].Gamma)
	}
	if len(topology.Edges) != 1 || topology.Edges[0].TransferTime != time.Second {
		t.Errorf("Edges = %+v, want one 1s edge", topology.Edges)
	}
}

func TestParseJSON_ValidTopology(t *testing.T) {
	jsonDoc := []byte(`{
		"id": "wf-2", "name": "sample-json",
		"nodes": [{"id":"A","execution_time":"1s"},{"id":"B","execution_time":"1s"}],
		"edges": [{"source_id":"A","target_id":"B","transfer_time":"500ms"}]
	}`)

	topology, err := NewParser().ParseJSON(jsonDoc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topology.Name != "sample-json" {
		t.Errorf("Name = %q, want sample-json", topology.Name)
	}
}

func TestParseYAML_InvalidTopologyRejected(t *testing.T) {
	_, err := NewParser().ParseYAML([]byte(`
name: broken
nodes:
  - id: A
edges:
  - source_id: A
    target_id: ghost
`))
	if err == nil {
		t.Fatal("expected validation error for dangling edge, got nil")
	}
}

func TestParseYAML_InvalidDuration(t *testing.T) {
	_, err := NewParser().ParseYAML([]byte(`
name: broken
nodes:
  - id: A
    execution_time: not-a-duration
`))
	if err == nil {
		t.Fatal("expected duration parse error, got nil")
	}
}

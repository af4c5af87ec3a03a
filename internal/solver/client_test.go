package solver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	return NewClient(Config{BaseURL: url, Timeout: 2 * time.Second})
}

func TestClient_Solve_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/solve" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req SolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SolveResponse{
			Value:     42,
			TimeMs:    1.5,
			Partition: [][]int{{1, 2}, {3}},
		})
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	resp, err := c.Solve(context.Background(), SolveRequest{NumOfAgents: 3, CoalitionValues: make([]float64, 8)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Value != 42 {
		t.Errorf("Value = %v, want 42", resp.Value)
	}
	if len(resp.Partition) != 2 {
		t.Errorf("Partition = %v, want 2 blocks", resp.Partition)
	}
}

func TestClient_Solve_RejectsMismatchedLength(t *testing.T) {
	c := testClient(t, "http://unused.invalid")
	_, err := c.Solve(context.Background(), SolveRequest{NumOfAgents: 3, CoalitionValues: []float64{1, 2}})
	if !errors.Is(err, ErrSolverFailure) {
		t.Fatalf("err = %v, want ErrSolverFailure", err)
	}
}

func TestClient_Solve_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errorResponse{Error: "internal", Details: "boom"})
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.Solve(context.Background(), SolveRequest{NumOfAgents: 1, CoalitionValues: make([]float64, 2)})
	if !errors.Is(err, ErrSolverFailure) {
		t.Fatalf("err = %v, want ErrSolverFailure", err)
	}
}

func TestClient_Health_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClient_Health_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	if err := c.Health(context.Background()); err == nil {
		t.Error("expected error for 503 response")
	}
}

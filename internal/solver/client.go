package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/katanaflow/heftsim/internal/circuitbreaker"
	"github.com/katanaflow/heftsim/internal/retry"
)

// ErrSolverFailure covers every external-solver failure mode of spec.md
// §7: non-2xx response, timeout, malformed JSON, or (after Translate) a
// partition not covering {1,...,N}.
var ErrSolverFailure = errors.New("solver: request failed")

// SolveRequest is the wire request of spec.md §6.
type SolveRequest struct {
	NumOfAgents     int       `json:"numOfAgents"`
	CoalitionValues []float64 `json:"coalitionValues"`
}

// SolveResponse is the wire response of spec.md §6 on 200.
type SolveResponse struct {
	Value     float64 `json:"value"`
	TimeMs    float64 `json:"timeMs"`
	Partition [][]int `json:"partition"`
}

// errorResponse is the wire error body on 400/500.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Config holds the solver bridge's connection settings, environment-
// variable driven like the rest of the ambient stack (spec.md §6
// "Port configuration ... via environment variable with a documented
// default").
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig reads SOLVER_HOST/SOLVER_PORT with documented defaults.
func DefaultConfig() Config {
	host := getEnv("SOLVER_HOST", "localhost")
	port := getEnv("SOLVER_PORT", "8090")
	return Config{
		BaseURL: fmt.Sprintf("http://%s:%s", host, port),
		Timeout: 30 * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Client calls the external ODP-IP coalition-structure solver, wrapped
// in retry (exponential backoff) and a circuit breaker so a down solver
// degrades to fast failures instead of hammering it (spec.md §7).
type Client struct {
	httpClient *http.Client
	baseURL    string
	retryer    *retry.Executor
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient builds a Client against cfg with the teacher's default retry
// and circuit-breaker policies.
func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		retryer:    retry.NewExecutor(retry.DefaultConfig()),
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig()),
	}
}

// Solve posts a coalition-value vector and returns the parsed response,
// retried with backoff and guarded by the circuit breaker.
func (c *Client) Solve(ctx context.Context, req SolveRequest) (*SolveResponse, error) {
	if len(req.CoalitionValues) != 1<<uint(req.NumOfAgents) {
		return nil, fmt.Errorf("%w: coalitionValues length %d != 2^%d", ErrSolverFailure, len(req.CoalitionValues), req.NumOfAgents)
	}

	var resp *SolveResponse
	err := c.breaker.Execute(ctx, func() error {
		return c.retryer.Execute(ctx, func() error {
			r, err := c.doSolve(ctx, req)
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) doSolve(ctx context.Context, req SolveRequest) (*SolveResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrSolverFailure, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/solve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSolverFailure, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSolverFailure, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrSolverFailure, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var errResp errorResponse
		_ = json.Unmarshal(raw, &errResp)
		return nil, fmt.Errorf("%w: status %d: %s (%s)", ErrSolverFailure, httpResp.StatusCode, errResp.Error, errResp.Details)
	}

	var solveResp SolveResponse
	if err := json.Unmarshal(raw, &solveResp); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrSolverFailure, err)
	}
	return &solveResp, nil
}

// Health calls GET /api/health and reports whether the solver is up.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("%w: build health request: %v", ErrSolverFailure, err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: health check: %v", ErrSolverFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned %s", ErrSolverFailure, strconv.Itoa(resp.StatusCode))
	}
	return nil
}

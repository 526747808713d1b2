package parallel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
	"github.com/custodia-labs/deepresearchpod/internal/logger"
)

// Ensure Client implements the provider interfaces.
var (
	_ driven.ResearchProvider = (*Client)(nil)
	_ driven.ResultFetcher    = (*Client)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL        = "https://api.parallel.ai"
	DefaultRequestTimeout = 30 * time.Second
	maxResponseBytes      = 16 << 20
)

// Config holds configuration for the Parallel client.
type Config struct {
	// APIKey is sent as the x-api-key header. Submissions fail without it.
	APIKey string

	// BaseURL is the API base URL (default: https://api.parallel.ai).
	BaseURL string

	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64

	// Timeout bounds each HTTP request (default: 30s).
	Timeout time.Duration

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// Client talks to the Parallel Task API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *RateLimiter
}

// createRunRequest is the POST /v1/tasks/runs request body.
type createRunRequest struct {
	Input     string   `json:"input"`
	Processor string   `json:"processor"`
	TaskSpec  taskSpec `json:"task_spec"`
}

type taskSpec struct {
	OutputSchema outputSchema `json:"output_schema"`
}

type outputSchema struct {
	Type string `json:"type"`
}

// NewClient creates a Parallel client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		limiter:    NewRateLimiter(cfg.RequestsPerSecond),
	}
}

// Submit creates a task run and returns its run id.
func (c *Client) Submit(ctx context.Context, query, processor string) (string, error) {
	if c.apiKey == "" {
		return "", &domain.SubmissionError{Message: "PARALLEL_API_KEY is required", Cause: domain.ErrProviderNotConfigured}
	}

	body := createRunRequest{
		Input:     query,
		Processor: processor,
		TaskSpec:  taskSpec{OutputSchema: outputSchema{Type: "text"}},
	}
	payload, err := c.do(ctx, http.MethodPost, "/v1/tasks/runs", body)
	if err != nil {
		return "", &domain.SubmissionError{Message: "create task run", Cause: err}
	}

	runID, _ := payload["run_id"].(string)
	if runID == "" {
		return "", &domain.SubmissionError{Message: "provider returned no job identifier"}
	}
	logger.Debug("parallel: created run %s (status %v)", runID, payload["status"])
	return runID, nil
}

// FetchStatus retrieves the run status. Once the run is complete the result
// output is merged into the returned payload.
func (c *Client) FetchStatus(ctx context.Context, runID string) (domain.RawPayload, error) {
	payload, err := c.do(ctx, http.MethodGet, runPath(runID), nil)
	if err != nil {
		return nil, err
	}
	status := domain.RawPayload(payload)
	if status.JobStatus() != domain.JobComplete {
		return status, nil
	}
	if _, ok := status.Output(); ok {
		return status, nil
	}

	result, err := c.FetchResult(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("fetch result of completed run: %w", err)
	}
	return merge(status, result), nil
}

// FetchResult retrieves the output of a run directly.
func (c *Client) FetchResult(ctx context.Context, runID string) (domain.RawPayload, error) {
	payload, err := c.do(ctx, http.MethodGet, runPath(runID)+"/result", nil)
	if err != nil {
		return nil, err
	}
	return domain.RawPayload(payload), nil
}

// merge folds a result document into a status payload. The result carries
// the run under "run" and the task output under "output".
func merge(status, result domain.RawPayload) domain.RawPayload {
	merged := make(domain.RawPayload, len(status)+2)
	if run, ok := result["run"].(map[string]any); ok {
		for k, v := range run {
			merged[k] = v
		}
	}
	for k, v := range status {
		merged[k] = v
	}
	if out, ok := result.Output(); ok {
		merged["output"] = out
	}
	return merged
}

func runPath(runID string) string {
	return "/v1/tasks/runs/" + url.PathEscape(runID)
}

// do sends a request and decodes a JSON object response.
func (c *Client) do(ctx context.Context, method, path string, body any) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("parallel: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("parallel: create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parallel: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("parallel: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.Backoff(parseRetryAfter(resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ProviderError{
			StatusCode: resp.StatusCode,
			Message:    errorText(raw),
			URL:        endpoint,
		}
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parallel: decode response: %w", err)
	}
	if out == nil {
		return nil, errors.New("parallel: empty response")
	}
	return out, nil
}

// errorText extracts a readable message from an error response body.
func errorText(raw []byte) string {
	var body struct {
		Error json.RawMessage `json:"error"`
		Detail any             `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil {
		var msg string
		if json.Unmarshal(body.Error, &msg) == nil && msg != "" {
			return msg
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
		if s, ok := body.Detail.(string); ok && s != "" {
			return s
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}

// Package pipeline is the HTTP client for the external multi-model execution
// engine. The engine's internals (decomposition, arbitration, synthesis) are
// opaque; this client only ships the roster and brings back the result.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/councilhq/council/pkg/models"
)

// Sentinel errors for pipeline failures.
var (
	ErrPipelineUnreachable = errors.New("pipeline unreachable")
	ErrPipelineError       = errors.New("pipeline execution error")
	ErrPipelineTimeout     = errors.New("pipeline timeout")
)

// HTTPClient implements models.Pipeline against the engine's HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new pipeline HTTP client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// wire types for the engine API. Credentials travel only on this call path;
// RegisteredModel itself never serializes its key.
type executeRequest struct {
	RequestID string         `json:"request_id"`
	Content   string         `json:"content"`
	Mode      string         `json:"mode"`
	Models    []executeModel `json:"models"`
}

type executeModel struct {
	ModelID   string `json:"model_id"`
	Provider  string `json:"provider"`
	ModelName string `json:"model_name"`
	APIKey    string `json:"api_key"`
}

type executeResponse struct {
	Answer     string                 `json:"answer"`
	Confidence float64                `json:"confidence"`
	TotalCost  float64                `json:"total_cost"`
	Subtasks   []models.SubtaskResult `json:"subtasks"`
}

func (c *HTTPClient) Execute(ctx context.Context, req models.PipelineRequest) (models.PipelineResult, error) {
	wire := executeRequest{
		RequestID: req.RequestID,
		Content:   req.Content,
		Mode:      req.Mode,
		Models:    make([]executeModel, 0, len(req.Roster)),
	}
	for _, m := range req.Roster {
		wire.Models = append(wire.Models, executeModel{
			ModelID:   m.ModelID,
			Provider:  m.Provider,
			ModelName: m.ModelName,
			APIKey:    m.Key,
		})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return models.PipelineResult{}, fmt.Errorf("encoding execute request: %w", err)
	}

	u := c.baseURL + "/api/v1/execute"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return models.PipelineResult{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return models.PipelineResult{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.PipelineResult{}, fmt.Errorf("%w: status %d", ErrPipelineError, resp.StatusCode)
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.PipelineResult{}, fmt.Errorf("decoding pipeline response: %w", err)
	}

	return models.PipelineResult{
		Answer:     out.Answer,
		Confidence: out.Confidence,
		TotalCost:  out.TotalCost,
		Subtasks:   out.Subtasks,
	}, nil
}

func (c *HTTPClient) Ready(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/ready", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrPipelineError, resp.StatusCode)
	}
	return nil
}

var _ models.Pipeline = (*HTTPClient)(nil)

// classifyError maps transport errors to sentinel errors.
func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrPipelineTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrPipelineTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrPipelineUnreachable, err)
}

package models

import "context"

// RegisteredModel is one roster slot: a catalog model bound to the credential
// that resolution produced for its provider.
type RegisteredModel struct {
	ModelID   string    `json:"model_id"`
	Provider  string    `json:"provider"`
	ModelName string    `json:"model_name"`
	KeySource KeySource `json:"key_source"`
	Key       string    `json:"-"`
}

// Roster is the set of models eligible for execution in one request.
type Roster []RegisteredModel

// PipelineRequest is the input handed to the execution engine.
type PipelineRequest struct {
	RequestID string
	Content   string
	Mode      string
	Roster    Roster
}

// SubtaskResult is one model's contribution to the final answer.
type SubtaskResult struct {
	ModelID    string  `json:"model_id"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Cost       float64 `json:"cost"`
}

// PipelineResult is the execution engine's output for one request.
type PipelineResult struct {
	Answer     string          `json:"answer"`
	Confidence float64         `json:"confidence"`
	TotalCost  float64         `json:"total_cost"`
	Subtasks   []SubtaskResult `json:"subtasks,omitempty"`
}

// Pipeline is the external multi-model execution engine. Its internals
// (decomposition, arbitration, synthesis) are opaque to this service.
// Never call the engine directly — always inject this interface.
type Pipeline interface {
	// Execute runs the request against the given roster and returns the
	// synthesized result.
	Execute(ctx context.Context, req PipelineRequest) (PipelineResult, error)
	// Ready checks whether the engine is reachable.
	Ready(ctx context.Context) error
}

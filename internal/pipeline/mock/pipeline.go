package mock

import (
	"context"
	"fmt"

	"github.com/councilhq/council/pkg/models"
)

// MockPipeline satisfies models.Pipeline for testing.
type MockPipeline struct {
	ExecuteFunc func(ctx context.Context, req models.PipelineRequest) (models.PipelineResult, error)
	ReadyFunc   func(ctx context.Context) error
}

func (m *MockPipeline) Execute(ctx context.Context, req models.PipelineRequest) (models.PipelineResult, error) {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, req)
	}
	return models.PipelineResult{}, nil
}

func (m *MockPipeline) Ready(ctx context.Context) error {
	if m.ReadyFunc != nil {
		return m.ReadyFunc(ctx)
	}
	return nil
}

// NewMockPipeline returns a MockPipeline that echoes a canned answer using
// every roster model.
func NewMockPipeline() *MockPipeline {
	return &MockPipeline{
		ExecuteFunc: func(_ context.Context, req models.PipelineRequest) (models.PipelineResult, error) {
			subtasks := make([]models.SubtaskResult, 0, len(req.Roster))
			for _, m := range req.Roster {
				subtasks = append(subtasks, models.SubtaskResult{
					ModelID:    m.ModelID,
					Text:       fmt.Sprintf("contribution from %s", m.ModelID),
					Confidence: 0.9,
					Cost:       0.001,
				})
			}
			return models.PipelineResult{
				Answer:     "mock council answer",
				Confidence: 0.9,
				TotalCost:  0.001 * float64(len(subtasks)),
				Subtasks:   subtasks,
			}, nil
		},
	}
}

var _ models.Pipeline = (*MockPipeline)(nil)

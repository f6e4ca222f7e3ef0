package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/councilhq/council/pkg/models"
)

// --- helpers ---

func engineServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

func sampleRequest() models.PipelineRequest {
	return models.PipelineRequest{
		RequestID: "11111111-2222-3333-4444-555555555555",
		Content:   "summarize the arguments on both sides",
		Mode:      models.ModeBalanced,
		Roster: models.Roster{
			{ModelID: "groq-llama3-70b", Provider: "groq", ModelName: "llama3-70b-8192",
				KeySource: models.SourceUser, Key: "gsk_user_key"},
			{ModelID: "openai-gpt-4o-mini", Provider: "openai", ModelName: "gpt-4o-mini",
				KeySource: models.SourceSystem, Key: "sk-system-key"},
		},
	}
}

// --- Execute tests ---

func TestExecute_ValidResponse(t *testing.T) {
	ts := engineServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/execute" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		var wire executeRequest
		if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		if wire.RequestID != "11111111-2222-3333-4444-555555555555" {
			t.Errorf("unexpected request_id: %s", wire.RequestID)
		}
		if len(wire.Models) != 2 {
			t.Fatalf("got %d models, want 2", len(wire.Models))
		}
		if wire.Models[0].APIKey != "gsk_user_key" {
			t.Errorf("model 0 api_key = %q, want the resolved key", wire.Models[0].APIKey)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(executeResponse{
			Answer:     "a synthesized answer",
			Confidence: 0.87,
			TotalCost:  0.0042,
			Subtasks: []models.SubtaskResult{
				{ModelID: "groq-llama3-70b", Text: "part one", Confidence: 0.9, Cost: 0.001},
			},
		})
	})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, 5*time.Second)
	result, err := c.Execute(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if result.Answer != "a synthesized answer" {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.Confidence != 0.87 {
		t.Errorf("confidence = %v", result.Confidence)
	}
	if len(result.Subtasks) != 1 {
		t.Errorf("got %d subtasks, want 1", len(result.Subtasks))
	}
}

func TestExecute_EngineError(t *testing.T) {
	ts := engineServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, 5*time.Second)
	_, err := c.Execute(context.Background(), sampleRequest())
	if !errors.Is(err, ErrPipelineError) {
		t.Fatalf("err = %v, want ErrPipelineError", err)
	}
}

func TestExecute_Unreachable(t *testing.T) {
	// Nothing listens here.
	c := NewHTTPClient("http://127.0.0.1:1", 2*time.Second)
	_, err := c.Execute(context.Background(), sampleRequest())
	if !errors.Is(err, ErrPipelineUnreachable) {
		t.Fatalf("err = %v, want ErrPipelineUnreachable", err)
	}
}

func TestExecute_Timeout(t *testing.T) {
	ts := engineServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Execute(ctx, sampleRequest())
	if !errors.Is(err, ErrPipelineTimeout) {
		t.Fatalf("err = %v, want ErrPipelineTimeout", err)
	}
}

func TestExecute_MalformedResponse(t *testing.T) {
	ts := engineServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{not json"))
	})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, 5*time.Second)
	_, err := c.Execute(context.Background(), sampleRequest())
	if err == nil {
		t.Fatal("expected decode error")
	}
}

// --- Ready tests ---

func TestReady_OK(t *testing.T) {
	ts := engineServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ready" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, 5*time.Second)
	if err := c.Ready(context.Background()); err != nil {
		t.Fatalf("Ready returned error: %v", err)
	}
}

func TestReady_NotReady(t *testing.T) {
	ts := engineServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer ts.Close()

	c := NewHTTPClient(ts.URL, 5*time.Second)
	if err := c.Ready(context.Background()); !errors.Is(err, ErrPipelineError) {
		t.Fatalf("err = %v, want ErrPipelineError", err)
	}
}

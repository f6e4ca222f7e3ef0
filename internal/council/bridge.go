// Package council owns the per-request orchestration: resolving provider
// credentials, building the model roster, handing execution to the external
// pipeline, and accounting for which key source served each model.
package council

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/councilhq/council/internal/cache"
	"github.com/councilhq/council/internal/keys"
	"github.com/councilhq/council/internal/provider"
	"github.com/councilhq/council/internal/store"
	"github.com/councilhq/council/pkg/models"
	"github.com/google/uuid"
)

const statusTTL = 30 * time.Minute

// Request is one incoming council request.
type Request struct {
	ID      uuid.UUID
	UserID  *uuid.UUID
	Content string
	Mode    string
}

// Metadata carries the usage accounting attached to every successful
// response. The field set is closed; metadata is never an open dictionary.
type Metadata struct {
	APIKeyUsageLog     []models.UsageEntry `json:"apiKeyUsageLog"`
	APIKeyUsageSummary models.UsageSummary `json:"apiKeyUsageSummary"`
}

// Response is the final result of a processed request.
type Response struct {
	RequestID  uuid.UUID `json:"request_id"`
	Answer     string    `json:"answer"`
	Confidence float64   `json:"confidence"`
	TotalCost  float64   `json:"total_cost"`
	Metadata   Metadata  `json:"metadata"`
}

// providersByMode selects which providers each execution mode draws on.
// Fast favors the low-latency vendors; best_quality uses the whole catalog.
var providersByMode = map[string][]string{
	models.ModeFast:     {"groq", "gemini"},
	models.ModeBalanced: {"groq", "gemini", "openai", "together"},
}

func providersFor(mode string) []string {
	if p, ok := providersByMode[mode]; ok {
		return p
	}
	return provider.Names()
}

// Bridge drives a request end to end:
// received -> keys_resolved -> roster_built -> executing -> usage_attached
// -> flushed -> done, with failed terminal from any state.
type Bridge struct {
	resolver *keys.Resolver
	ledger   *Ledger
	pipeline models.Pipeline
	store    store.Store
	cache    cache.Cache
	timeout  time.Duration
	now      func() time.Time
}

// NewBridge creates a new Bridge.
func NewBridge(resolver *keys.Resolver, ledger *Ledger, pipeline models.Pipeline, st store.Store, ca cache.Cache, timeout time.Duration) *Bridge {
	return &Bridge{
		resolver: resolver,
		ledger:   ledger,
		pipeline: pipeline,
		store:    st,
		cache:    ca,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Process runs one request through the full state machine. Pipeline errors
// pass through unchanged; ErrNoProvidersAvailable is the only
// resolution-level error a caller ever sees.
func (b *Bridge) Process(ctx context.Context, req Request) (*Response, error) {
	record := &models.CouncilRequest{
		ID:        req.ID,
		UserID:    req.UserID,
		Mode:      req.Mode,
		Status:    models.RequestStatusReceived,
		CreatedAt: b.now().UTC(),
		UpdatedAt: b.now().UTC(),
	}
	if err := b.store.CreateRequest(ctx, record); err != nil {
		// History is supporting state; the request itself can still run.
		slog.Warn("request record not persisted", "request_id", req.ID, "error", err)
	}
	_ = b.cache.SetRequestStatus(ctx, req.ID, models.RequestStatusReceived, statusTTL)

	required := providersFor(req.Mode)

	// received -> keys_resolved
	resolutions, err := b.resolver.Resolve(ctx, req.UserID, required)
	if errors.Is(err, keys.ErrKeyStoreUnavailable) {
		slog.Warn("key store unavailable, degrading to system-only keys",
			"request_id", req.ID, "error", err)
		resolutions = b.resolver.ResolveSystemOnly(required)
	} else if err != nil {
		b.fail(ctx, req.ID, err.Error())
		return nil, err
	}
	b.transition(ctx, req.ID, models.RequestStatusKeysResolved)

	// keys_resolved -> roster_built
	roster, entries, err := BuildRoster(resolutions, b.now)
	if err != nil {
		b.fail(ctx, req.ID, "no provider has a usable API key")
		return nil, err
	}
	b.transition(ctx, req.ID, models.RequestStatusRosterBuilt)

	// roster_built -> executing
	b.transition(ctx, req.ID, models.RequestStatusExecuting)

	execCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	result, err := b.pipeline.Execute(execCtx, models.PipelineRequest{
		RequestID: req.ID.String(),
		Content:   req.Content,
		Mode:      req.Mode,
		Roster:    roster,
	})
	if err != nil {
		// No usage flush for failed or cancelled executions: last_used_at
		// must not move for a request that produced nothing.
		b.fail(ctx, req.ID, err.Error())
		return nil, err
	}

	// executing -> usage_attached
	summary := Summarize(entries)
	b.transition(ctx, req.ID, models.RequestStatusUsageAttached, store.WithUsageSummary(summary))

	resp := &Response{
		RequestID:  req.ID,
		Answer:     result.Answer,
		Confidence: result.Confidence,
		TotalCost:  result.TotalCost,
		Metadata: Metadata{
			APIKeyUsageLog:     entries,
			APIKeyUsageSummary: summary,
		},
	}

	// usage_attached -> flushed -> done
	b.ledger.Flush(ctx, req.UserID, entries)
	b.transition(ctx, req.ID, models.RequestStatusFlushed)
	b.transition(ctx, req.ID, models.RequestStatusDone)

	return resp, nil
}

// transition records a state change in store and cache. Bookkeeping failures
// are logged and never interrupt the request.
func (b *Bridge) transition(ctx context.Context, id uuid.UUID, status string, opts ...store.RequestUpdateOption) {
	if err := b.store.UpdateRequestStatus(ctx, id, status, opts...); err != nil {
		slog.Warn("request status update failed",
			"request_id", id, "status", status, "error", err)
	}
	_ = b.cache.SetRequestStatus(ctx, id, status, statusTTL)
}

func (b *Bridge) fail(ctx context.Context, id uuid.UUID, msg string) {
	if err := b.store.UpdateRequestStatus(ctx, id, models.RequestStatusFailed,
		store.WithErrorMessage(msg)); err != nil {
		slog.Warn("request status update failed",
			"request_id", id, "status", models.RequestStatusFailed, "error", err)
	}
	_ = b.cache.SetRequestStatus(ctx, id, models.RequestStatusFailed, statusTTL)
}

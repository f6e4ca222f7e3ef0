package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	mw "github.com/councilhq/council/internal/api/middleware"
	"github.com/councilhq/council/internal/api/response"
	"github.com/councilhq/council/internal/council"
	"github.com/councilhq/council/internal/pipeline"
	"github.com/councilhq/council/internal/store"
	"github.com/councilhq/council/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Processor defines the interface the submit handler depends on.
type Processor interface {
	Process(ctx context.Context, req council.Request) (*council.Response, error)
}

// RequestStore is the slice of the store the read handlers depend on.
type RequestStore interface {
	GetRequest(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.CouncilRequest, error)
	ListRequests(ctx context.Context, filter store.RequestFilter) ([]*models.CouncilRequest, int, error)
}

// StatusCache reads live request status for in-flight requests.
type StatusCache interface {
	GetRequestStatus(ctx context.Context, requestID uuid.UUID) (string, bool, error)
}

var validModes = map[string]bool{
	models.ModeFast:        true,
	models.ModeBalanced:    true,
	models.ModeBestQuality: true,
}

// NewSubmitHandler returns an http.HandlerFunc for POST /api/v1/council/requests.
func NewSubmitHandler(proc Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req struct {
			Content string `json:"content"`
			Mode    string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.Content == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "content is required", nil)
			return
		}

		mode := req.Mode
		if mode == "" {
			mode = models.ModeBalanced
		}
		if !validModes[mode] {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"mode must be one of fast, balanced, best_quality", nil)
			return
		}

		result, err := proc.Process(r.Context(), council.Request{
			ID:      uuid.New(),
			UserID:  &userID,
			Content: req.Content,
			Mode:    mode,
		})
		if err != nil {
			switch {
			case errors.Is(err, council.ErrNoProvidersAvailable):
				response.Error(w, http.StatusUnprocessableEntity, "NO_PROVIDERS_AVAILABLE",
					"No provider has a usable API key; configure an API key for at least one provider", nil)
			case errors.Is(err, pipeline.ErrPipelineTimeout):
				response.Error(w, http.StatusGatewayTimeout, "PIPELINE_TIMEOUT",
					"The execution pipeline timed out", nil)
			case errors.Is(err, pipeline.ErrPipelineUnreachable),
				errors.Is(err, pipeline.ErrPipelineError):
				response.Error(w, http.StatusBadGateway, "PIPELINE_ERROR",
					"The execution pipeline failed", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"Failed to process request", nil)
			}
			return
		}

		response.JSON(w, result)
	}
}

// NewGetRequestHandler returns an http.HandlerFunc for
// GET /api/v1/council/requests/{requestID}. The cache may hold a fresher
// status than the store row for in-flight requests.
func NewGetRequestHandler(st RequestStore, ca StatusCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "requestID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "requestID must be a UUID", nil)
			return
		}

		record, err := st.GetRequest(r.Context(), id, userID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Request not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load request", nil)
			return
		}

		if status, ok, err := ca.GetRequestStatus(r.Context(), id); err == nil && ok {
			record.Status = status
		}

		response.JSON(w, record)
	}
}

// NewListRequestsHandler returns an http.HandlerFunc for
// GET /api/v1/council/requests.
func NewListRequestsHandler(st RequestStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		reqs, total, err := st.ListRequests(r.Context(), store.RequestFilter{
			UserID: userID,
			Status: r.URL.Query().Get("status"),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list requests", nil)
			return
		}

		if limit <= 0 {
			limit = 20
		}
		if page <= 0 {
			page = 1
		}
		response.Collection(w, reqs, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

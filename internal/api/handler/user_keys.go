package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	mw "github.com/councilhq/council/internal/api/middleware"
	"github.com/councilhq/council/internal/api/response"
	"github.com/councilhq/council/internal/keys"
	"github.com/councilhq/council/internal/store"
	"github.com/go-chi/chi/v5"
)

// NewSaveKeyHandler returns an http.HandlerFunc for POST /api/v1/keys.
// Saving a key for a provider that already has one replaces it.
func NewSaveKeyHandler(svc *keys.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req struct {
			ProviderName string `json:"provider_name"`
			APIKey       string `json:"api_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.ProviderName == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "provider_name is required", nil)
			return
		}
		if req.APIKey == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "api_key is required", nil)
			return
		}

		info, err := svc.Save(r.Context(), userID, req.ProviderName, req.APIKey)
		if err != nil {
			if errors.Is(err, keys.ErrUnknownProvider) {
				response.Error(w, http.StatusBadRequest, "UNKNOWN_PROVIDER",
					"Unsupported provider: "+req.ProviderName, nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save key", nil)
			return
		}

		response.Created(w, info)
	}
}

// NewUpdateKeyHandler returns an http.HandlerFunc for
// PUT /api/v1/keys/{provider}. The key must already exist.
func NewUpdateKeyHandler(svc *keys.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req struct {
			APIKey string `json:"api_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.APIKey == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "api_key is required", nil)
			return
		}

		providerName := chi.URLParam(r, "provider")
		info, err := svc.Update(r.Context(), userID, providerName, req.APIKey)
		if err != nil {
			writeKeyError(w, err, providerName)
			return
		}
		response.JSON(w, info)
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/keys.
func NewListKeysHandler(svc *keys.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		infos, err := svc.List(r.Context(), userID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list keys", nil)
			return
		}

		response.JSON(w, map[string]any{
			"api_keys": infos,
			"total":    len(infos),
		})
	}
}

// NewTestKeyHandler returns an http.HandlerFunc for
// POST /api/v1/keys/{provider}/test.
func NewTestKeyHandler(svc *keys.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		providerName := chi.URLParam(r, "provider")
		valid, message, err := svc.Test(r.Context(), userID, providerName)
		if err != nil {
			switch {
			case errors.Is(err, keys.ErrUnknownProvider):
				response.Error(w, http.StatusBadRequest, "UNKNOWN_PROVIDER",
					"Unsupported provider: "+providerName, nil)
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND",
					"No active API key found for provider: "+providerName, nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to test key", nil)
			}
			return
		}

		response.JSON(w, map[string]any{
			"provider_name": providerName,
			"is_valid":      valid,
			"message":       message,
		})
	}
}

// NewActivateKeyHandler returns an http.HandlerFunc for
// PATCH /api/v1/keys/{provider}/activate. Body: {"is_active": bool}.
func NewActivateKeyHandler(svc *keys.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req struct {
			IsActive bool `json:"is_active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		providerName := chi.URLParam(r, "provider")
		if err := svc.SetActive(r.Context(), userID, providerName, req.IsActive); err != nil {
			writeKeyError(w, err, providerName)
			return
		}
		response.JSON(w, map[string]any{
			"provider_name": providerName,
			"is_active":     req.IsActive,
		})
	}
}

// NewDeleteKeyHandler returns an http.HandlerFunc for
// DELETE /api/v1/keys/{provider}.
func NewDeleteKeyHandler(svc *keys.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		providerName := chi.URLParam(r, "provider")
		if err := svc.Delete(r.Context(), userID, providerName); err != nil {
			writeKeyError(w, err, providerName)
			return
		}
		response.NoContent(w)
	}
}

func writeKeyError(w http.ResponseWriter, err error, providerName string) {
	switch {
	case errors.Is(err, keys.ErrUnknownProvider):
		response.Error(w, http.StatusBadRequest, "UNKNOWN_PROVIDER",
			"Unsupported provider: "+providerName, nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND",
			"No API key found for provider: "+providerName, nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Key operation failed", nil)
	}
}

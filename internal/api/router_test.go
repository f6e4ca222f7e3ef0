package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/councilhq/council/internal/api"
	mw "github.com/councilhq/council/internal/api/middleware"
	"github.com/councilhq/council/internal/cache"
	"github.com/councilhq/council/internal/store"
	"github.com/councilhq/council/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub store that returns empty results (all auth fails) ---

type stubStore struct{}

func (s *stubStore) Ping(_ context.Context) error { return nil }

func (s *stubStore) GetActiveUserKey(_ context.Context, _ uuid.UUID, _ string) (*models.UserAPIKey, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) ListUserKeys(_ context.Context, _ uuid.UUID) ([]*models.UserAPIKey, error) {
	return nil, nil
}
func (s *stubStore) UpsertUserKey(_ context.Context, k *models.UserAPIKey) (*models.UserAPIKey, error) {
	return k, nil
}
func (s *stubStore) SetUserKeyActive(_ context.Context, _ uuid.UUID, _ string, _ bool) error {
	return nil
}
func (s *stubStore) DeleteUserKey(_ context.Context, _ uuid.UUID, _ string) error { return nil }
func (s *stubStore) TouchKeyLastUsed(_ context.Context, _ uuid.UUID, _ string, _ time.Time) error {
	return nil
}
func (s *stubStore) GetAccessKeyByPrefix(_ context.Context, _ string) ([]*models.AccessKey, error) {
	return nil, nil
}
func (s *stubStore) UpdateAccessKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (s *stubStore) CreateAccessKey(_ context.Context, _ *models.AccessKey) error { return nil }
func (s *stubStore) ListAccessKeys(_ context.Context, _ uuid.UUID) ([]*models.AccessKey, error) {
	return nil, nil
}
func (s *stubStore) RevokeAccessKey(_ context.Context, _ uuid.UUID, _ uuid.UUID) error { return nil }
func (s *stubStore) CreateRequest(_ context.Context, _ *models.CouncilRequest) error   { return nil }
func (s *stubStore) UpdateRequestStatus(_ context.Context, _ uuid.UUID, _ string, _ ...store.RequestUpdateOption) error {
	return nil
}
func (s *stubStore) GetRequest(_ context.Context, _ uuid.UUID, _ uuid.UUID) (*models.CouncilRequest, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) ListRequests(_ context.Context, _ store.RequestFilter) ([]*models.CouncilRequest, int, error) {
	return nil, 0, nil
}

// --- stub cache ---

type stubCache struct{}

func (c *stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *stubCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *stubCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *stubCache) Ping(_ context.Context) error                                     { return nil }
func (c *stubCache) SetRequestStatus(_ context.Context, _ uuid.UUID, _ string, _ time.Duration) error {
	return nil
}
func (c *stubCache) GetRequestStatus(_ context.Context, _ uuid.UUID) (string, bool, error) {
	return "", false, nil
}
func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- router tests ---

func newTestRouter() http.Handler {
	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(&stubStore{}),
		RateLimit: mw.NewRateLimit(&stubCache{}, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	})
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter()

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/council/requests"},
		{"GET", "/api/v1/council/requests"},
		{"GET", "/api/v1/providers"},
		{"POST", "/api/v1/keys"},
		{"GET", "/api/v1/keys"},
		{"DELETE", "/api/v1/keys/groq"},
		{"POST", "/api/v1/admin/access-keys"},
		{"GET", "/api/v1/admin/access-keys"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Verify stub interfaces are satisfied
var _ store.Store = (*stubStore)(nil)
var _ cache.Cache = (*stubCache)(nil)

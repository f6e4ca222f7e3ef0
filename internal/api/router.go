package api

import (
	"net/http"

	mw "github.com/councilhq/council/internal/api/middleware"
	"github.com/councilhq/council/internal/api/response"
	"github.com/go-chi/chi/v5"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	SubmitHandler     http.HandlerFunc
	GetRequestHandler http.HandlerFunc
	ListRequests      http.HandlerFunc
	ListProviders     http.HandlerFunc

	SaveKeyHandler     http.HandlerFunc
	UpdateKeyHandler   http.HandlerFunc
	ListKeysHandler    http.HandlerFunc
	TestKeyHandler     http.HandlerFunc
	ActivateKeyHandler http.HandlerFunc
	DeleteKeyHandler   http.HandlerFunc

	CreateAccessKey http.HandlerFunc
	ListAccessKeys  http.HandlerFunc
	RevokeAccessKey http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/council/requests", orNotImplemented(deps.SubmitHandler))
		r.Get("/api/v1/council/requests", orNotImplemented(deps.ListRequests))
		r.Get("/api/v1/council/requests/{requestID}", orNotImplemented(deps.GetRequestHandler))

		r.Get("/api/v1/providers", orNotImplemented(deps.ListProviders))

		r.Post("/api/v1/keys", orNotImplemented(deps.SaveKeyHandler))
		r.Get("/api/v1/keys", orNotImplemented(deps.ListKeysHandler))
		r.Put("/api/v1/keys/{provider}", orNotImplemented(deps.UpdateKeyHandler))
		r.Post("/api/v1/keys/{provider}/test", orNotImplemented(deps.TestKeyHandler))
		r.Patch("/api/v1/keys/{provider}/activate", orNotImplemented(deps.ActivateKeyHandler))
		r.Delete("/api/v1/keys/{provider}", orNotImplemented(deps.DeleteKeyHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/access-keys", orNotImplemented(deps.CreateAccessKey))
			r.Get("/api/v1/admin/access-keys", orNotImplemented(deps.ListAccessKeys))
			r.Delete("/api/v1/admin/access-keys/{keyID}", orNotImplemented(deps.RevokeAccessKey))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}

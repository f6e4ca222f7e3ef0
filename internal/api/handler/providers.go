package handler

import (
	"net/http"

	mw "github.com/councilhq/council/internal/api/middleware"
	"github.com/councilhq/council/internal/api/response"
	"github.com/councilhq/council/internal/config"
	"github.com/councilhq/council/internal/keys"
	"github.com/councilhq/council/internal/provider"
	"github.com/councilhq/council/pkg/models"
)

type providerView struct {
	Name         string           `json:"name"`
	DisplayName  string           `json:"display_name"`
	ConsoleURL   string           `json:"console_url"`
	KeySource    models.KeySource `json:"key_source"`
	APIKeyMasked string           `json:"api_key_masked,omitempty"`
	Models       []modelView      `json:"models"`
}

type modelView struct {
	ID                 string  `json:"id"`
	ModelName          string  `json:"model_name"`
	CostPerInputToken  float64 `json:"cost_per_input_token"`
	CostPerOutputToken float64 `json:"cost_per_output_token"`
	AverageLatency     float64 `json:"average_latency"`
	MaxContext         int     `json:"max_context"`
	ReliabilityScore   float64 `json:"reliability_score"`
}

// NewListProvidersHandler returns an http.HandlerFunc for
// GET /api/v1/providers: the catalog annotated with per-caller key
// availability, user keys masked.
func NewListProvidersHandler(svc *keys.Service, system config.SystemKeys) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		userKeys, err := svc.List(r.Context(), userID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list providers", nil)
			return
		}
		byProvider := make(map[string]*keys.KeyInfo, len(userKeys))
		for _, k := range userKeys {
			if k.IsActive {
				byProvider[k.ProviderName] = k
			}
		}

		var views []providerView
		for _, p := range provider.All() {
			v := providerView{
				Name:        p.Name,
				DisplayName: p.DisplayName,
				ConsoleURL:  p.ConsoleURL,
				KeySource:   models.SourceNone,
			}
			if info, ok := byProvider[p.Name]; ok {
				v.KeySource = models.SourceUser
				v.APIKeyMasked = info.APIKeyMasked
			} else if _, ok := system.Get(p.Name); ok {
				v.KeySource = models.SourceSystem
			}
			for _, m := range provider.ModelsFor(p.Name) {
				v.Models = append(v.Models, modelView{
					ID:                 m.ID,
					ModelName:          m.ModelName,
					CostPerInputToken:  m.CostPerInputToken,
					CostPerOutputToken: m.CostPerOutputToken,
					AverageLatency:     m.AverageLatency,
					MaxContext:         m.MaxContext,
					ReliabilityScore:   m.ReliabilityScore,
				})
			}
			views = append(views, v)
		}

		response.JSON(w, map[string]any{
			"providers": views,
			"total":     len(views),
		})
	}
}

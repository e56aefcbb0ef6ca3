package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

type createTenantRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

type tenantResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// createTenantHandler заводит арендатора и привязывает его домен.
func createTenantHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTenantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if req.Name == "" || req.Domain == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and domain are required"})
			return
		}

		tenant, err := deps.Tenants.Create(domain.Tenant{
			ID:     uuid.NewString(),
			Name:   req.Name,
			Domain: domain.NormalizeHost(req.Domain),
		}, req.Domain)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, tenantResponse{
			ID:     tenant.ID,
			Name:   tenant.Name,
			Domain: tenant.Domain,
		})
	}
}

type integrationsRequest struct {
	LMSBaseURL           string `json:"lms_base_url"`
	LMSToken             string `json:"lms_token"`
	StripeSecretKey      string `json:"stripe_secret_key"`
	StripePublishableKey string `json:"stripe_publishable_key"`
	StripeWebhookSecret  string `json:"stripe_webhook_secret"`
}

// updateIntegrationsHandler сохраняет секреты интеграций арендатора.
// Секреты в ответ не возвращаются.
func updateIntegrationsHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req integrationsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}

		err := deps.Tenants.UpdateIntegrations(domain.Tenant{
			ID:                   chi.URLParam(r, "tenantID"),
			LMSBaseURL:           req.LMSBaseURL,
			LMSToken:             req.LMSToken,
			StripeSecretKey:      req.StripeSecretKey,
			StripePublishableKey: req.StripePublishableKey,
			StripeWebhookSecret:  req.StripeWebhookSecret,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

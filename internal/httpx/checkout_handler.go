package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/vladislavdragonenkov/coursepay/internal/service/checkout"
)

type checkoutRequest struct {
	ProductID string `json:"product_id"`
	Email     string `json:"email"`
}

// checkoutHandler открывает checkout-сессию; арендатор определяется
// по хосту, с которого пришёл запрос фронта.
func checkoutHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if req.ProductID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_id is required"})
			return
		}

		tenantID, err := deps.Tenants.ResolveHost(requestHost(r))
		if err != nil {
			writeError(w, err)
			return
		}

		result, err := deps.Checkout.Start(r.Context(), checkout.StartParams{
			TenantID:      tenantID,
			ProductID:     req.ProductID,
			CustomerEmail: req.Email,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}

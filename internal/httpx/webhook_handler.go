package httpx

import (
	"io"
	"net/http"
)

// maxWebhookBodyBytes ограничивает тело события; Stripe сам не шлёт
// больше 1 MiB.
const maxWebhookBodyBytes = 1 << 20

// webhookHandler принимает события Stripe. Непроверяемые события
// получают 400, всё остальное 200: 5xx лишь раскручивает очередь
// повторных доставок на стороне провайдера.
func webhookHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
		if err != nil {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "payload too large"})
			return
		}

		result := deps.Webhook.Process(r.Context(), payload, r.Header.Get("Stripe-Signature"))
		if result.Rejected() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": result.Reason})
			return
		}

		resp := map[string]any{"outcome": string(result.Outcome)}
		if result.Reason != "" {
			resp["reason"] = result.Reason
		}
		if result.Fulfillment != nil {
			resp["fulfillment"] = result.Fulfillment
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

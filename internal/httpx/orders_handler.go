package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

type orderResponse struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id"`
	ProductID  string `json:"product_id"`
	BuyerEmail string `json:"buyer_email"`
	Status     string `json:"status"`
	TotalCents int64  `json:"total_cents"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func getOrderHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := deps.Orders.Get(chi.URLParam(r, "orderID"))
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, orderResponse{
			ID:         order.ID,
			TenantID:   order.TenantID,
			ProductID:  order.ProductID,
			BuyerEmail: order.BuyerEmail,
			Status:     string(order.Status),
			TotalCents: order.TotalCents,
			CreatedAt:  order.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			UpdatedAt:  order.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
}

// retryFulfillmentHandler вручную перезапускает сагу оплаченного заказа.
// Сага идемпотентна, уже зачисленные курсы пропускаются, поэтому ручной
// повтор безопасен и для заказов в статусе fulfilled.
func retryFulfillmentHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := deps.Orders.Get(chi.URLParam(r, "orderID"))
		if err != nil {
			writeError(w, err)
			return
		}
		if order.Status != domain.OrderStatusPaid && order.Status != domain.OrderStatusFulfilled {
			writeError(w, domain.ErrOrderNotPaid)
			return
		}

		result := deps.Saga.Fulfill(r.Context(), domain.FulfillmentRequest{
			TenantID:   order.TenantID,
			OrderID:    order.ID,
			ProductID:  order.ProductID,
			BuyerEmail: order.BuyerEmail,
		})
		if result.OK {
			if err := deps.Orders.MarkFulfilled(order.ID); err != nil {
				writeError(w, err)
				return
			}
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// Package httpx — HTTP-поверхность сервиса: публичный checkout и webhook,
// админские операции каталога и арендаторов.
package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
	"github.com/vladislavdragonenkov/coursepay/internal/health"
	"github.com/vladislavdragonenkov/coursepay/internal/service/catalog"
	"github.com/vladislavdragonenkov/coursepay/internal/service/checkout"
	"github.com/vladislavdragonenkov/coursepay/internal/service/webhook"
)

// Deps — зависимости HTTP-слоя.
type Deps struct {
	Tenants  domain.TenantRepository
	Orders   domain.OrderRepository
	Checkout *checkout.Service
	Catalog  *catalog.Service
	Webhook  *webhook.Processor
	Saga     webhook.Fulfiller
	Health   *health.Handler
}

// NewRouter собирает маршруты сервиса.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/livez", health.LivenessHandler)
	if deps.Health != nil {
		r.Get("/healthz", deps.Health.ServeHTTP)
		r.Get("/readyz", deps.Health.ReadinessHandler)
	} else {
		r.Get("/healthz", health.LivenessHandler)
		r.Get("/readyz", health.LivenessHandler)
	}

	// Публичные маршруты: арендатор определяется по хосту запроса.
	r.Post("/api/checkout", checkoutHandler(deps))
	r.Post("/webhooks/stripe", webhookHandler(deps))

	// Админские маршруты: арендатор адресуется явно.
	r.Route("/api/tenants", func(r chi.Router) {
		r.Post("/", createTenantHandler(deps))
		r.Put("/{tenantID}/integrations", updateIntegrationsHandler(deps))
		r.Post("/{tenantID}/courses/sync", syncCoursesHandler(deps))
		r.Get("/{tenantID}/courses", listCoursesHandler(deps))
		r.Post("/{tenantID}/products", createProductHandler(deps))
		r.Post("/{tenantID}/products/{productID}/courses/{courseID}", linkCourseHandler(deps))
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/{orderID}", getOrderHandler(deps))
		r.Post("/{orderID}/fulfill", retryFulfillmentHandler(deps))
	})

	return r
}

// requestHost возвращает хост, под которым фронт арендатора обратился
// к сервису. За прокси оригинальный хост приходит в X-Forwarded-Host.
func requestHost(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-Host"); forwarded != "" {
		return forwarded
	}
	return r.Host
}

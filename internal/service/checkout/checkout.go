// Package checkout открывает платёжные сессии: pending-заказ создаётся
// до обращения к провайдеру, чтобы webhook-событию всегда было с чем
// скоррелироваться.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

const returnPath = "/thank-you?session_id={CHECKOUT_SESSION_ID}"

// Service создаёт checkout-сессии для продуктов арендатора.
type Service struct {
	tenants domain.TenantRepository
	catalog domain.CatalogRepository
	orders  domain.OrderRepository
	gateway domain.PaymentGateway
	logger  *log.Entry
}

// New создаёт сервис checkout.
func New(
	tenants domain.TenantRepository,
	catalog domain.CatalogRepository,
	orders domain.OrderRepository,
	gateway domain.PaymentGateway,
) *Service {
	return &Service{
		tenants: tenants,
		catalog: catalog,
		orders:  orders,
		gateway: gateway,
		logger:  log.WithField("component", "checkout-service"),
	}
}

// StartParams — вход операции открытия сессии.
type StartParams struct {
	TenantID      string
	ProductID     string
	CustomerEmail string
}

// StartResult — данные для рендера embedded checkout на фронте арендатора.
type StartResult struct {
	OrderID        string `json:"order_id"`
	SessionID      string `json:"session_id"`
	ClientSecret   string `json:"client_secret"`
	PublishableKey string `json:"publishable_key"`
}

// Start открывает checkout-сессию: заказ в статусе pending пишется до
// вызова провайдера, session id привязывается после.
func (s *Service) Start(ctx context.Context, p StartParams) (StartResult, error) {
	tenant, err := s.tenants.Get(p.TenantID)
	if err != nil {
		return StartResult{}, err
	}
	if strings.TrimSpace(tenant.StripeSecretKey) == "" {
		return StartResult{}, domain.ErrStripeNotConfigured
	}

	host, err := s.tenants.PrimaryHost(tenant.ID)
	if err != nil {
		return StartResult{}, err
	}

	product, err := s.catalog.GetProduct(p.TenantID, p.ProductID)
	if err != nil {
		return StartResult{}, err
	}
	if !product.Published || !product.InStock {
		// Снятый с продажи продукт неотличим от несуществующего.
		return StartResult{}, domain.ErrProductNotFound
	}

	amount := product.UnitAmountCents()
	if amount < domain.MinChargeCents {
		return StartResult{}, domain.ErrAmountTooSmall
	}

	order := domain.Order{
		ID:         uuid.NewString(),
		TenantID:   tenant.ID,
		ProductID:  product.ID,
		BuyerEmail: strings.TrimSpace(p.CustomerEmail),
		Status:     domain.OrderStatusPending,
		TotalCents: amount,
	}
	if err := s.orders.Create(order); err != nil {
		return StartResult{}, fmt.Errorf("create pending order: %w", err)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, domain.CheckoutSessionParams{
		SecretKey:       tenant.StripeSecretKey,
		TenantID:        tenant.ID,
		OrderID:         order.ID,
		ProductID:       product.ID,
		Title:           product.Title,
		Description:     product.Description,
		ImageURL:        product.ImageURL,
		Currency:        strings.ToLower(product.Currency),
		UnitAmountCents: amount,
		CustomerEmail:   order.BuyerEmail,
		ReturnURL:       returnURL(host),
	})
	if err != nil {
		// Заказ остаётся pending без session id; истечёт естественным путём.
		return StartResult{}, err
	}

	if err := s.orders.SetStripeSession(tenant.ID, order.ID, session.ID); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"tenant_id": tenant.ID,
			"order_id":  order.ID,
		}).Error("bind stripe session to order failed")
		return StartResult{}, fmt.Errorf("bind stripe session: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"tenant_id":  tenant.ID,
		"order_id":   order.ID,
		"product_id": product.ID,
		"amount":     amount,
	}).Info("checkout session opened")

	return StartResult{
		OrderID:        order.ID,
		SessionID:      session.ID,
		ClientSecret:   session.ClientSecret,
		PublishableKey: tenant.StripePublishableKey,
	}, nil
}

// returnURL строит адрес возврата после оплаты на домене арендатора.
// Локальные хосты получают http для разработки без TLS.
func returnURL(host string) string {
	scheme := "https"
	if host == "localhost" || host == "127.0.0.1" ||
		strings.HasPrefix(host, "localhost:") || strings.HasPrefix(host, "127.0.0.1:") {
		scheme = "http"
	}
	return scheme + "://" + host + returnPath
}

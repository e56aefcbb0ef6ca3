// Package payment реализует PaymentGateway поверх Stripe Checkout.
package payment

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

// StripeGateway создаёт hosted checkout-сессии. Глобальный stripe.Key не
// используется: у каждого арендатора свой секретный ключ, поэтому API-клиент
// строится на каждый вызов из ключа в параметрах.
type StripeGateway struct {
	logger *log.Entry
}

// NewStripeGateway возвращает рабочий гейтвей.
func NewStripeGateway() *StripeGateway {
	return &StripeGateway{
		logger: log.WithField("component", "stripe-gateway"),
	}
}

// CreateCheckoutSession открывает embedded checkout-сессию.
// OrderID кодируется и в metadata, и в client_reference_id: webhook-пайплайн
// обязан уметь прочитать любой из двух вариантов.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p domain.CheckoutSessionParams) (domain.CheckoutSession, error) {
	if p.SecretKey == "" {
		return domain.CheckoutSession{}, domain.ErrStripeNotConfigured
	}

	api := &client.API{}
	api.Init(p.SecretKey, nil)

	meta := map[string]string{
		"tenant_id":  p.TenantID,
		"product_id": p.ProductID,
		"order_id":   p.OrderID,
	}

	productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(p.Title),
	}
	if p.Description != "" {
		productData.Description = stripe.String(p.Description)
	}
	if p.ImageURL != "" {
		productData.Images = stripe.StringSlice([]string{p.ImageURL})
	}

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{
			Context:  ctx,
			Metadata: meta,
		},
		UIMode:            stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(p.OrderID),
		ReturnURL:         stripe.String(p.ReturnURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(p.Currency),
					UnitAmount:  stripe.Int64(p.UnitAmountCents),
					ProductData: productData,
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}

	sess, err := api.CheckoutSessions.New(params)
	if err != nil {
		g.logger.WithError(err).WithFields(log.Fields{
			"tenant_id": p.TenantID,
			"order_id":  p.OrderID,
		}).Warn("create checkout session failed")
		return domain.CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}

	return domain.CheckoutSession{
		ID:           sess.ID,
		ClientSecret: sess.ClientSecret,
	}, nil
}

var _ domain.PaymentGateway = (*StripeGateway)(nil)

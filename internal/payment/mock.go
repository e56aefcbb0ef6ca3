package payment

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов.
type MockGateway struct {
	SessionID    string
	ClientSecret string
	Err          error

	Calls      int
	LastParams domain.CheckoutSessionParams
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		SessionID:    "cs_test_mock",
		ClientSecret: "cs_test_mock_secret",
	}
}

// CreateCheckoutSession возвращает настроенный результат и запоминает параметры.
func (m *MockGateway) CreateCheckoutSession(_ context.Context, p domain.CheckoutSessionParams) (domain.CheckoutSession, error) {
	m.Calls++
	m.LastParams = p
	if m.Err != nil {
		return domain.CheckoutSession{}, m.Err
	}
	return domain.CheckoutSession{
		ID:           fmt.Sprintf("%s_%d", m.SessionID, m.Calls),
		ClientSecret: m.ClientSecret,
	}, nil
}

var _ domain.PaymentGateway = (*MockGateway)(nil)

package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

// helper для создания базового заказа.
func makeOrder() domain.Order {
	return domain.Order{
		ID:         "order-1",
		TenantID:   "tenant-1",
		ProductID:  "product-1",
		Status:     domain.OrderStatusPending,
		TotalCents: 1999,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "no tenant",
			mut: func(o *domain.Order) {
				o.TenantID = ""
			},
		},
		{
			name: "no product",
			mut: func(o *domain.Order) {
				o.ProductID = ""
			},
		},
		{
			name: "bad status",
			mut: func(o *domain.Order) {
				o.Status = "refunded"
			},
		},
		{
			name: "negative total",
			mut: func(o *domain.Order) {
				o.TotalCents = -1
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			if len(order.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestOrderStatusCanTransition(t *testing.T) {
	cases := []struct {
		from domain.OrderStatus
		to   domain.OrderStatus
		want bool
	}{
		{domain.OrderStatusPending, domain.OrderStatusPaid, true},
		{domain.OrderStatusPending, domain.OrderStatusExpired, true},
		{domain.OrderStatusPaid, domain.OrderStatusFulfilled, true},
		// Оплаченный заказ не может истечь: гонка "оплата против expiry"
		// всегда решается в пользу оплаты.
		{domain.OrderStatusPaid, domain.OrderStatusExpired, false},
		{domain.OrderStatusFulfilled, domain.OrderStatusPaid, false},
		{domain.OrderStatusFulfilled, domain.OrderStatusExpired, false},
		{domain.OrderStatusExpired, domain.OrderStatusPaid, false},
		{domain.OrderStatusPending, domain.OrderStatusFulfilled, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if domain.OrderStatusPending.Terminal() || domain.OrderStatusPaid.Terminal() {
		t.Fatal("pending and paid must not be terminal")
	}
	if !domain.OrderStatusFulfilled.Terminal() || !domain.OrderStatusExpired.Terminal() {
		t.Fatal("fulfilled and expired must be terminal")
	}
}

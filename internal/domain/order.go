package domain

import "time"

// OrderStatus описывает жизненный цикл заказа на покупку курса.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан при открытии checkout-сессии, оплата не подтверждена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — оплата захвачена провайдером, зачисление в LMS ещё не подтверждено.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusFulfilled — покупатель заведён в LMS и зачислен на все курсы продукта.
	OrderStatusFulfilled OrderStatus = "fulfilled"
	// OrderStatusExpired — checkout-сессия истекла без оплаты.
	OrderStatusExpired OrderStatus = "expired"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFulfilled, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusExpired
}

// CanTransition проверяет допустимость перехода статуса.
// Разрешены только pending→paid, pending→expired и paid→fulfilled;
// повторная доставка события с текущим статусом считается no-op, не переходом.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return to == OrderStatusPaid || to == OrderStatusExpired
	case OrderStatusPaid:
		return to == OrderStatusFulfilled
	default:
		return false
	}
}

// Order — центральная запись о покупке: корреляционный ключ между
// Stripe-сессией и зачислением в LMS.
type Order struct {
	ID              string
	TenantID        string
	ProductID       string
	BuyerEmail      string
	StripeSessionID string
	Status          OrderStatus
	TotalCents      int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.TenantID == "" {
		errs = append(errs, ErrTenantRequired)
	}
	if o.ProductID == "" {
		errs = append(errs, ErrProductRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrOrderStatusInvalid)
	}
	if o.TotalCents < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	return errs
}

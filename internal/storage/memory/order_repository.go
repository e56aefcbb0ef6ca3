// Package memory содержит in-memory реализации доменных репозиториев.
// Используется в тестах и локальном запуске без Postgres; семантика
// guard-условий обязана совпадать с postgres-реализацией.
package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		orders: make(map[string]domain.Order),
	}
}

func (r *orderRepositoryInMemory) Create(o domain.Order) error {
	if errs := o.ValidateInvariants(); len(errs) > 0 {
		return errs[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	r.orders[o.ID] = o
	return nil
}

func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (r *orderRepositoryInMemory) SetStripeSession(tenantID, orderID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return domain.ErrOrderNotFound
	}
	o.StripeSessionID = sessionID
	o.UpdatedAt = time.Now().UTC()
	r.orders[orderID] = o
	return nil
}

// MarkPaid переводит заказ в paid. Fulfilled не понижается: повторная
// доставка webhook после завершённой саги не должна откатить заказ.
func (r *orderRepositoryInMemory) MarkPaid(orderID, buyerEmail string, totalCents int64) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	if o.Status != domain.OrderStatusFulfilled {
		o.Status = domain.OrderStatusPaid
	}
	if o.BuyerEmail == "" && buyerEmail != "" {
		o.BuyerEmail = buyerEmail
	}
	if totalCents > 0 && totalCents != o.TotalCents {
		o.TotalCents = totalCents
	}
	o.UpdatedAt = time.Now().UTC()
	r.orders[orderID] = o
	return o, nil
}

func (r *orderRepositoryInMemory) MarkFulfilled(orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	switch o.Status {
	case domain.OrderStatusFulfilled:
		return nil
	case domain.OrderStatusPaid:
		o.Status = domain.OrderStatusFulfilled
		o.UpdatedAt = time.Now().UTC()
		r.orders[orderID] = o
		return nil
	default:
		return domain.ErrOrderNotPaid
	}
}

// MarkExpired помечает заказ как expired по (tenant, session id).
// Оплаченные и уже истёкшие заказы guard не трогает.
func (r *orderRepositoryInMemory) MarkExpired(tenantID, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, o := range r.orders {
		if o.TenantID != tenantID || o.StripeSessionID != sessionID || sessionID == "" {
			continue
		}
		if !o.Status.CanTransition(domain.OrderStatusExpired) {
			return false, nil
		}
		o.Status = domain.OrderStatusExpired
		o.UpdatedAt = time.Now().UTC()
		r.orders[id] = o
		return true, nil
	}
	return false, nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)

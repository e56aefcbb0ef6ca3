package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

func makeOrder() domain.Order {
	return domain.Order{
		ID:         "ord-1",
		TenantID:   "t-1",
		ProductID:  "p-1",
		Status:     domain.OrderStatusPending,
		TotalCents: 1999,
	}
}

func TestOrderRepositoryMarkPaid(t *testing.T) {
	repo := NewOrderRepository()
	require.NoError(t, repo.Create(makeOrder()))

	updated, err := repo.MarkPaid("ord-1", "buyer@example.com", 2999)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, updated.Status)
	assert.Equal(t, "buyer@example.com", updated.BuyerEmail)
	assert.Equal(t, int64(2999), updated.TotalCents)
}

func TestOrderRepositoryMarkPaid_KeepsExistingEmail(t *testing.T) {
	repo := NewOrderRepository()
	o := makeOrder()
	o.BuyerEmail = "original@example.com"
	require.NoError(t, repo.Create(o))

	updated, err := repo.MarkPaid("ord-1", "other@example.com", 0)
	require.NoError(t, err)
	assert.Equal(t, "original@example.com", updated.BuyerEmail)
	assert.Equal(t, int64(1999), updated.TotalCents, "нулевая сумма не перетирает исходную")
}

func TestOrderRepositoryMarkPaid_DoesNotDowngradeFulfilled(t *testing.T) {
	repo := NewOrderRepository()
	require.NoError(t, repo.Create(makeOrder()))

	_, err := repo.MarkPaid("ord-1", "buyer@example.com", 1999)
	require.NoError(t, err)
	require.NoError(t, repo.MarkFulfilled("ord-1"))

	updated, err := repo.MarkPaid("ord-1", "buyer@example.com", 1999)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFulfilled, updated.Status,
		"redelivery after fulfillment must not downgrade the order")
}

func TestOrderRepositoryMarkFulfilled(t *testing.T) {
	repo := NewOrderRepository()
	require.NoError(t, repo.Create(makeOrder()))

	err := repo.MarkFulfilled("ord-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotPaid, "pending заказ нельзя закрыть напрямую")

	_, err = repo.MarkPaid("ord-1", "buyer@example.com", 1999)
	require.NoError(t, err)
	require.NoError(t, repo.MarkFulfilled("ord-1"))
	require.NoError(t, repo.MarkFulfilled("ord-1"), "повторный вызов — no-op")

	o, err := repo.Get("ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFulfilled, o.Status)
}

func TestOrderRepositoryMarkExpired(t *testing.T) {
	repo := NewOrderRepository()
	require.NoError(t, repo.Create(makeOrder()))
	require.NoError(t, repo.SetStripeSession("t-1", "ord-1", "cs_test_1"))

	marked, err := repo.MarkExpired("t-1", "cs_test_1")
	require.NoError(t, err)
	assert.True(t, marked)

	o, err := repo.Get("ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusExpired, o.Status)
}

func TestOrderRepositoryMarkExpired_PaidOrderWins(t *testing.T) {
	repo := NewOrderRepository()
	require.NoError(t, repo.Create(makeOrder()))
	require.NoError(t, repo.SetStripeSession("t-1", "ord-1", "cs_test_1"))

	_, err := repo.MarkPaid("ord-1", "buyer@example.com", 1999)
	require.NoError(t, err)

	marked, err := repo.MarkExpired("t-1", "cs_test_1")
	require.NoError(t, err)
	assert.False(t, marked, "гонка expiry против paid всегда в пользу paid")

	o, err := repo.Get("ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, o.Status)
}

func TestOrderRepositoryMarkExpired_WrongTenant(t *testing.T) {
	repo := NewOrderRepository()
	require.NoError(t, repo.Create(makeOrder()))
	require.NoError(t, repo.SetStripeSession("t-1", "ord-1", "cs_test_1"))

	marked, err := repo.MarkExpired("t-2", "cs_test_1")
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestOrderRepositorySetStripeSession_ScopedByTenant(t *testing.T) {
	repo := NewOrderRepository()
	require.NoError(t, repo.Create(makeOrder()))

	err := repo.SetStripeSession("t-2", "ord-1", "cs_evil")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

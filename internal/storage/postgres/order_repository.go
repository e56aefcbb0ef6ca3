package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(o domain.Order) error {
	if errs := o.ValidateInvariants(); len(errs) > 0 {
		return errs[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, tenant_id, product_id, buyer_email, stripe_session_id,
			status, total_cents, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
	`,
		o.ID, o.TenantID, o.ProductID, o.BuyerEmail, o.StripeSessionID,
		string(o.Status), o.TotalCents,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, product_id, buyer_email, stripe_session_id,
		       status, total_cents, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id))
}

func (r *orderRepository) SetStripeSession(tenantID, orderID, sessionID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET stripe_session_id = $1,
		    updated_at = NOW()
		WHERE id = $2
		  AND tenant_id = $3
	`, sessionID, orderID, tenantID)
	if err != nil {
		return fmt.Errorf("set stripe session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// MarkPaid переводит заказ в paid одним UPDATE: guard "fulfilled не
// понижается" и дозаполнение email выражены в CASE, чтобы повторная
// доставка события не зависела от гонок между чтением и записью.
func (r *orderRepository) MarkPaid(orderID, buyerEmail string, totalCents int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("lock order: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE orders
		SET status = CASE WHEN status = 'fulfilled' THEN status ELSE 'paid' END,
		    buyer_email = CASE WHEN buyer_email = '' THEN $2 ELSE buyer_email END,
		    total_cents = CASE WHEN $3 > 0 AND $3 <> total_cents THEN $3 ELSE total_cents END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, tenant_id, product_id, buyer_email, stripe_session_id,
		          status, total_cents, created_at, updated_at
	`, orderID, buyerEmail, totalCents)

	updated, err := scanOrder(row)
	if err != nil {
		return domain.Order{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit mark paid: %w", err)
	}
	return updated, nil
}

func (r *orderRepository) MarkFulfilled(orderID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = 'fulfilled',
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'paid'
	`, orderID)
	if err != nil {
		return fmt.Errorf("mark fulfilled: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("check order status: %w", err)
	}
	// Повторная доставка после завершённой саги — no-op.
	if domain.OrderStatus(status) == domain.OrderStatusFulfilled {
		return nil
	}
	return domain.ErrOrderNotPaid
}

// MarkExpired помечает заказ как expired по (tenant, session id).
// Guard в WHERE: оплаченные и уже истёкшие заказы не трогаются.
func (r *orderRepository) MarkExpired(tenantID, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = 'expired',
		    updated_at = NOW()
		WHERE tenant_id = $1
		  AND stripe_session_id = $2
		  AND status = 'pending'
	`, tenantID, sessionID)
	if err != nil {
		return false, fmt.Errorf("mark expired: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.TenantID, &o.ProductID, &o.BuyerEmail, &o.StripeSessionID,
		&status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("scan order: %w", err)
	}
	o.Status = domain.OrderStatus(status)
	return o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)

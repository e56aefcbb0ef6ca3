package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

type tenantRepository struct {
	db *sql.DB
}

// NewTenantRepository создаёт PostgreSQL-реализацию TenantRepository.
func NewTenantRepository(store *Store) domain.TenantRepository {
	return &tenantRepository{db: store.DB()}
}

func (r *tenantRepository) Create(t domain.Tenant, host string) (domain.Tenant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO tenants (
			id, name, domain, lms_base_url, lms_token,
			stripe_secret_key, stripe_publishable_key, stripe_webhook_secret, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
		RETURNING created_at
	`,
		t.ID, t.Name, t.Domain, t.LMSBaseURL, t.LMSToken,
		t.StripeSecretKey, t.StripePublishableKey, t.StripeWebhookSecret,
	).Scan(&t.CreatedAt)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("insert tenant: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tenant_domains (host, tenant_id) VALUES ($1, $2)
	`, domain.NormalizeHost(host), t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrDomainTaken
			return domain.Tenant{}, err
		}
		return domain.Tenant{}, fmt.Errorf("insert tenant domain: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Tenant{}, fmt.Errorf("commit create tenant: %w", err)
	}
	return t, nil
}

func (r *tenantRepository) Get(id string) (domain.Tenant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var t domain.Tenant
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, domain, lms_base_url, lms_token,
		       stripe_secret_key, stripe_publishable_key, stripe_webhook_secret, created_at
		FROM tenants
		WHERE id = $1
	`, id).Scan(
		&t.ID, &t.Name, &t.Domain, &t.LMSBaseURL, &t.LMSToken,
		&t.StripeSecretKey, &t.StripePublishableKey, &t.StripeWebhookSecret, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		return domain.Tenant{}, fmt.Errorf("select tenant: %w", err)
	}
	return t, nil
}

// ResolveHost сопоставляет нормализованный хост с арендатором:
// сначала реестр tenant_domains, затем поле domain самой записи.
func (r *tenantRepository) ResolveHost(host string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	normalized := domain.NormalizeHost(host)
	if normalized == "" {
		return "", domain.ErrTenantNotFound
	}

	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id FROM tenant_domains WHERE host = $1
	`, normalized).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolve host: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT id FROM tenants WHERE LOWER(domain) = $1
	`, normalized).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrTenantNotFound
		}
		return "", fmt.Errorf("resolve host fallback: %w", err)
	}
	return id, nil
}

func (r *tenantRepository) PrimaryHost(tenantID string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var host string
	err := r.db.QueryRowContext(ctx, `
		SELECT host
		FROM tenant_domains
		WHERE tenant_id = $1
		ORDER BY created_at ASC, host ASC
		LIMIT 1
	`, tenantID).Scan(&host)
	if err == nil {
		return host, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("select primary host: %w", err)
	}

	t, err := r.Get(tenantID)
	if err != nil {
		return "", err
	}
	if t.Domain == "" {
		return "", domain.ErrTenantHostMissing
	}
	return t.Domain, nil
}

func (r *tenantRepository) UpdateIntegrations(t domain.Tenant) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE tenants
		SET lms_base_url = $2,
		    lms_token = $3,
		    stripe_secret_key = $4,
		    stripe_publishable_key = $5,
		    stripe_webhook_secret = $6
		WHERE id = $1
	`,
		t.ID, t.LMSBaseURL, t.LMSToken,
		t.StripeSecretKey, t.StripePublishableKey, t.StripeWebhookSecret,
	)
	if err != nil {
		return fmt.Errorf("update integrations: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (r *tenantRepository) RecordWebhookVerified(h domain.WebhookHealth) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_health (tenant_id, last_verified_at, last_event_type, last_event_id, last_session_id)
		VALUES ($1, NOW(), $2, $3, $4)
		ON CONFLICT (tenant_id) DO UPDATE
		SET last_verified_at = NOW(),
		    last_event_type = EXCLUDED.last_event_type,
		    last_event_id = EXCLUDED.last_event_id,
		    last_session_id = EXCLUDED.last_session_id
	`, h.TenantID, h.LastEventType, h.LastEventID, h.LastSessionID)
	if err != nil {
		return fmt.Errorf("record webhook verified: %w", err)
	}
	return nil
}

var _ domain.TenantRepository = (*tenantRepository)(nil)

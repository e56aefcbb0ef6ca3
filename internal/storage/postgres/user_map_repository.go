package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

type userMapRepository struct {
	db *sql.DB
}

// NewUserMapRepository создаёт PostgreSQL-реализацию UserMapRepository.
func NewUserMapRepository(store *Store) domain.UserMapRepository {
	return &userMapRepository{db: store.DB()}
}

func (r *userMapRepository) Upsert(m domain.UserMapping) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_map (tenant_id, email, lms_user_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_id, email) DO UPDATE
		SET lms_user_id = EXCLUDED.lms_user_id
	`, m.TenantID, normalizeEmail(m.Email), m.LMSUserID)
	if err != nil {
		return fmt.Errorf("upsert user mapping: %w", err)
	}
	return nil
}

func (r *userMapRepository) Lookup(tenantID, email string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT lms_user_id FROM user_map WHERE tenant_id = $1 AND email = $2
	`, tenantID, normalizeEmail(email)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrUserMappingNotFound
		}
		return 0, fmt.Errorf("lookup user mapping: %w", err)
	}
	return id, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ domain.UserMapRepository = (*userMapRepository)(nil)

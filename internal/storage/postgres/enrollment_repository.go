package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

type enrollmentRepository struct {
	db *sql.DB
}

// NewEnrollmentRepository создаёт PostgreSQL-реализацию EnrollmentRepository.
func NewEnrollmentRepository(store *Store) domain.EnrollmentRepository {
	return &enrollmentRepository{db: store.DB()}
}

// Upsert пишет checkpoint по ключу (order, LMS course). COALESCE-семантика
// для lms_user_id: ненулевое новое значение приоритетнее сохранённого.
func (r *enrollmentRepository) Upsert(a domain.EnrollmentAttempt) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_enrollments (
			id, tenant_id, order_id, lms_course_id, lms_user_id, status, error, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (order_id, lms_course_id) DO UPDATE
		SET status = EXCLUDED.status,
		    error = EXCLUDED.error,
		    lms_user_id = CASE WHEN EXCLUDED.lms_user_id <> 0
		                       THEN EXCLUDED.lms_user_id
		                       ELSE order_enrollments.lms_user_id END
	`,
		a.ID, a.TenantID, a.OrderID, a.LMSCourseID, a.LMSUserID,
		string(a.Status), domain.TruncateEnrollmentError(a.Error),
	)
	if err != nil {
		return fmt.Errorf("upsert enrollment: %w", err)
	}
	return nil
}

func (r *enrollmentRepository) EnrolledCourseIDs(orderID string) ([]int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT lms_course_id
		FROM order_enrollments
		WHERE order_id = $1
		  AND status = 'enrolled'
		ORDER BY lms_course_id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select enrolled courses: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan enrolled course id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrolled course ids: %w", err)
	}
	return ids, nil
}

func (r *enrollmentRepository) ListByOrder(orderID string) ([]domain.EnrollmentAttempt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, order_id, lms_course_id, lms_user_id, status, error, created_at
		FROM order_enrollments
		WHERE order_id = $1
		ORDER BY lms_course_id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	attempts := make([]domain.EnrollmentAttempt, 0)
	for rows.Next() {
		var (
			a      domain.EnrollmentAttempt
			status string
		)
		if err := rows.Scan(&a.ID, &a.TenantID, &a.OrderID, &a.LMSCourseID, &a.LMSUserID, &status, &a.Error, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan enrollment row: %w", err)
		}
		a.Status = domain.EnrollmentStatus(status)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollment rows: %w", err)
	}
	return attempts, nil
}

var _ domain.EnrollmentRepository = (*enrollmentRepository)(nil)

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

func decimalFromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price %q: %w", s, err)
	}
	return d, nil
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository создаёт PostgreSQL-реализацию CatalogRepository.
func NewCatalogRepository(store *Store) domain.CatalogRepository {
	return &catalogRepository{db: store.DB()}
}

func (r *catalogRepository) CreateProduct(p domain.Product) error {
	if errs := p.ValidateInvariants(); len(errs) > 0 {
		return errs[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var discount any
	if p.DiscountPrice != nil {
		discount = p.DiscountPrice.String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, tenant_id, title, description, image_url, currency,
			price, price_cents, discount_price, published, in_stock, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
	`,
		p.ID, p.TenantID, p.Title, p.Description, p.ImageURL, p.Currency,
		p.Price.String(), p.PriceCents, discount, p.Published, p.InStock,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *catalogRepository) GetProduct(tenantID, productID string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		p        domain.Product
		price    string
		discount sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, title, description, image_url, currency,
		       price, price_cents, discount_price, published, in_stock, created_at
		FROM products
		WHERE id = $1
		  AND tenant_id = $2
	`, productID, tenantID).Scan(
		&p.ID, &p.TenantID, &p.Title, &p.Description, &p.ImageURL, &p.Currency,
		&price, &p.PriceCents, &discount, &p.Published, &p.InStock, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	if p.Price, err = decimalFromString(price); err != nil {
		return domain.Product{}, err
	}
	if discount.Valid {
		d, err := decimalFromString(discount.String)
		if err != nil {
			return domain.Product{}, err
		}
		p.DiscountPrice = &d
	}
	return p, nil
}

// UpsertCourse обновляет зеркало по естественному ключу (tenant, LMS id);
// id и created_at существующей строки сохраняются.
func (r *catalogRepository) UpsertCourse(c domain.Course) (domain.Course, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO courses (id, tenant_id, lms_course_id, full_name, summary, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		ON CONFLICT (tenant_id, lms_course_id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    summary = EXCLUDED.summary
		RETURNING id, created_at
	`, c.ID, c.TenantID, c.LMSCourseID, c.FullName, c.Summary).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return domain.Course{}, fmt.Errorf("upsert course: %w", err)
	}
	return c, nil
}

func (r *catalogRepository) ListCourses(tenantID string) ([]domain.Course, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, lms_course_id, full_name, summary, created_at
		FROM courses
		WHERE tenant_id = $1
		ORDER BY lms_course_id ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	courses := make([]domain.Course, 0)
	for rows.Next() {
		var c domain.Course
		if err := rows.Scan(&c.ID, &c.TenantID, &c.LMSCourseID, &c.FullName, &c.Summary, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course rows: %w", err)
	}
	return courses, nil
}

func (r *catalogRepository) LinkProductCourse(tenantID, productID, courseID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.checkProduct(ctx, tenantID, productID); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO product_courses (product_id, course_id)
		SELECT $1, id FROM courses WHERE id = $2 AND tenant_id = $3
		ON CONFLICT (product_id, course_id) DO NOTHING
	`, productID, courseID, tenantID)
	if err != nil {
		return fmt.Errorf("link product course: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Либо курс чужой/не существует, либо связь уже есть; различаем.
		var one int
		err := r.db.QueryRowContext(ctx, `
			SELECT 1 FROM courses WHERE id = $1 AND tenant_id = $2
		`, courseID, tenantID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCourseNotFound
		}
		if err != nil {
			return fmt.Errorf("check course exists: %w", err)
		}
	}
	return nil
}

// CourseIDsForProduct возвращает уникальные LMS course id по возрастанию.
func (r *catalogRepository) CourseIDsForProduct(tenantID, productID string) ([]int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.checkProduct(ctx, tenantID, productID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT c.lms_course_id
		FROM product_courses pc
		JOIN courses c ON c.id = pc.course_id
		WHERE pc.product_id = $1
		  AND c.tenant_id = $2
		ORDER BY c.lms_course_id ASC
	`, productID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("select product courses: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lms course id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lms course ids: %w", err)
	}
	return ids, nil
}

func (r *catalogRepository) checkProduct(ctx context.Context, tenantID, productID string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM products WHERE id = $1 AND tenant_id = $2
	`, productID, tenantID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("check product exists: %w", err)
	}
	return nil
}

var _ domain.CatalogRepository = (*catalogRepository)(nil)

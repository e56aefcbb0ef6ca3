// Package catalog управляет продуктами и зеркалом курсов LMS.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

// siteCourseID — служебный "курс" с id площадки в Moodle-совместимых LMS;
// в зеркало не попадает.
const siteCourseID = 1

// Service — операции каталога арендатора.
type Service struct {
	tenants domain.TenantRepository
	catalog domain.CatalogRepository
	lms     domain.LMSFactory
	logger  *log.Entry
}

// New создаёт сервис каталога.
func New(tenants domain.TenantRepository, catalog domain.CatalogRepository, lmsFactory domain.LMSFactory) *Service {
	return &Service{
		tenants: tenants,
		catalog: catalog,
		lms:     lmsFactory,
		logger:  log.WithField("component", "catalog-service"),
	}
}

// SyncResult — итог синхронизации зеркала курсов.
type SyncResult struct {
	Synced  int             `json:"synced"`
	Courses []domain.Course `json:"courses"`
}

// SyncCourses перечитывает курсы из LMS арендатора и обновляет локальное
// зеркало. Upsert по (tenant, LMS id): переименования подтягиваются,
// дубликаты не плодятся.
func (s *Service) SyncCourses(ctx context.Context, tenantID string) (SyncResult, error) {
	tenant, err := s.tenants.Get(tenantID)
	if err != nil {
		return SyncResult{}, err
	}
	if !tenant.LMSConfigured() {
		return SyncResult{}, domain.ErrLMSNotConfigured
	}

	client := s.lms(tenant.LMSBaseURL, tenant.LMSToken)
	remote, err := client.ListCourses(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list lms courses: %w", err)
	}

	result := SyncResult{Courses: make([]domain.Course, 0, len(remote))}
	for _, rc := range remote {
		if rc.ID == siteCourseID {
			continue
		}
		course, err := s.catalog.UpsertCourse(domain.Course{
			TenantID:    tenantID,
			LMSCourseID: rc.ID,
			FullName:    rc.FullName,
			Summary:     rc.Summary,
		})
		if err != nil {
			return SyncResult{}, fmt.Errorf("upsert course %d: %w", rc.ID, err)
		}
		result.Courses = append(result.Courses, course)
		result.Synced++
	}

	s.logger.WithFields(log.Fields{
		"tenant_id": tenantID,
		"synced":    result.Synced,
	}).Info("lms courses synced")
	return result, nil
}

// CreateProduct валидирует и сохраняет продукт арендатора.
func (s *Service) CreateProduct(p domain.Product) (domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PriceCents == 0 && !p.Price.IsZero() {
		p.PriceCents = domain.MinorUnits(p.Price)
	}
	if errs := p.ValidateInvariants(); len(errs) > 0 {
		return domain.Product{}, errs[0]
	}
	if err := s.catalog.CreateProduct(p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// LinkCourse связывает продукт с курсом-зеркалом того же арендатора.
func (s *Service) LinkCourse(tenantID, productID, courseID string) error {
	return s.catalog.LinkProductCourse(tenantID, productID, courseID)
}

// ListCourses возвращает зеркало курсов арендатора.
func (s *Service) ListCourses(tenantID string) ([]domain.Course, error) {
	return s.catalog.ListCourses(tenantID)
}

package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

type courseKey struct {
	tenantID    string
	lmsCourseID int64
}

// catalogRepositoryInMemory — in-memory реализация CatalogRepository.
type catalogRepositoryInMemory struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	courses  map[string]domain.Course
	// byLMSCourse индексирует курсы по естественному ключу (tenant, LMS id).
	byLMSCourse map[courseKey]string
	// links: product id → множество id курсов-зеркал.
	links map[string]map[string]struct{}
}

// NewCatalogRepository возвращает in-memory каталог.
func NewCatalogRepository() domain.CatalogRepository {
	return &catalogRepositoryInMemory{
		products:    make(map[string]domain.Product),
		courses:     make(map[string]domain.Course),
		byLMSCourse: make(map[courseKey]string),
		links:       make(map[string]map[string]struct{}),
	}
}

func (r *catalogRepositoryInMemory) CreateProduct(p domain.Product) error {
	if errs := p.ValidateInvariants(); len(errs) > 0 {
		return errs[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.products[p.ID] = p
	return nil
}

func (r *catalogRepositoryInMemory) GetProduct(tenantID, productID string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok || p.TenantID != tenantID {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

// UpsertCourse обновляет зеркало по ключу (tenant, LMS course id),
// сохраняя id и время создания существующей строки.
func (r *catalogRepositoryInMemory) UpsertCourse(c domain.Course) (domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := courseKey{tenantID: c.TenantID, lmsCourseID: c.LMSCourseID}
	if existingID, ok := r.byLMSCourse[key]; ok {
		existing := r.courses[existingID]
		existing.FullName = c.FullName
		existing.Summary = c.Summary
		r.courses[existingID] = existing
		return existing, nil
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.courses[c.ID] = c
	r.byLMSCourse[key] = c.ID
	return c, nil
}

func (r *catalogRepositoryInMemory) ListCourses(tenantID string) ([]domain.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Course, 0)
	for _, c := range r.courses {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LMSCourseID < out[j].LMSCourseID })
	return out, nil
}

func (r *catalogRepositoryInMemory) LinkProductCourse(tenantID, productID, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok || p.TenantID != tenantID {
		return domain.ErrProductNotFound
	}
	c, ok := r.courses[courseID]
	if !ok || c.TenantID != tenantID {
		return domain.ErrCourseNotFound
	}

	if r.links[productID] == nil {
		r.links[productID] = make(map[string]struct{})
	}
	r.links[productID][courseID] = struct{}{}
	return nil
}

// CourseIDsForProduct возвращает уникальные LMS course id по возрастанию.
func (r *catalogRepositoryInMemory) CourseIDsForProduct(tenantID, productID string) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok || p.TenantID != tenantID {
		return nil, domain.ErrProductNotFound
	}

	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for courseID := range r.links[productID] {
		c, ok := r.courses[courseID]
		if !ok {
			continue
		}
		if _, dup := seen[c.LMSCourseID]; dup {
			continue
		}
		seen[c.LMSCourseID] = struct{}{}
		ids = append(ids, c.LMSCourseID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

var _ domain.CatalogRepository = (*catalogRepositoryInMemory)(nil)

package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
	"github.com/vladislavdragonenkov/coursepay/internal/service/catalog"
	"github.com/vladislavdragonenkov/coursepay/internal/storage/memory"
)

type listOnlyLMS struct {
	courses []domain.LMSCourse
	err     error
}

func (l *listOnlyLMS) SiteInfo(context.Context) (domain.LMSSiteInfo, error) {
	return domain.LMSSiteInfo{}, nil
}
func (l *listOnlyLMS) FindUserByEmail(context.Context, string) (int64, error) { return 0, nil }
func (l *listOnlyLMS) CreateUser(context.Context, domain.LMSUser) (int64, error) {
	return 0, nil
}
func (l *listOnlyLMS) EnrolUser(context.Context, int64, int64, int64) error { return nil }
func (l *listOnlyLMS) ListCourses(context.Context) ([]domain.LMSCourse, error) {
	return l.courses, l.err
}

func newCatalogService(t *testing.T, lms *listOnlyLMS) (*catalog.Service, domain.CatalogRepository) {
	t.Helper()

	tenants := memory.NewTenantRepository()
	repo := memory.NewCatalogRepository()
	service := catalog.New(tenants, repo, func(baseURL, token string) domain.LMSService { return lms })

	_, err := tenants.Create(domain.Tenant{
		ID:         "t-1",
		Name:       "Acme School",
		LMSBaseURL: "https://lms.acme.example",
		LMSToken:   "token",
	}, "acme.example")
	require.NoError(t, err)

	_, err = tenants.Create(domain.Tenant{ID: "t-2", Name: "No LMS"}, "nolms.example")
	require.NoError(t, err)

	return service, repo
}

func TestSyncCourses(t *testing.T) {
	lms := &listOnlyLMS{courses: []domain.LMSCourse{
		{ID: 1, FullName: "Acme Site"},
		{ID: 101, FullName: "Go Basics", Summary: "intro"},
		{ID: 102, FullName: "Go Advanced"},
	}}
	service, repo := newCatalogService(t, lms)

	result, err := service.SyncCourses(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced, "служебный курс площадки не зеркалится")

	courses, err := repo.ListCourses("t-1")
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, int64(101), courses[0].LMSCourseID)

	// Повторная синхронизация подтягивает переименование без дубликатов
	lms.courses[1].FullName = "Go Basics 2024"
	_, err = service.SyncCourses(context.Background(), "t-1")
	require.NoError(t, err)

	courses, err = repo.ListCourses("t-1")
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "Go Basics 2024", courses[0].FullName)
}

func TestSyncCourses_LMSNotConfigured(t *testing.T) {
	service, _ := newCatalogService(t, &listOnlyLMS{})

	_, err := service.SyncCourses(context.Background(), "t-2")
	assert.ErrorIs(t, err, domain.ErrLMSNotConfigured)
}

func TestCreateProduct(t *testing.T) {
	service, _ := newCatalogService(t, &listOnlyLMS{})

	created, err := service.CreateProduct(domain.Product{
		TenantID: "t-1",
		Title:    "Go Course",
		Currency: "usd",
		Price:    decimal.NewFromFloat(19.99),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1999), created.PriceCents, "зеркало цены в минорных единицах заполняется автоматически")
}

func TestCreateProduct_DiscountNotLower(t *testing.T) {
	service, _ := newCatalogService(t, &listOnlyLMS{})

	discount := decimal.NewFromFloat(19.99)
	_, err := service.CreateProduct(domain.Product{
		TenantID:      "t-1",
		Title:         "Bad Discount",
		Currency:      "usd",
		Price:         decimal.NewFromFloat(19.99),
		DiscountPrice: &discount,
	})
	assert.ErrorIs(t, err, domain.ErrDiscountNotLower)
}

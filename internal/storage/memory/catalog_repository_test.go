package memory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

func makeProduct() domain.Product {
	return domain.Product{
		ID:       "p-1",
		TenantID: "t-1",
		Title:    "Go Basics",
		Currency: "usd",
		Price:    decimal.NewFromFloat(19.99),
	}
}

func TestCatalogRepositoryUpsertCourse(t *testing.T) {
	repo := NewCatalogRepository()

	first, err := repo.UpsertCourse(domain.Course{TenantID: "t-1", LMSCourseID: 101, FullName: "Go Basics"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := repo.UpsertCourse(domain.Course{TenantID: "t-1", LMSCourseID: 101, FullName: "Go Basics v2", Summary: "updated"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "повторная синхронизация не создаёт дубликат")
	assert.Equal(t, "Go Basics v2", second.FullName)

	other, err := repo.UpsertCourse(domain.Course{TenantID: "t-2", LMSCourseID: 101, FullName: "Go Basics"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID, "одинаковый LMS id у разных арендаторов — разные зеркала")
}

func TestCatalogRepositoryCourseIDsForProduct(t *testing.T) {
	repo := NewCatalogRepository()
	require.NoError(t, repo.CreateProduct(makeProduct()))

	advanced, err := repo.UpsertCourse(domain.Course{TenantID: "t-1", LMSCourseID: 205, FullName: "Advanced"})
	require.NoError(t, err)
	basics, err := repo.UpsertCourse(domain.Course{TenantID: "t-1", LMSCourseID: 101, FullName: "Basics"})
	require.NoError(t, err)

	require.NoError(t, repo.LinkProductCourse("t-1", "p-1", advanced.ID))
	require.NoError(t, repo.LinkProductCourse("t-1", "p-1", basics.ID))
	require.NoError(t, repo.LinkProductCourse("t-1", "p-1", basics.ID), "повторная связь — no-op")

	ids, err := repo.CourseIDsForProduct("t-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 205}, ids, "порядок обхода всегда по возрастанию LMS id")
}

func TestCatalogRepositoryCourseIDsForProduct_Empty(t *testing.T) {
	repo := NewCatalogRepository()
	require.NoError(t, repo.CreateProduct(makeProduct()))

	ids, err := repo.CourseIDsForProduct("t-1", "p-1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCatalogRepositoryGetProduct_WrongTenant(t *testing.T) {
	repo := NewCatalogRepository()
	require.NoError(t, repo.CreateProduct(makeProduct()))

	_, err := repo.GetProduct("t-2", "p-1")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCatalogRepositoryLinkProductCourse_CrossTenant(t *testing.T) {
	repo := NewCatalogRepository()
	require.NoError(t, repo.CreateProduct(makeProduct()))

	foreign, err := repo.UpsertCourse(domain.Course{TenantID: "t-2", LMSCourseID: 101, FullName: "Foreign"})
	require.NoError(t, err)

	err = repo.LinkProductCourse("t-1", "p-1", foreign.ID)
	assert.ErrorIs(t, err, domain.ErrCourseNotFound, "курс чужого арендатора привязать нельзя")
}

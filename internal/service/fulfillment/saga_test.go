package fulfillment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
	"github.com/vladislavdragonenkov/coursepay/internal/service/fulfillment"
	"github.com/vladislavdragonenkov/coursepay/internal/storage/memory"
)

// fakeLMS — скриптуемая заглушка LMS для тестов саги.
type fakeLMS struct {
	usersByEmail map[string]int64
	nextUserID   int64

	findErr   error
	createErr error
	// enrolErrs задаёт ошибку зачисления для конкретного курса.
	enrolErrs map[int64]error

	createdUsers []domain.LMSUser
	enrolled     [][3]int64
}

func newFakeLMS() *fakeLMS {
	return &fakeLMS{
		usersByEmail: map[string]int64{},
		nextUserID:   100,
		enrolErrs:    map[int64]error{},
	}
}

func (f *fakeLMS) SiteInfo(context.Context) (domain.LMSSiteInfo, error) {
	return domain.LMSSiteInfo{SiteName: "fake"}, nil
}

func (f *fakeLMS) FindUserByEmail(_ context.Context, email string) (int64, error) {
	if f.findErr != nil {
		return 0, f.findErr
	}
	return f.usersByEmail[email], nil
}

func (f *fakeLMS) CreateUser(_ context.Context, user domain.LMSUser) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextUserID++
	f.usersByEmail[user.Email] = f.nextUserID
	f.createdUsers = append(f.createdUsers, user)
	return f.nextUserID, nil
}

func (f *fakeLMS) EnrolUser(_ context.Context, userID, courseID, roleID int64) error {
	if err := f.enrolErrs[courseID]; err != nil {
		return err
	}
	f.enrolled = append(f.enrolled, [3]int64{userID, courseID, roleID})
	return nil
}

func (f *fakeLMS) ListCourses(context.Context) ([]domain.LMSCourse, error) {
	return nil, nil
}

type sagaFixture struct {
	saga        *fulfillment.Saga
	tenants     domain.TenantRepository
	catalog     domain.CatalogRepository
	enrollments domain.EnrollmentRepository
	users       domain.UserMapRepository
	lms         *fakeLMS
}

// newSagaFixture поднимает арендатора с LMS-интеграцией и продукт
// с курсами 101 и 102.
func newSagaFixture(t *testing.T) *sagaFixture {
	t.Helper()

	f := &sagaFixture{
		tenants:     memory.NewTenantRepository(),
		catalog:     memory.NewCatalogRepository(),
		enrollments: memory.NewEnrollmentRepository(),
		users:       memory.NewUserMapRepository(),
		lms:         newFakeLMS(),
	}
	f.saga = fulfillment.NewWithoutMetrics(
		f.tenants, f.catalog, f.enrollments, f.users,
		func(baseURL, token string) domain.LMSService { return f.lms },
	)

	_, err := f.tenants.Create(domain.Tenant{
		ID:         "t-1",
		Name:       "Acme School",
		LMSBaseURL: "https://lms.acme.example",
		LMSToken:   "token",
	}, "acme.example")
	require.NoError(t, err)

	require.NoError(t, f.catalog.CreateProduct(makeProduct("p-1")))
	for _, lmsID := range []int64{101, 102} {
		course, err := f.catalog.UpsertCourse(domain.Course{TenantID: "t-1", LMSCourseID: lmsID, FullName: "Course"})
		require.NoError(t, err)
		require.NoError(t, f.catalog.LinkProductCourse("t-1", "p-1", course.ID))
	}
	return f
}

func makeProduct(id string) domain.Product {
	return domain.Product{
		ID:         id,
		TenantID:   "t-1",
		Title:      "Go Course Bundle",
		Currency:   "usd",
		PriceCents: 1999,
	}
}

func makeRequest() domain.FulfillmentRequest {
	return domain.FulfillmentRequest{
		TenantID:   "t-1",
		OrderID:    "ord-1",
		ProductID:  "p-1",
		BuyerEmail: "buyer@example.com",
		BuyerName:  "Ivan Petrov",
	}
}

func TestSagaFulfill_NewUserHappyPath(t *testing.T) {
	f := newSagaFixture(t)

	result := f.saga.Fulfill(context.Background(), makeRequest())

	assert.True(t, result.OK)
	assert.True(t, result.CreatedUser)
	assert.Equal(t, []int64{101, 102}, result.EnrolledCourses)
	assert.Empty(t, result.SkippedCourses)
	require.Len(t, f.lms.createdUsers, 1)
	assert.Equal(t, "buyer@example.com", f.lms.createdUsers[0].Email)

	// Роль студента при ручном зачислении
	for _, e := range f.lms.enrolled {
		assert.Equal(t, int64(domain.DefaultEnrolRoleID), e[2])
	}

	// Кэш email → LMS user заполнен
	id, err := f.users.Lookup("t-1", "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, result.LMSUserID, id)
}

func TestSagaFulfill_ExistingUserFromCache(t *testing.T) {
	f := newSagaFixture(t)
	require.NoError(t, f.users.Upsert(domain.UserMapping{TenantID: "t-1", Email: "buyer@example.com", LMSUserID: 77}))

	result := f.saga.Fulfill(context.Background(), makeRequest())

	assert.True(t, result.OK)
	assert.False(t, result.CreatedUser)
	assert.Equal(t, int64(77), result.LMSUserID)
	assert.Empty(t, f.lms.createdUsers)
}

func TestSagaFulfill_ExistingUserFoundInLMS(t *testing.T) {
	f := newSagaFixture(t)
	f.lms.usersByEmail["buyer@example.com"] = 55

	result := f.saga.Fulfill(context.Background(), makeRequest())

	assert.True(t, result.OK)
	assert.False(t, result.CreatedUser)
	assert.Equal(t, int64(55), result.LMSUserID)
	assert.Empty(t, f.lms.createdUsers)
}

func TestSagaFulfill_PartialFailureThenResume(t *testing.T) {
	f := newSagaFixture(t)
	f.lms.enrolErrs[102] = errors.New("course is locked")

	first := f.saga.Fulfill(context.Background(), makeRequest())
	assert.False(t, first.OK)
	assert.Equal(t, []int64{101}, first.EnrolledCourses)
	assert.Contains(t, first.Message, "course is locked")
	assert.False(t, first.ConfigError)

	attempts, err := f.enrollments.ListByOrder("ord-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, domain.EnrollmentStatusEnrolled, attempts[0].Status)
	assert.Equal(t, domain.EnrollmentStatusFailed, attempts[1].Status)
	assert.Contains(t, attempts[1].Error, "course is locked")

	// Повторный прогон продолжает с места обрыва
	delete(f.lms.enrolErrs, 102)
	f.lms.enrolled = nil

	second := f.saga.Fulfill(context.Background(), makeRequest())
	assert.True(t, second.OK)
	assert.Equal(t, []int64{102}, second.EnrolledCourses)
	assert.Equal(t, []int64{101}, second.SkippedCourses, "курс 101 уже зачислен и не трогается")
	require.Len(t, f.lms.enrolled, 1)
	assert.Equal(t, int64(102), f.lms.enrolled[0][1])
}

func TestSagaFulfill_LMSNotConfigured(t *testing.T) {
	f := newSagaFixture(t)
	_, err := f.tenants.Create(domain.Tenant{ID: "t-2", Name: "No LMS"}, "nolms.example")
	require.NoError(t, err)

	req := makeRequest()
	req.TenantID = "t-2"
	result := f.saga.Fulfill(context.Background(), req)

	assert.False(t, result.OK)
	assert.True(t, result.ConfigError)
}

func TestSagaFulfill_NoCoursesLinked(t *testing.T) {
	f := newSagaFixture(t)
	require.NoError(t, f.catalog.CreateProduct(makeProduct("p-empty")))

	req := makeRequest()
	req.ProductID = "p-empty"
	result := f.saga.Fulfill(context.Background(), req)

	assert.False(t, result.OK)
	assert.True(t, result.ConfigError)
	assert.Contains(t, result.Message, "no lms courses linked")
}

func TestSagaFulfill_MissingEmail(t *testing.T) {
	f := newSagaFixture(t)

	req := makeRequest()
	req.BuyerEmail = ""
	result := f.saga.Fulfill(context.Background(), req)

	assert.False(t, result.OK)
	assert.False(t, result.ConfigError, "отсутствие email может исправить redelivery")
	assert.Empty(t, f.lms.enrolled)
}

func TestSagaFulfill_CreateUserFails(t *testing.T) {
	f := newSagaFixture(t)
	f.lms.createErr = errors.New("username policy violation")

	result := f.saga.Fulfill(context.Background(), makeRequest())

	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "username policy violation")
	assert.Empty(t, f.lms.enrolled, "без пользователя зачисления не начинаются")
}

// Package fulfillment реализует сагу зачисления: после оплаты покупатель
// заводится в LMS арендатора и зачисляется на все курсы продукта.
// Прогресс фиксируется в checkpoint-журнале, поэтому повторный запуск
// (redelivery webhook, ручной retry) продолжает с места обрыва.
package fulfillment

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
	"github.com/vladislavdragonenkov/coursepay/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/coursepay/internal/metrics"
)

// EventPublisher публикует события саги во внешний брокер.
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// Saga оркестрирует зачисление покупателя по оплаченному заказу.
type Saga struct {
	tenants     domain.TenantRepository
	catalog     domain.CatalogRepository
	enrollments domain.EnrollmentRepository
	users       domain.UserMapRepository
	lms         domain.LMSFactory

	metrics   *metrics.FulfillmentMetrics
	publisher EventPublisher
	logger    *log.Entry
}

// New создаёт сагу с метриками в DefaultRegisterer.
func New(
	tenants domain.TenantRepository,
	catalog domain.CatalogRepository,
	enrollments domain.EnrollmentRepository,
	users domain.UserMapRepository,
	lmsFactory domain.LMSFactory,
) *Saga {
	s := NewWithoutMetrics(tenants, catalog, enrollments, users, lmsFactory)
	s.metrics = metrics.NewFulfillmentMetrics()
	return s
}

// NewWithoutMetrics создаёт сагу без метрик (для тестов).
func NewWithoutMetrics(
	tenants domain.TenantRepository,
	catalog domain.CatalogRepository,
	enrollments domain.EnrollmentRepository,
	users domain.UserMapRepository,
	lmsFactory domain.LMSFactory,
) *Saga {
	return &Saga{
		tenants:     tenants,
		catalog:     catalog,
		enrollments: enrollments,
		users:       users,
		lms:         lmsFactory,
		logger:      log.WithField("component", "fulfillment-saga"),
	}
}

// WithPublisher подключает публикацию событий саги в брокер.
// Публикация best-effort: отказ брокера не валит зачисление.
func (s *Saga) WithPublisher(p EventPublisher) *Saga {
	s.publisher = p
	return s
}

// Fulfill выполняет сагу для оплаченного заказа и возвращает
// структурированный итог. Ошибка конфигурации арендатора помечается
// отдельно: её не исправит повторная доставка события.
func (s *Saga) Fulfill(ctx context.Context, req domain.FulfillmentRequest) domain.FulfillmentResult {
	result := domain.FulfillmentResult{
		TenantID:        req.TenantID,
		ProductID:       req.ProductID,
		OrderID:         req.OrderID,
		Email:           req.BuyerEmail,
		EnrolledCourses: make([]int64, 0),
		SkippedCourses:  make([]int64, 0),
	}

	started := time.Now()
	if s.metrics != nil {
		s.metrics.RecordSagaStarted()
		defer func() {
			s.metrics.RecordSagaFinished()
			s.metrics.RecordSagaDuration(time.Since(started))
		}()
	}

	logger := s.logger.WithFields(log.Fields{
		"tenant_id": req.TenantID,
		"order_id":  req.OrderID,
	})

	tenant, err := s.tenants.Get(req.TenantID)
	if err != nil {
		return s.fail(logger, result, fmt.Sprintf("load tenant: %v", err), false)
	}
	if !tenant.LMSConfigured() {
		return s.fail(logger, result, domain.ErrLMSNotConfigured.Error(), true)
	}
	if req.BuyerEmail == "" {
		return s.fail(logger, result, "buyer email is unknown", false)
	}

	courseIDs, err := s.catalog.CourseIDsForProduct(req.TenantID, req.ProductID)
	if err != nil {
		return s.fail(logger, result, fmt.Sprintf("load product courses: %v", err), false)
	}
	if len(courseIDs) == 0 {
		return s.fail(logger, result, domain.ErrNoCoursesLinked.Error(), true)
	}

	s.publish(kafka.EventTypeFulfillmentStarted, result)

	client := s.lms(tenant.LMSBaseURL, tenant.LMSToken)

	userID, created, err := s.resolveUser(ctx, client, req)
	if err != nil {
		return s.fail(logger, result, fmt.Sprintf("resolve lms user: %v", err), false)
	}
	result.LMSUserID = userID
	result.CreatedUser = created
	if created && s.metrics != nil {
		s.metrics.RecordUserCreated()
	}

	enrolled, err := s.enrollments.EnrolledCourseIDs(req.OrderID)
	if err != nil {
		return s.fail(logger, result, fmt.Sprintf("load enrollment checkpoints: %v", err), false)
	}
	done := make(map[int64]bool, len(enrolled))
	for _, id := range enrolled {
		done[id] = true
	}
	if len(done) > 0 {
		logger.WithField("already_enrolled", len(done)).Info("resuming fulfillment with prior progress")
		if s.metrics != nil {
			s.metrics.RecordSagaResumed()
		}
	}

	for _, courseID := range courseIDs {
		if done[courseID] {
			result.SkippedCourses = append(result.SkippedCourses, courseID)
			if s.metrics != nil {
				s.metrics.RecordCourseSkipped()
			}
			continue
		}
		if err := s.enrolCourse(ctx, client, req, userID, courseID); err != nil {
			// Прерываемся на первой ошибке: уже записанные checkpoint'ы
			// позволят продолжить со следующего прогона.
			return s.fail(logger, result, fmt.Sprintf("enrol course %d: %v", courseID, err), false)
		}
		result.EnrolledCourses = append(result.EnrolledCourses, courseID)
		if s.metrics != nil {
			s.metrics.RecordCourseEnrolled()
		}
	}

	result.OK = true
	logger.WithFields(log.Fields{
		"lms_user_id": userID,
		"enrolled":    len(result.EnrolledCourses),
		"skipped":     len(result.SkippedCourses),
	}).Info("fulfillment completed")

	if s.metrics != nil {
		s.metrics.RecordSagaCompleted()
	}
	s.publish(kafka.EventTypeFulfillmentCompleted, result)
	return result
}

// resolveUser находит или создаёт пользователя LMS для покупателя.
// Порядок: локальный кэш, поиск по email в LMS, создание учётной записи.
func (s *Saga) resolveUser(ctx context.Context, client domain.LMSService, req domain.FulfillmentRequest) (int64, bool, error) {
	stepStarted := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordStepDuration("resolve_user", time.Since(stepStarted))
		}
	}()

	if id, err := s.users.Lookup(req.TenantID, req.BuyerEmail); err == nil && id != 0 {
		return id, false, nil
	}

	id, err := client.FindUserByEmail(ctx, req.BuyerEmail)
	if err != nil {
		return 0, false, err
	}

	created := false
	if id == 0 {
		id, err = client.CreateUser(ctx, NewLMSUser(req.BuyerEmail, req.BuyerName))
		if err != nil {
			return 0, false, err
		}
		created = true
	}

	// Кэш best-effort: промах на следующей покупке лишь добавит один
	// поиск по email.
	if err := s.users.Upsert(domain.UserMapping{
		TenantID:  req.TenantID,
		Email:     req.BuyerEmail,
		LMSUserID: id,
	}); err != nil {
		s.logger.WithError(err).WithField("tenant_id", req.TenantID).Warn("cache lms user mapping failed")
	}

	return id, created, nil
}

// enrolCourse зачисляет на один курс, фиксируя checkpoint до и после
// вызова LMS.
func (s *Saga) enrolCourse(ctx context.Context, client domain.LMSService, req domain.FulfillmentRequest, userID, courseID int64) error {
	stepStarted := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordStepDuration("enrol_course", time.Since(stepStarted))
		}
	}()

	attempt := domain.EnrollmentAttempt{
		TenantID:    req.TenantID,
		OrderID:     req.OrderID,
		LMSCourseID: courseID,
		LMSUserID:   userID,
		Status:      domain.EnrollmentStatusAttempt,
	}
	if err := s.enrollments.Upsert(attempt); err != nil {
		return fmt.Errorf("record attempt checkpoint: %w", err)
	}

	if err := client.EnrolUser(ctx, userID, courseID, domain.DefaultEnrolRoleID); err != nil {
		attempt.Status = domain.EnrollmentStatusFailed
		attempt.Error = domain.TruncateEnrollmentError(err.Error())
		if upsertErr := s.enrollments.Upsert(attempt); upsertErr != nil {
			s.logger.WithError(upsertErr).WithField("order_id", req.OrderID).Error("record failed checkpoint")
		}
		return err
	}

	attempt.Status = domain.EnrollmentStatusEnrolled
	attempt.Error = ""
	if err := s.enrollments.Upsert(attempt); err != nil {
		return fmt.Errorf("record enrolled checkpoint: %w", err)
	}
	return nil
}

func (s *Saga) fail(logger *log.Entry, result domain.FulfillmentResult, message string, configError bool) domain.FulfillmentResult {
	logger.WithField("config_error", configError).Warn("fulfillment failed: " + message)
	if s.metrics != nil {
		s.metrics.RecordSagaFailed()
	}
	if configError {
		result = result.ConfigFailure(message)
	} else {
		result = result.Failure(message)
	}
	s.publish(kafka.EventTypeFulfillmentFailed, result)
	return result
}

func (s *Saga) publish(eventType kafka.EventType, result domain.FulfillmentResult) {
	if s.publisher == nil {
		return
	}

	event := kafka.NewFulfillmentEvent(eventType, result.TenantID, result.OrderID)
	event.ProductID = result.ProductID
	event.LMSUserID = result.LMSUserID
	event.EnrolledCourses = result.EnrolledCourses
	event.Message = result.Message

	if err := s.publisher.PublishEvent(kafka.TopicFulfillmentEvents, result.OrderID, event); err != nil {
		s.logger.WithError(err).WithField("order_id", result.OrderID).Warn("publish fulfillment event failed")
	}
}

package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

type attemptKey struct {
	orderID     string
	lmsCourseID int64
}

// enrollmentRepositoryInMemory — in-memory checkpoint-журнал саги.
type enrollmentRepositoryInMemory struct {
	mu       sync.RWMutex
	attempts map[attemptKey]domain.EnrollmentAttempt
}

// NewEnrollmentRepository возвращает in-memory журнал зачислений.
func NewEnrollmentRepository() domain.EnrollmentRepository {
	return &enrollmentRepositoryInMemory{
		attempts: make(map[attemptKey]domain.EnrollmentAttempt),
	}
}

// Upsert обновляет попытку по ключу (order, LMS course). Ненулевой
// LMSUserID новой записи имеет приоритет, иначе сохраняется старый.
func (r *enrollmentRepositoryInMemory) Upsert(a domain.EnrollmentAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := attemptKey{orderID: a.OrderID, lmsCourseID: a.LMSCourseID}
	a.Error = domain.TruncateEnrollmentError(a.Error)

	if existing, ok := r.attempts[key]; ok {
		existing.Status = a.Status
		existing.Error = a.Error
		if a.LMSUserID != 0 {
			existing.LMSUserID = a.LMSUserID
		}
		r.attempts[key] = existing
		return nil
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.attempts[key] = a
	return nil
}

func (r *enrollmentRepositoryInMemory) EnrolledCourseIDs(orderID string) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0)
	for key, a := range r.attempts {
		if key.orderID == orderID && a.Status == domain.EnrollmentStatusEnrolled {
			ids = append(ids, a.LMSCourseID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *enrollmentRepositoryInMemory) ListByOrder(orderID string) ([]domain.EnrollmentAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.EnrollmentAttempt, 0)
	for key, a := range r.attempts {
		if key.orderID == orderID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LMSCourseID < out[j].LMSCourseID })
	return out, nil
}

var _ domain.EnrollmentRepository = (*enrollmentRepositoryInMemory)(nil)

package domain

import "time"

// EnrollmentStatus описывает состояние одной попытки зачисления (order, course).
type EnrollmentStatus string

const (
	// EnrollmentStatusAttempt — checkpoint записан, вызов LMS ещё выполняется.
	EnrollmentStatusAttempt EnrollmentStatus = "attempt"
	// EnrollmentStatusEnrolled — зачисление в LMS подтверждено.
	EnrollmentStatusEnrolled EnrollmentStatus = "enrolled"
	// EnrollmentStatusFailed — вызов LMS завершился ошибкой; текст сохранён.
	EnrollmentStatusFailed EnrollmentStatus = "failed"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusAttempt, EnrollmentStatusEnrolled, EnrollmentStatusFailed:
		return true
	default:
		return false
	}
}

// EnrollmentErrorLimit ограничивает длину сохраняемого текста ошибки.
const EnrollmentErrorLimit = 2000

// TruncateEnrollmentError обрезает текст ошибки до допустимой длины.
func TruncateEnrollmentError(msg string) string {
	if len(msg) > EnrollmentErrorLimit {
		return msg[:EnrollmentErrorLimit]
	}
	return msg
}

// EnrollmentAttempt — checkpoint-журнал саги зачисления: одна строка на
// пару (order, курс LMS). Уникальность по (OrderID, LMSCourseID); повторная
// попытка делает upsert, а не дубликат. Пишется только сагой.
type EnrollmentAttempt struct {
	ID          string
	TenantID    string
	OrderID     string
	LMSCourseID int64
	// LMSUserID — идентификатор пользователя в LMS; 0, пока неизвестен.
	LMSUserID int64
	Status    EnrollmentStatus
	Error     string
	CreatedAt time.Time
}

// UserMapping — кэш соответствия email покупателя → пользователь LMS,
// чтобы повторные покупки не создавали новые учётные записи.
// Уникальность по (TenantID, Email).
type UserMapping struct {
	TenantID  string
	Email     string
	LMSUserID int64
	CreatedAt time.Time
}

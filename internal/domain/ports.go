package domain

import "context"

// DefaultEnrolRoleID — роль "student" в LMS, используется при ручном зачислении.
const DefaultEnrolRoleID = 5

// LMSUser — параметры создаваемой учётной записи LMS.
type LMSUser struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
}

// LMSSiteInfo — ответ LMS на запрос информации о площадке (connectivity test).
type LMSSiteInfo struct {
	SiteName string
	Release  string
	UserID   int64
	Username string
}

// LMSCourse — курс, как его отдаёт LMS.
type LMSCourse struct {
	ID       int64
	FullName string
	Summary  string
}

// LMSService описывает удалённые операции LMS, нужные саге зачисления
// и синхронизации каталога. Адаптер не делает retry: политика повторов
// принадлежит вызывающему, у которого есть checkpoint-журнал.
type LMSService interface {
	// SiteInfo проверяет связность и валидность токена.
	SiteInfo(ctx context.Context) (LMSSiteInfo, error)
	// FindUserByEmail возвращает id пользователя или 0, если его нет.
	FindUserByEmail(ctx context.Context, email string) (int64, error)
	// CreateUser заводит учётную запись и возвращает её id.
	CreateUser(ctx context.Context, user LMSUser) (int64, error)
	// EnrolUser вручную зачисляет пользователя на курс с указанной ролью.
	EnrolUser(ctx context.Context, userID, courseID, roleID int64) error
	// ListCourses возвращает все курсы площадки для синхронизации зеркала.
	ListCourses(ctx context.Context) ([]LMSCourse, error)
}

// LMSFactory строит клиента LMS под конкретного арендатора.
// Конфигурация перечитывается на каждую операцию, поэтому клиент
// создаётся по требованию, а не кэшируется.
type LMSFactory func(baseURL, token string) LMSService

// CheckoutSessionParams — параметры hosted-сессии оплаты.
// OrderID кодируется и в metadata, и в client reference: webhook-обработчик
// обязан принять любой из двух вариантов.
type CheckoutSessionParams struct {
	SecretKey string

	TenantID  string
	OrderID   string
	ProductID string

	Title       string
	Description string
	ImageURL    string

	Currency        string
	UnitAmountCents int64

	CustomerEmail string
	ReturnURL     string
}

// CheckoutSession — результат создания hosted-сессии.
type CheckoutSession struct {
	ID           string
	ClientSecret string
}

// PaymentGateway описывает взаимодействие с платёжным провайдером.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (CheckoutSession, error)
}

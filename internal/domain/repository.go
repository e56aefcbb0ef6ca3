package domain

// TenantRepository описывает требования к хранилищу арендаторов.
type TenantRepository interface {
	// Create сохраняет нового арендатора и привязывает первичный хост.
	// Возвращает ErrDomainTaken, если хост уже занят.
	Create(t Tenant, host string) (Tenant, error)
	// Get возвращает арендатора по идентификатору или ErrTenantNotFound.
	Get(id string) (Tenant, error)
	// ResolveHost сопоставляет нормализованный хост с tenant id.
	// Сначала проверяется реестр доменов, затем поле domain арендатора.
	ResolveHost(host string) (string, error)
	// PrimaryHost возвращает публичный хост арендатора для return URL.
	PrimaryHost(tenantID string) (string, error)
	// UpdateIntegrations обновляет секреты интеграций арендатора.
	UpdateIntegrations(t Tenant) error
	// RecordWebhookVerified фиксирует успешную проверку подписи webhook.
	RecordWebhookVerified(h WebhookHealth) error
}

// CatalogRepository описывает хранилище продуктов, курсов-зеркал и их связей.
type CatalogRepository interface {
	CreateProduct(p Product) error
	GetProduct(tenantID, productID string) (Product, error)
	// UpsertCourse обновляет зеркало курса по ключу (tenant, LMSCourseID).
	UpsertCourse(c Course) (Course, error)
	ListCourses(tenantID string) ([]Course, error)
	// LinkProductCourse связывает продукт с курсом-зеркалом; повторная связь — no-op.
	LinkProductCourse(tenantID, productID, courseID string) error
	// CourseIDsForProduct возвращает уникальные LMS course id связанных курсов
	// по возрастанию — порядок обхода саги детерминирован.
	CourseIDsForProduct(tenantID, productID string) ([]int64, error)
}

// OrderRepository описывает требования к хранилищу заказов.
// Переходы статусов инкапсулированы в методах Mark*, чтобы guard-условия
// состояний применялись атомарно на стороне хранилища.
type OrderRepository interface {
	// Create сохраняет новый заказ в статусе pending.
	Create(o Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id string) (Order, error)
	// SetStripeSession сохраняет внешний session id, скоупируя запись
	// по арендатору, чтобы исключить межарендные перезаписи.
	SetStripeSession(tenantID, orderID, sessionID string) error
	// MarkPaid переводит заказ в paid. Guard: fulfilled не понижается.
	// Дозаполняет buyer email (если он был пуст) и обновляет сумму
	// (если totalCents > 0 и отличается). Возвращает заказ после апдейта.
	MarkPaid(orderID, buyerEmail string, totalCents int64) (Order, error)
	// MarkFulfilled переводит paid → fulfilled. Повторный вызов для
	// fulfilled-заказа — no-op; иначе из не-paid статуса — ErrOrderNotPaid.
	MarkFulfilled(orderID string) error
	// MarkExpired помечает заказ по (tenant, session id) как expired.
	// Guard: никогда не срабатывает для paid/fulfilled/expired.
	// Возвращает true, если заказ был помечен.
	MarkExpired(tenantID, sessionID string) (bool, error)
}

// EnrollmentRepository — checkpoint-журнал саги.
type EnrollmentRepository interface {
	// Upsert записывает попытку по ключу (order, LMS course), обновляя
	// статус/ошибку существующей строки вместо дубликата.
	Upsert(a EnrollmentAttempt) error
	// EnrolledCourseIDs возвращает курсы заказа со статусом enrolled —
	// их сага пропускает при повторном прогоне.
	EnrolledCourseIDs(orderID string) ([]int64, error)
	ListByOrder(orderID string) ([]EnrollmentAttempt, error)
}

// UserMapRepository хранит кэш email → LMS user id.
type UserMapRepository interface {
	Upsert(m UserMapping) error
	// Lookup возвращает LMS user id или ErrUserMappingNotFound.
	Lookup(tenantID, email string) (int64, error)
}

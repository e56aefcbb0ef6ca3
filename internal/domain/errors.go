package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора арендатора.
	ErrTenantRequired = errors.New("tenant_id is required")
	// Ошибка отсутствующего идентификатора продукта.
	ErrProductRequired = errors.New("product_id is required")
	// Ошибка отсутствующего заголовка продукта.
	ErrTitleRequired = errors.New("product title is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отрицательной цены.
	ErrPriceInvalid = errors.New("price must be non-negative")
	// Ошибка скидки, не меньшей базовой цены.
	ErrDiscountNotLower = errors.New("discount price must be strictly less than base price")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("total_cents must be non-negative")
	// Ошибка суммы ниже минимума платёжного провайдера.
	ErrAmountTooSmall = errors.New("charge amount is below provider minimum")
	// Ошибка недопустимого статуса заказа.
	ErrOrderStatusInvalid = errors.New("order status is not supported")

	// ErrTenantNotFound возвращается, если арендатор не найден.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если продукт не найден у арендатора.
	ErrProductNotFound = errors.New("product not found")
	// ErrCourseNotFound возвращается, если курс-зеркало не найден.
	ErrCourseNotFound = errors.New("course not found")
	// ErrUserMappingNotFound возвращается при промахе кэша email → LMS user.
	ErrUserMappingNotFound = errors.New("user mapping not found")
	// ErrDomainTaken возвращается при попытке занять уже привязанный хост.
	ErrDomainTaken = errors.New("domain already in use")
	// ErrOrderNotPaid сигнализирует о попытке fulfilled-перехода не из paid.
	ErrOrderNotPaid = errors.New("order is not in paid status")

	// Ошибки конфигурации арендатора: не лечатся повторной доставкой webhook.
	ErrStripeNotConfigured  = errors.New("stripe is not configured for tenant")
	ErrWebhookNotConfigured = errors.New("stripe webhook secret is not configured for tenant")
	ErrLMSNotConfigured     = errors.New("lms is not configured for tenant")
	ErrTenantHostMissing    = errors.New("tenant has no registered host")
	ErrNoCoursesLinked      = errors.New("no lms courses linked to product")
)

// IsConfigurationError проверяет, относится ли ошибка к конфигурации арендатора.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrStripeNotConfigured) ||
		errors.Is(err, ErrWebhookNotConfigured) ||
		errors.Is(err, ErrLMSNotConfigured) ||
		errors.Is(err, ErrTenantHostMissing) ||
		errors.Is(err, ErrNoCoursesLinked)
}

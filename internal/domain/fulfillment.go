package domain

// FulfillmentRequest — вход саги зачисления.
type FulfillmentRequest struct {
	TenantID   string
	OrderID    string
	ProductID  string
	BuyerEmail string
	// BuyerName — отображаемое имя из платёжной формы; может быть пустым.
	BuyerName string
}

// FulfillmentResult — структурированный итог саги.
// При частичном провале EnrolledCourses содержит курсы, зачисленные до
// первой ошибки, а Message описывает её.
type FulfillmentResult struct {
	OK        bool   `json:"ok"`
	TenantID  string `json:"tenant_id"`
	ProductID string `json:"product_id"`
	OrderID   string `json:"order_id"`
	Email     string `json:"email,omitempty"`

	LMSUserID   int64 `json:"moodle_user_id,omitempty"`
	CreatedUser bool  `json:"created_user"`

	EnrolledCourses []int64 `json:"enrolled_courses"`
	SkippedCourses  []int64 `json:"skipped_courses"`

	Message string `json:"message,omitempty"`
	// ConfigError отмечает ошибки конфигурации арендатора: повторная
	// доставка webhook их не исправит, нужен админ арендатора.
	ConfigError bool `json:"-"`
}

// failure формирует неуспешный результат, сохраняя прогресс саги.
func (r FulfillmentResult) failure(message string, configError bool) FulfillmentResult {
	r.OK = false
	r.Message = message
	r.ConfigError = configError
	return r
}

// Failure возвращает копию результата с признаком неуспеха и сообщением.
func (r FulfillmentResult) Failure(message string) FulfillmentResult {
	return r.failure(message, false)
}

// ConfigFailure возвращает копию результата с признаком ошибки конфигурации.
func (r FulfillmentResult) ConfigFailure(message string) FulfillmentResult {
	return r.failure(message, true)
}

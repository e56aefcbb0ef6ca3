package domain

import (
	"regexp"
	"strings"
	"time"
)

// Tenant — корень мультиарендности: школа/бизнес со своим доменом,
// интеграцией с LMS и собственными ключами Stripe.
type Tenant struct {
	ID     string
	Name   string
	Domain string

	// Интеграция с LMS (Moodle-совместимый web service).
	LMSBaseURL string
	LMSToken   string

	// Ключи Stripe. WebhookSecret используется для проверки подписи
	// входящих событий и уникален для каждого арендатора.
	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string

	CreatedAt time.Time
}

// LMSConfigured сообщает, настроена ли интеграция с LMS.
func (t Tenant) LMSConfigured() bool {
	return strings.TrimSpace(t.LMSBaseURL) != "" && strings.TrimSpace(t.LMSToken) != ""
}

// WebhookConfigured сообщает, задан ли секрет подписи webhook-событий.
func (t Tenant) WebhookConfigured() bool {
	return strings.TrimSpace(t.StripeWebhookSecret) != ""
}

// WebhookHealth фиксирует последнее успешно проверенное webhook-событие арендатора.
// Секретов не содержит; запись best-effort.
type WebhookHealth struct {
	TenantID       string
	LastVerifiedAt time.Time
	LastEventType  string
	LastEventID    string
	LastSessionID  string
}

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// NormalizeHost приводит значение хоста к каноническому виду для lookup:
// без схемы, пути, порта и в нижнем регистре.
// "https://School.com:443/x" → "school.com".
func NormalizeHost(host string) string {
	h := strings.TrimSpace(strings.ToLower(host))
	h = schemePattern.ReplaceAllString(h, "")
	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}
	if i := strings.LastIndex(h, ":"); i >= 0 {
		h = h[:i]
	}
	return strings.TrimSuffix(h, ".")
}

// Package webhook обрабатывает входящие события Stripe.
//
// Endpoint общий для всех арендаторов, а секрет подписи у каждого свой,
// поэтому проверка двухфазная: из непроверенного тела извлекается order id,
// по заказу находится арендатор и его секрет, затем подпись проверяется
// заново и все поля перечитываются уже из верифицированного события.
// До успешной проверки подписи данные тела считаются недоверенными.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
	"github.com/vladislavdragonenkov/coursepay/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/coursepay/internal/metrics"
)

const (
	eventCheckoutCompleted = "checkout.session.completed"
	eventCheckoutExpired   = "checkout.session.expired"

	paymentStatusPaid = "paid"
)

// Outcome — итог обработки события.
type Outcome string

const (
	// OutcomeFulfilled — оплата учтена и сага зачисления завершилась успехом.
	OutcomeFulfilled Outcome = "fulfilled"
	// OutcomeAccepted — событие подлинное и принято, но обработка не
	// завершена: сага или хранилище отказали, либо это не-доставочное
	// событие вроде expiry. Stripe получает 200.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeIgnored — подлинное событие, по которому делать нечего.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeRejected — подпись не прошла проверку или тело не читается.
	OutcomeRejected Outcome = "rejected"
)

// Result — итог обработки одного события.
type Result struct {
	Outcome  Outcome
	Reason   string
	TenantID string
	OrderID  string

	Fulfillment *domain.FulfillmentResult
}

// Rejected сообщает, должен ли HTTP-слой вернуть ошибку, чтобы Stripe
// повторил доставку.
func (r Result) Rejected() bool {
	return r.Outcome == OutcomeRejected
}

// Fulfiller запускает сагу зачисления для оплаченного заказа.
type Fulfiller interface {
	Fulfill(ctx context.Context, req domain.FulfillmentRequest) domain.FulfillmentResult
}

// EventPublisher публикует события заказа во внешний брокер.
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// Processor — пайплайн обработки входящих Stripe-событий.
type Processor struct {
	tenants domain.TenantRepository
	orders  domain.OrderRepository
	saga    Fulfiller

	metrics   *metrics.WebhookMetrics
	publisher EventPublisher
	logger    *log.Entry
}

// NewProcessor создаёт пайплайн с метриками в DefaultRegisterer.
func NewProcessor(tenants domain.TenantRepository, orders domain.OrderRepository, saga Fulfiller) *Processor {
	p := NewProcessorWithoutMetrics(tenants, orders, saga)
	p.metrics = metrics.NewWebhookMetrics()
	return p
}

// NewProcessorWithoutMetrics создаёт пайплайн без метрик (для тестов).
func NewProcessorWithoutMetrics(tenants domain.TenantRepository, orders domain.OrderRepository, saga Fulfiller) *Processor {
	return &Processor{
		tenants: tenants,
		orders:  orders,
		saga:    saga,
		logger:  log.WithField("component", "webhook-processor"),
	}
}

// WithPublisher подключает публикацию событий заказа в брокер.
func (p *Processor) WithPublisher(pub EventPublisher) *Processor {
	p.publisher = pub
	return p
}

// sessionPayload — представление checkout-сессии из тела события.
// Разбирается дважды: до и после проверки подписи.
type sessionPayload struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	PaymentStatus     string            `json:"payment_status"`
	AmountTotal       int64             `json:"amount_total"`
	CustomerEmail     string            `json:"customer_email"`
	Metadata          map[string]string `json:"metadata"`
	CustomerDetails   struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer_details"`
}

// orderID возвращает идентификатор заказа: metadata имеет приоритет,
// client_reference_id — запасной канал.
func (s sessionPayload) orderID() string {
	if id := s.Metadata["order_id"]; id != "" {
		return id
	}
	return s.ClientReferenceID
}

// buyerEmail предпочитает email из платёжной формы полю customer_email.
func (s sessionPayload) buyerEmail() string {
	if s.CustomerDetails.Email != "" {
		return s.CustomerDetails.Email
	}
	return s.CustomerEmail
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object sessionPayload `json:"object"`
	} `json:"data"`
}

// Process проверяет и обрабатывает одно событие Stripe.
func (p *Processor) Process(ctx context.Context, payload []byte, sigHeader string) Result {
	started := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordDuration(time.Since(started))
		}
	}()

	result := p.process(ctx, payload, sigHeader)
	if p.metrics != nil {
		p.metrics.RecordOutcome(string(result.Outcome))
	}
	return result
}

func (p *Processor) process(ctx context.Context, payload []byte, sigHeader string) Result {
	// Фаза 1: недоверенный разбор, только чтобы найти арендатора.
	var untrusted eventEnvelope
	if err := json.Unmarshal(payload, &untrusted); err != nil {
		return Result{Outcome: OutcomeRejected, Reason: "malformed event payload"}
	}

	switch untrusted.Type {
	case eventCheckoutCompleted, eventCheckoutExpired:
	default:
		return Result{Outcome: OutcomeIgnored, Reason: "event type not handled"}
	}

	claimedOrderID := untrusted.Data.Object.orderID()
	if claimedOrderID == "" {
		return Result{Outcome: OutcomeIgnored, Reason: "event carries no order reference"}
	}

	order, err := p.orders.Get(claimedOrderID)
	if err != nil {
		return Result{Outcome: OutcomeIgnored, Reason: "order not found", OrderID: claimedOrderID}
	}

	tenant, err := p.tenants.Get(order.TenantID)
	if err != nil {
		return Result{Outcome: OutcomeIgnored, Reason: "tenant not found", OrderID: order.ID}
	}
	if !tenant.WebhookConfigured() {
		// Без секрета проверить подпись нечем. Событие подтверждается,
		// иначе Stripe будет доставлять его до истечения retry-окна.
		return Result{
			Outcome:  OutcomeIgnored,
			Reason:   domain.ErrWebhookNotConfigured.Error(),
			TenantID: tenant.ID,
			OrderID:  order.ID,
		}
	}

	// Фаза 2: криптографическая проверка секретом найденного арендатора.
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, tenant.StripeWebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		p.logger.WithError(err).WithField("tenant_id", tenant.ID).Warn("webhook signature verification failed")
		if p.metrics != nil {
			p.metrics.RecordSignatureFailure()
		}
		return Result{Outcome: OutcomeRejected, Reason: "signature verification failed", TenantID: tenant.ID}
	}

	// Все поля перечитываются из верифицированного события; данные
	// первой фазы дальше не используются.
	var session sessionPayload
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return Result{Outcome: OutcomeRejected, Reason: "malformed session object", TenantID: tenant.ID}
	}
	if session.orderID() != order.ID {
		// Подписанное событие ссылается на другой заказ: фаза 1 читала
		// подменённое тело.
		return Result{Outcome: OutcomeIgnored, Reason: "order reference mismatch", TenantID: tenant.ID}
	}

	p.recordVerified(tenant.ID, string(event.Type), event.ID, session.ID)

	base := Result{TenantID: tenant.ID, OrderID: order.ID}
	switch string(event.Type) {
	case eventCheckoutCompleted:
		return p.handleCompleted(ctx, base, order, session)
	case eventCheckoutExpired:
		return p.handleExpired(base, order, session)
	default:
		base.Outcome = OutcomeIgnored
		base.Reason = "event type not handled"
		return base
	}
}

// handleCompleted учитывает оплату и запускает сагу зачисления.
func (p *Processor) handleCompleted(ctx context.Context, result Result, order domain.Order, session sessionPayload) Result {
	if order.Status == domain.OrderStatusFulfilled {
		// Повторная доставка по закрытому заказу: ни одного побочного
		// эффекта, сага не перезапускается.
		result.Outcome = OutcomeIgnored
		result.Reason = "order already fulfilled"
		return result
	}
	if session.PaymentStatus != paymentStatusPaid {
		// Отложенные методы оплаты присылают completed до захвата денег;
		// зачисление начинается только с payment_status=paid.
		result.Outcome = OutcomeIgnored
		result.Reason = fmt.Sprintf("payment status is %q", session.PaymentStatus)
		return result
	}
	if order.StripeSessionID != "" && order.StripeSessionID != session.ID {
		result.Outcome = OutcomeIgnored
		result.Reason = "session does not match order"
		return result
	}

	updated, err := p.orders.MarkPaid(order.ID, session.buyerEmail(), session.AmountTotal)
	if err != nil {
		// Отказ хранилища не повод для 4xx/5xx: событие подлинное,
		// redelivery повторит запись.
		result.Outcome = OutcomeAccepted
		result.Reason = fmt.Sprintf("mark order paid: %v", err)
		return result
	}
	p.publishOrderEvent(kafka.EventTypeOrderPaid, updated)

	fulfillment := p.saga.Fulfill(ctx, domain.FulfillmentRequest{
		TenantID:   updated.TenantID,
		OrderID:    updated.ID,
		ProductID:  updated.ProductID,
		BuyerEmail: firstNonEmpty(session.buyerEmail(), updated.BuyerEmail),
		BuyerName:  session.CustomerDetails.Name,
	})
	result.Fulfillment = &fulfillment

	if !fulfillment.OK {
		// Оплата учтена, зачисление не завершено. Отвечаем 200:
		// redelivery продолжит сагу по checkpoint-журналу, а ошибки
		// конфигурации всё равно не лечатся повтором.
		result.Outcome = OutcomeAccepted
		result.Reason = fulfillment.Message
		return result
	}

	if err := p.orders.MarkFulfilled(updated.ID); err != nil {
		p.logger.WithError(err).WithField("order_id", updated.ID).Error("mark order fulfilled failed")
		result.Outcome = OutcomeAccepted
		result.Reason = fmt.Sprintf("mark order fulfilled: %v", err)
		return result
	}

	result.Outcome = OutcomeFulfilled
	return result
}

// handleExpired закрывает неоплаченный заказ по истёкшей сессии.
func (p *Processor) handleExpired(result Result, order domain.Order, session sessionPayload) Result {
	marked, err := p.orders.MarkExpired(order.TenantID, session.ID)
	if err != nil {
		result.Outcome = OutcomeAccepted
		result.Reason = fmt.Sprintf("mark order expired: %v", err)
		return result
	}
	if !marked {
		// Заказ уже оплачен или закрыт; гонка expiry всегда проигрывает.
		result.Outcome = OutcomeIgnored
		result.Reason = "order is not pending"
		return result
	}

	order.Status = domain.OrderStatusExpired
	p.publishOrderEvent(kafka.EventTypeOrderExpired, order)

	result.Outcome = OutcomeAccepted
	result.Reason = "order expired"
	return result
}

// recordVerified фиксирует здоровье webhook-канала арендатора; ошибки
// записи не влияют на обработку события.
func (p *Processor) recordVerified(tenantID, eventType, eventID, sessionID string) {
	err := p.tenants.RecordWebhookVerified(domain.WebhookHealth{
		TenantID:      tenantID,
		LastEventType: eventType,
		LastEventID:   eventID,
		LastSessionID: sessionID,
	})
	if err != nil {
		p.logger.WithError(err).WithField("tenant_id", tenantID).Warn("record webhook health failed")
	}
}

func (p *Processor) publishOrderEvent(eventType kafka.EventType, order domain.Order) {
	if p.publisher == nil {
		return
	}

	event := kafka.NewFulfillmentEvent(eventType, order.TenantID, order.ID)
	event.ProductID = order.ProductID
	if err := p.publisher.PublishEvent(kafka.TopicFulfillmentEvents, order.ID, event); err != nil {
		p.logger.WithError(err).WithField("order_id", order.ID).Warn("publish order event failed")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

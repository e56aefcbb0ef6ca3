package kafka

import "time"

// EventType определяет тип события.
type EventType string

const (
	// События саги зачисления
	EventTypeFulfillmentStarted   EventType = "fulfillment.started"
	EventTypeFulfillmentCompleted EventType = "fulfillment.completed"
	EventTypeFulfillmentFailed    EventType = "fulfillment.failed"

	// События заказа
	EventTypeOrderPaid    EventType = "order.paid"
	EventTypeOrderExpired EventType = "order.expired"
)

// Topics для Kafka.
const (
	TopicFulfillmentEvents = "coursepay.fulfillment.events"
)

// FulfillmentEvent представляет событие саги зачисления.
// Партиционирование по order id сохраняет порядок событий одного заказа.
type FulfillmentEvent struct {
	EventType EventType `json:"event_type"`
	TenantID  string    `json:"tenant_id"`
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	LMSUserID       int64   `json:"lms_user_id,omitempty"`
	EnrolledCourses []int64 `json:"enrolled_courses,omitempty"`
	Message         string  `json:"message,omitempty"`
}

// NewFulfillmentEvent создает новое событие саги.
func NewFulfillmentEvent(eventType EventType, tenantID, orderID string) *FulfillmentEvent {
	return &FulfillmentEvent{
		EventType: eventType,
		TenantID:  tenantID,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
	}
}

package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFulfillmentEvent(t *testing.T) {
	event := NewFulfillmentEvent(EventTypeFulfillmentCompleted, "t-1", "ord-1")

	assert.Equal(t, EventTypeFulfillmentCompleted, event.EventType)
	assert.Equal(t, "t-1", event.TenantID)
	assert.Equal(t, "ord-1", event.OrderID)
	assert.False(t, event.Timestamp.IsZero())
}

package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCheckoutEvent(t *testing.T) {
	payload := []byte(`{
		"eventType": "checkout.completed",
		"object": {
			"id": "ch_123",
			"customer": {"email": "user@typix.test"},
			"product": {"id": "prod_14WmWICabykLJ50OMzjDp9"},
			"order": {
				"id": "ord_456",
				"transaction": "tx_789",
				"amount_paid": 1000,
				"currency": "USD",
				"type": "recurring"
			},
			"subscription": {
				"current_period_start_date": "2024-03-01T00:00:00Z",
				"current_period_end_date": "2024-04-01T00:00:00Z"
			}
		}
	}`)

	event, err := ParseCheckoutEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "checkout.completed", event.EventType)
	assert.Equal(t, "user@typix.test", event.CustomerEmail)
	assert.Equal(t, "prod_14WmWICabykLJ50OMzjDp9", event.ProductID)
	assert.Equal(t, "ch_123", event.CheckoutSessionID)
	assert.Equal(t, "ord_456", event.ProviderOrderID)
	assert.Equal(t, "tx_789", event.TransactionID)
	assert.Equal(t, 1000.0, event.AmountPaid)
	assert.Equal(t, "recurring", event.OrderType)
	require.NotNil(t, event.PeriodStart)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), event.PeriodStart.UTC())
	require.NotNil(t, event.PeriodEnd)
}

func TestParseCheckoutEventTolerantOfMissingFields(t *testing.T) {
	event, err := ParseCheckoutEvent([]byte(`{"eventType":"checkout.completed","object":{}}`))
	require.NoError(t, err)
	assert.Empty(t, event.CustomerEmail)
	assert.Zero(t, event.AmountPaid)
	assert.Nil(t, event.PeriodStart)
	assert.Nil(t, event.PeriodEnd)
}

func TestParseCheckoutEventRejectsMalformedJSON(t *testing.T) {
	_, err := ParseCheckoutEvent([]byte(`{"eventType":`))
	assert.Error(t, err)
}

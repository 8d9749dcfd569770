package billing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func makeEvent(t *testing.T, eventType string, payload string) stripe.Event {
	t.Helper()
	return stripe.Event{
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(payload)},
	}
}

func TestClassifyCheckoutCompleted(t *testing.T) {
	event := makeEvent(t, "checkout.session.completed", `{
		"subscription": "sub_123",
		"customer_email": "  User@Example.COM ",
		"customer_details": {"email": "other@example.com"}
	}`)

	got := ClassifyEvent(event)
	assert.Equal(t, KindCheckoutCompleted, got.Kind)
	assert.Equal(t, "sub_123", got.SubscriptionID)
	assert.Equal(t, "active", got.Status)
	require.NotNil(t, got.CustomerEmail)
	assert.Equal(t, "user@example.com", *got.CustomerEmail)
}

func TestClassifyCheckoutFallsBackToCustomerDetails(t *testing.T) {
	event := makeEvent(t, "checkout.session.completed", `{
		"subscription": "sub_123",
		"customer_details": {"email": "details@example.com"}
	}`)

	got := ClassifyEvent(event)
	require.NotNil(t, got.CustomerEmail)
	assert.Equal(t, "details@example.com", *got.CustomerEmail)
}

func TestClassifyCheckoutWithoutSubscriptionIgnored(t *testing.T) {
	event := makeEvent(t, "checkout.session.completed", `{"customer_email": "x@example.com"}`)
	assert.Equal(t, KindIgnored, ClassifyEvent(event).Kind)
}

func TestClassifySubscriptionChange(t *testing.T) {
	event := makeEvent(t, "customer.subscription.updated", `{
		"id": "sub_456",
		"status": "past_due",
		"current_period_end": 1767225600,
		"customer": "cus_789",
		"metadata": {"email": "meta@example.com"}
	}`)

	got := ClassifyEvent(event)
	assert.Equal(t, KindSubscriptionChange, got.Kind)
	assert.Equal(t, "sub_456", got.SubscriptionID)
	assert.Equal(t, "past_due", got.Status)
	assert.Equal(t, "cus_789", got.CustomerID)
	require.NotNil(t, got.CustomerEmail)
	assert.Equal(t, "meta@example.com", *got.CustomerEmail)
	require.NotNil(t, got.CurrentPeriodEnd)
	assert.Equal(t, "2026-01-01T00:00:00Z", *got.CurrentPeriodEnd)
}

func TestClassifySubscriptionDeletedDefaults(t *testing.T) {
	event := makeEvent(t, "customer.subscription.deleted", `{"id": "sub_456"}`)

	got := ClassifyEvent(event)
	assert.Equal(t, KindSubscriptionChange, got.Kind)
	assert.Equal(t, "unknown", got.Status)
	assert.Nil(t, got.CustomerEmail)
	assert.Nil(t, got.CurrentPeriodEnd)
}

func TestClassifyUnhandledType(t *testing.T) {
	event := makeEvent(t, "invoice.paid", `{"id": "in_1"}`)
	got := ClassifyEvent(event)
	assert.Equal(t, KindIgnored, got.Kind)
	assert.Equal(t, "invoice.paid", got.SourceType)
}

func TestClassifyMalformedPayloadIgnored(t *testing.T) {
	event := makeEvent(t, "customer.subscription.updated", `not json`)
	assert.Equal(t, KindIgnored, ClassifyEvent(event).Kind)
}

package billing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/queryhub/QueryHub/app/models"
)

func subscriptionEvent(eventType, subID, custID, priceID, status string) *models.BillingWebhookEvent {
	payload := fmt.Sprintf(`{
		"id": "evt_test_1",
		"type": %q,
		"data": {
			"object": {
				"id": %q,
				"object": "subscription",
				"customer": %q,
				"status": %q,
				"cancel_at_period_end": false,
				"current_period_start": 1735689600,
				"current_period_end": 1738368000,
				"items": {"data": [{"price": {"id": %q}}]}
			}
		}
	}`, eventType, subID, custID, status, priceID)
	return &models.BillingWebhookEvent{
		ProviderEventID: "evt_test_1",
		EventType:       eventType,
		PayloadJSON:     payload,
	}
}

func invoiceEvent(eventType, subID string) *models.BillingWebhookEvent {
	sub := "null"
	if subID != "" {
		sub = fmt.Sprintf("%q", subID)
	}
	payload := fmt.Sprintf(`{
		"id": "evt_test_2",
		"type": %q,
		"data": {
			"object": {
				"id": "in_test_1",
				"object": "invoice",
				"subscription": %s
			}
		}
	}`, eventType, sub)
	return &models.BillingWebhookEvent{
		ProviderEventID: "evt_test_2",
		EventType:       eventType,
		PayloadJSON:     payload,
	}
}

func TestHandlerForKnownTypes(t *testing.T) {
	for _, eventType := range []string{
		"customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted",
		"invoice.paid",
		"invoice.payment_succeeded",
		"invoice.payment_failed",
	} {
		_, ok := HandlerFor(eventType)
		assert.True(t, ok, eventType)
	}

	_, ok := HandlerFor("charge.refunded")
	assert.False(t, ok)
}

func TestHandleSubscriptionCreated(t *testing.T) {
	event := subscriptionEvent("customer.subscription.created", "sub_123", "cus_456", "price_pro", "active")
	handler, _ := HandlerFor(event.EventType)

	transition, err := handler(event)
	assert.NoError(t, err)
	assert.Equal(t, TransitionUpsert, transition.Kind)
	assert.NotNil(t, transition.Upsert)
	assert.Equal(t, "sub_123", transition.Upsert.ProviderSubscriptionID)
	assert.Equal(t, "cus_456", transition.Upsert.ProviderCustomerID)
	assert.Equal(t, "price_pro", transition.Upsert.ProviderPriceRef)
	assert.Equal(t, models.BillingStatusActive, transition.Upsert.Status)
	assert.NotNil(t, transition.Upsert.CurrentPeriodStart)
	assert.NotNil(t, transition.Upsert.CurrentPeriodEnd)
}

func TestHandleSubscriptionStatusNormalization(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"active", models.BillingStatusActive},
		{"trialing", models.BillingStatusTrialing},
		{"canceled", models.BillingStatusCanceled},
		{"unpaid", models.BillingStatusCanceled},
		{"incomplete_expired", models.BillingStatusCanceled},
		{"past_due", models.BillingStatusPastDue},
		{"incomplete", models.BillingStatusPastDue},
	}
	for _, tt := range tests {
		event := subscriptionEvent("customer.subscription.updated", "sub_1", "cus_1", "price_1", tt.provider)
		handler, _ := HandlerFor(event.EventType)
		transition, err := handler(event)
		assert.NoError(t, err, tt.provider)
		assert.Equal(t, tt.want, transition.Upsert.Status, tt.provider)
	}
}

func TestHandleSubscriptionDeleted(t *testing.T) {
	event := subscriptionEvent("customer.subscription.deleted", "sub_123", "cus_456", "price_pro", "canceled")
	handler, _ := HandlerFor(event.EventType)

	transition, err := handler(event)
	assert.NoError(t, err)
	assert.Equal(t, TransitionSetStatus, transition.Kind)
	assert.Equal(t, "sub_123", transition.ProviderSubscriptionID)
	assert.Equal(t, models.BillingStatusCanceled, transition.Status)
}

func TestHandlePaymentSucceeded(t *testing.T) {
	event := invoiceEvent("invoice.paid", "sub_123")
	handler, _ := HandlerFor(event.EventType)

	transition, err := handler(event)
	assert.NoError(t, err)
	assert.Equal(t, TransitionSetStatus, transition.Kind)
	assert.Equal(t, "sub_123", transition.ProviderSubscriptionID)
	assert.Equal(t, models.BillingStatusActive, transition.Status)
}

func TestHandlePaymentFailed(t *testing.T) {
	event := invoiceEvent("invoice.payment_failed", "sub_123")
	handler, _ := HandlerFor(event.EventType)

	transition, err := handler(event)
	assert.NoError(t, err)
	assert.Equal(t, TransitionSetStatus, transition.Kind)
	assert.Equal(t, models.BillingStatusPastDue, transition.Status)
}

func TestHandleInvoiceWithoutSubscription(t *testing.T) {
	event := invoiceEvent("invoice.paid", "")
	handler, _ := HandlerFor(event.EventType)

	transition, err := handler(event)
	assert.NoError(t, err)
	assert.Equal(t, TransitionNone, transition.Kind)
}

func TestHandleMalformedPayload(t *testing.T) {
	event := &models.BillingWebhookEvent{
		ProviderEventID: "evt_bad",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     "{not json",
	}
	handler, _ := HandlerFor(event.EventType)

	transition, err := handler(event)
	assert.Error(t, err)
	assert.Equal(t, TransitionNone, transition.Kind)
}

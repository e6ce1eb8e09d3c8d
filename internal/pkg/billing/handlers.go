package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"

	"github.com/queryhub/QueryHub/app/models"
)

// Handler derives a subscription state transition from a queued event. All
// handlers are pure: they parse the stored payload and describe the change,
// they never touch storage.
type Handler func(event *models.BillingWebhookEvent) (Transition, error)

// handlers is the closed dispatch set. Event types outside this table are
// logged and marked processed without touching subscription state.
var handlers = map[string]Handler{
	"customer.subscription.created": handleSubscriptionChanged,
	"customer.subscription.updated": handleSubscriptionChanged,
	"customer.subscription.deleted": handleSubscriptionDeleted,
	"invoice.paid":                  handlePaymentSucceeded,
	"invoice.payment_succeeded":     handlePaymentSucceeded,
	"invoice.payment_failed":        handlePaymentFailed,
}

// HandlerFor returns the handler registered for the given event type.
func HandlerFor(eventType string) (Handler, bool) {
	h, ok := handlers[eventType]
	return h, ok
}

func handleSubscriptionChanged(event *models.BillingWebhookEvent) (Transition, error) {
	sub, err := parseSubscription(event.PayloadJSON)
	if err != nil {
		return Transition{Kind: TransitionNone}, err
	}

	state := &SubscriptionState{
		ProviderSubscriptionID: sub.ID,
		Status:                 normalizeStatus(sub.Status),
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		CurrentPeriodStart:     unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:       unixTime(sub.CurrentPeriodEnd),
		RawPayloadJSON:         event.PayloadJSON,
	}
	if sub.Customer != nil {
		state.ProviderCustomerID = sub.Customer.ID
	}
	if len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		state.ProviderPriceRef = sub.Items.Data[0].Price.ID
	}
	if state.ProviderSubscriptionID == "" {
		return Transition{Kind: TransitionNone}, fmt.Errorf("event %s carries no subscription id", event.ProviderEventID)
	}

	return Transition{Kind: TransitionUpsert, Upsert: state}, nil
}

func handleSubscriptionDeleted(event *models.BillingWebhookEvent) (Transition, error) {
	sub, err := parseSubscription(event.PayloadJSON)
	if err != nil {
		return Transition{Kind: TransitionNone}, err
	}
	if sub.ID == "" {
		return Transition{Kind: TransitionNone}, fmt.Errorf("event %s carries no subscription id", event.ProviderEventID)
	}
	return Transition{
		Kind:                   TransitionSetStatus,
		ProviderSubscriptionID: sub.ID,
		Status:                 models.BillingStatusCanceled,
	}, nil
}

func handlePaymentSucceeded(event *models.BillingWebhookEvent) (Transition, error) {
	return invoiceStatusTransition(event, models.BillingStatusActive)
}

func handlePaymentFailed(event *models.BillingWebhookEvent) (Transition, error) {
	return invoiceStatusTransition(event, models.BillingStatusPastDue)
}

func invoiceStatusTransition(event *models.BillingWebhookEvent, status string) (Transition, error) {
	inv, err := parseInvoice(event.PayloadJSON)
	if err != nil {
		return Transition{Kind: TransitionNone}, err
	}
	// One-off invoices have no subscription attached; nothing to update.
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		return Transition{Kind: TransitionNone}, nil
	}
	return Transition{
		Kind:                   TransitionSetStatus,
		ProviderSubscriptionID: inv.Subscription.ID,
		Status:                 status,
	}, nil
}

func parseSubscription(payload string) (*stripe.Subscription, error) {
	raw, err := eventObject(payload)
	if err != nil {
		return nil, err
	}
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode subscription object: %w", err)
	}
	return &sub, nil
}

func parseInvoice(payload string) (*stripe.Invoice, error) {
	raw, err := eventObject(payload)
	if err != nil {
		return nil, err
	}
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("decode invoice object: %w", err)
	}
	return &inv, nil
}

func eventObject(payload string) (json.RawMessage, error) {
	var event stripe.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	if len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("event envelope has no data object")
	}
	return event.Data.Raw, nil
}

// normalizeStatus maps the provider's status vocabulary onto ours. Unknown
// values fall back to past_due so the account is flagged rather than granted.
func normalizeStatus(status stripe.SubscriptionStatus) string {
	switch status {
	case stripe.SubscriptionStatusActive:
		return models.BillingStatusActive
	case stripe.SubscriptionStatusTrialing:
		return models.BillingStatusTrialing
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired, stripe.SubscriptionStatusUnpaid:
		return models.BillingStatusCanceled
	default:
		return models.BillingStatusPastDue
	}
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

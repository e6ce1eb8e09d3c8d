package billing

import "time"

// MaxPayloadBytes caps accepted webhook bodies. Stripe events are small;
// anything larger is rejected before signature verification.
const MaxPayloadBytes = 64 * 1024

// TransitionKind tags the state change a handler derived from an event.
type TransitionKind string

const (
	// TransitionNone leaves subscription state untouched.
	TransitionNone TransitionKind = "none"
	// TransitionUpsert creates or overwrites a subscription row.
	TransitionUpsert TransitionKind = "upsert"
	// TransitionSetStatus updates the status of an existing subscription.
	TransitionSetStatus TransitionKind = "set_status"
)

// SubscriptionState is the provider-side view of a subscription, extracted
// from an event payload. The applier maps it onto a database row.
type SubscriptionState struct {
	ProviderCustomerID     string
	ProviderSubscriptionID string
	ProviderPriceRef       string
	Status                 string
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
	RawPayloadJSON         string
}

// Transition describes a subscription state change without performing it.
// Handlers return transitions; the applier executes them against storage.
type Transition struct {
	Kind                   TransitionKind
	Upsert                 *SubscriptionState
	ProviderSubscriptionID string
	Status                 string
}

// Summary reports one processing run over the webhook queue.
type Summary struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
	Total     int `json:"total"`
}

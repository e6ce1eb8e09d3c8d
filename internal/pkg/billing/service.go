package billing

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v81/webhook"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/entitlements"
	"github.com/queryhub/QueryHub/internal/pkg/env"
)

// ErrInvalidSignature is returned when a webhook body fails verification
// against the configured signing secret.
var ErrInvalidSignature = errors.New("billing: invalid webhook signature")

// Service verifies and queues incoming webhook events and applies the
// transitions the handlers derive from them.
type Service struct {
	billing repository.BillingRepository
	users   repository.UserRepository
}

func NewService(billing repository.BillingRepository, users repository.UserRepository) *Service {
	return &Service{billing: billing, users: users}
}

// RecordWebhookEvent verifies the signature and durably queues the event.
// Returns whether a new queue row was created; a repeated delivery of the
// same provider event id is acknowledged without a second row.
func (s *Service) RecordWebhookEvent(payload []byte, signatureHeader string) (bool, error) {
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	event, err := webhook.ConstructEvent(payload, signatureHeader, secret)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	created, _, err := s.billing.CreateWebhookEventIfNotExists(&models.BillingWebhookEvent{
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
	})
	if err != nil {
		return false, fmt.Errorf("queue webhook event: %w", err)
	}
	if !created {
		log.Infof("[Billing] duplicate delivery of event %s ignored", event.ID)
	}
	return created, nil
}

// Apply executes a transition against subscription storage. Upserts resolve
// the price ref to an internal plan and reconcile the owner's plan setting;
// status changes target an existing row and downgrade the owner on cancel.
func (s *Service) Apply(t Transition) error {
	switch t.Kind {
	case TransitionNone:
		return nil
	case TransitionUpsert:
		return s.applyUpsert(t.Upsert)
	case TransitionSetStatus:
		return s.applySetStatus(t.ProviderSubscriptionID, t.Status)
	default:
		return fmt.Errorf("unknown transition kind %q", t.Kind)
	}
}

func (s *Service) applyUpsert(state *SubscriptionState) error {
	if state == nil {
		return errors.New("upsert transition without subscription state")
	}

	userID, err := s.billing.FindUserByCustomerID(state.ProviderCustomerID)
	if err != nil {
		return fmt.Errorf("resolve customer %s: %w", state.ProviderCustomerID, err)
	}

	plan := string(entitlements.PlanFree)
	if mapping, err := s.billing.FindActivePlanMapping(state.ProviderPriceRef); err == nil {
		plan = mapping.InternalPlan
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("resolve plan for price %s: %w", state.ProviderPriceRef, err)
	} else {
		log.Warnf("[Billing] no plan mapping for price %s, keeping free", state.ProviderPriceRef)
	}

	sub := &models.BillingSubscription{
		UserID:                 userID,
		ProviderCustomerID:     state.ProviderCustomerID,
		ProviderSubscriptionID: state.ProviderSubscriptionID,
		ProviderPriceRef:       state.ProviderPriceRef,
		InternalPlan:           plan,
		Status:                 state.Status,
		CurrentPeriodStart:     state.CurrentPeriodStart,
		CurrentPeriodEnd:       state.CurrentPeriodEnd,
		CancelAtPeriodEnd:      state.CancelAtPeriodEnd,
		RawPayloadJSON:         state.RawPayloadJSON,
	}
	if err := s.billing.UpsertSubscription(sub); err != nil {
		return fmt.Errorf("upsert subscription %s: %w", state.ProviderSubscriptionID, err)
	}

	return s.reconcilePlan(userID)
}

func (s *Service) applySetStatus(providerSubscriptionID, status string) error {
	sub, err := s.billing.GetSubscriptionByProviderID(providerSubscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The create event may still sit behind this one in the
			// queue. Fail so the retry counter gives it another pass.
			return fmt.Errorf("subscription %s not found yet", providerSubscriptionID)
		}
		return fmt.Errorf("load subscription %s: %w", providerSubscriptionID, err)
	}

	sub.Status = status
	if err := s.billing.UpsertSubscription(sub); err != nil {
		return fmt.Errorf("update subscription %s: %w", providerSubscriptionID, err)
	}

	return s.reconcilePlan(sub.UserID)
}

// reconcilePlan keeps the user's plan setting in lockstep with subscription
// state. The highest-ranked plan among active and trialing subscriptions
// wins; with no entitling subscription the user reverts to free.
func (s *Service) reconcilePlan(userID uint) error {
	settings, err := s.users.GetOrCreateSettings(userID)
	if err != nil {
		return fmt.Errorf("load settings for user %d: %w", userID, err)
	}

	subs, err := s.billing.ListSubscriptionsByUser(userID)
	if err != nil {
		return fmt.Errorf("list subscriptions for user %d: %w", userID, err)
	}

	plan := string(bestEntitlingPlan(subs))
	if settings.Plan == plan {
		return nil
	}

	settings.Plan = plan
	if err := s.users.SaveSettings(settings); err != nil {
		return fmt.Errorf("save plan for user %d: %w", userID, err)
	}
	log.Infof("[Billing] user %d plan set to %s", userID, plan)
	return nil
}

// bestEntitlingPlan picks the plan the user is entitled to across all their
// subscriptions. A user mid-switch between prices briefly holds two active
// subscriptions; the better plan applies until the old one cancels.
func bestEntitlingPlan(subs []models.BillingSubscription) entitlements.Plan {
	best := entitlements.PlanFree
	for _, sub := range subs {
		if sub.Status != models.BillingStatusActive && sub.Status != models.BillingStatusTrialing {
			continue
		}
		plan := entitlements.NormalizePlan(sub.InternalPlan)
		if entitlements.PlanRank(plan) > entitlements.PlanRank(best) {
			best = plan
		}
	}
	return best
}

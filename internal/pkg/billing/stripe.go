package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v81"
	portalsession "github.com/stripe/stripe-go/v81/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/customer"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/env"
)

// SetupStripe configures the provider SDK from the environment. Call once
// during startup before any checkout or portal operation.
func SetupStripe() {
	stripe.Key = env.GetEnv("STRIPE_SECRET_KEY", "")
}

// EnsureCustomer returns the user's provider customer id, creating the
// customer on first use and storing the id on the user's settings.
func EnsureCustomer(users repository.UserRepository, user *models.User) (string, error) {
	settings, err := users.GetOrCreateSettings(user.ID)
	if err != nil {
		return "", err
	}
	if settings.StripeCustomerID != "" {
		return settings.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.Name),
	}
	params.AddMetadata("user_id", fmt.Sprintf("%d", user.ID))

	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create billing customer: %w", err)
	}

	settings.StripeCustomerID = cust.ID
	if err := users.SaveSettings(settings); err != nil {
		return "", fmt.Errorf("store customer id: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession starts a subscription checkout for the given price
// and returns the hosted payment page URL.
func CreateCheckoutSession(customerID, priceRef string) (string, error) {
	base := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080")
	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(customerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(base + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(base + "/billing/cancel"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceRef),
				Quantity: stripe.Int64(1),
			},
		},
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession returns a URL to the provider's self-service billing
// portal for an existing customer.
func CreatePortalSession(customerID string) (string, error) {
	base := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080")
	sess, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(base + "/billing"),
	})
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

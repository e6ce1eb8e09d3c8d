package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/billing"
	"github.com/queryhub/QueryHub/internal/pkg/usercontext"
)

type checkoutRequest struct {
	PriceRef string `json:"price_ref"`
}

func billingService() *billing.Service {
	factory := repository.GetGlobalFactory()
	return billing.NewService(factory.GetBillingRepository(), factory.GetUserRepository())
}

// HandleBillingWebhook receives provider webhook deliveries, verifies the
// signature and queues the event. Processing happens asynchronously.
func HandleBillingWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	if len(payload) > billing.MaxPayloadBytes {
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "payload_too_large", "Webhook payload exceeds size limit")
	}

	created, err := billingService().RecordWebhookEvent(payload, c.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			return jsonError(c, fiber.StatusBadRequest, "validation", "Webhook signature verification failed")
		}
		log.Errorf("webhook intake failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Webhook intake failed")
	}

	return c.JSON(fiber.Map{"received": true, "queued": created})
}

// HandleProcessWebhookEvents drains one batch of queued webhook events.
// The background worker does this on a timer; this endpoint exists for
// operators who want to force a pass.
func HandleProcessWebhookEvents(c *fiber.Ctx) error {
	processor := billing.NewProcessor(repository.GetGlobalFactory().GetBillingRepository(), billingService())
	summary, err := processor.ProcessPending()
	if err != nil {
		log.Errorf("webhook processing failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Webhook processing failed")
	}
	return c.JSON(summary)
}

// HandleCreateCheckout starts a subscription checkout for the caller.
func HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil || req.PriceRef == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Missing price_ref")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		log.Errorf("checkout user lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Checkout failed")
	}

	customerID, err := billing.EnsureCustomer(userRepo, user)
	if err != nil {
		log.Errorf("customer setup failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Checkout failed")
	}

	url, err := billing.CreateCheckoutSession(customerID, req.PriceRef)
	if err != nil {
		log.Errorf("checkout session failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Checkout failed")
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleBillingPortal returns a provider-hosted portal URL for the caller.
func HandleBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	settings, err := userRepo.GetOrCreateSettings(userCtx.UserID)
	if err != nil {
		log.Errorf("settings lookup failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Portal session failed")
	}
	if settings.StripeCustomerID == "" {
		return jsonError(c, fiber.StatusNotFound, "not_found", "No billing account for this user")
	}

	url, err := billing.CreatePortalSession(settings.StripeCustomerID)
	if err != nil {
		log.Errorf("portal session failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Portal session failed")
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleListSubscriptions returns the caller's subscription history.
func HandleListSubscriptions(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	subs, err := repository.GetGlobalFactory().GetBillingRepository().ListSubscriptionsByUser(userCtx.UserID)
	if err != nil {
		log.Errorf("subscription listing failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Subscription listing failed")
	}

	return c.JSON(fiber.Map{"subscriptions": subs})
}

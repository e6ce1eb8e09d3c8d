package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/entitlements"
	"github.com/queryhub/QueryHub/internal/pkg/metrics/counter"
	"github.com/queryhub/QueryHub/internal/pkg/usercontext"
)

// HandleGetUserAccount returns the authenticated user's profile, plan limits
// and current usage.
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	factory := repository.GetGlobalFactory()
	user, err := factory.GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		log.Errorf("account lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Account lookup failed")
	}

	settings, err := factory.GetUserRepository().GetOrCreateSettings(user.ID)
	if err != nil {
		log.Errorf("settings lookup failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Account lookup failed")
	}

	plan := entitlements.NormalizePlan(settings.Plan)
	documentCount, err := factory.GetDocumentRepository().CountByUserID(user.ID)
	if err != nil {
		log.Warnf("document count failed for user %d: %v", user.ID, err)
	}
	queriesToday, err := counter.UserQueriesToday(user.ID)
	if err != nil {
		log.Warnf("query counter read failed for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":            user.ID,
			"name":          user.Name,
			"email":         user.Email,
			"role":          user.Role,
			"status":        user.Status,
			"mfa_enabled":   user.MFAEnabled,
			"last_login_at": formatTimePtr(user.LastLoginAt),
			"created_at":    user.CreatedAt,
		},
		"plan": fiber.Map{
			"name":              string(plan),
			"document_quota":    entitlements.DocumentQuota(plan),
			"daily_query_quota": entitlements.DailyQueryQuota(plan),
		},
		"usage": fiber.Map{
			"documents":     documentCount,
			"queries_today": queriesToday,
		},
		"api_key": fiber.Map{
			"active":       settings.HasActiveAPIKey(),
			"masked":       settings.MaskedAPIKey(),
			"created_at":   formatTimePtr(settings.APIKeyCreatedAt),
			"last_used_at": formatTimePtr(settings.APIKeyLastUsedAt),
		},
	})
}

// HandleIssueAPIKey generates a fresh API key, replacing any existing one.
// The raw key is shown exactly once in this response.
func HandleIssueAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	settings, err := userRepo.GetOrCreateSettings(userCtx.UserID)
	if err != nil {
		log.Errorf("settings lookup failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "API key creation failed")
	}

	rawKey, err := settings.IssueAPIKey()
	if err != nil {
		log.Errorf("api key generation failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "API key creation failed")
	}
	if err := userRepo.SaveSettings(settings); err != nil {
		log.Errorf("api key persist failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "API key creation failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key":    rawKey,
		"prefix":     settings.APIKeyPrefix,
		"created_at": formatTimePtr(settings.APIKeyCreatedAt),
		"message":    "Store this key now. It will not be shown again.",
	})
}

// HandleRevokeAPIKey invalidates the user's current API key.
func HandleRevokeAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	settings, err := userRepo.GetOrCreateSettings(userCtx.UserID)
	if err != nil {
		log.Errorf("settings lookup failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "API key revocation failed")
	}
	if !settings.HasActiveAPIKey() {
		return jsonError(c, fiber.StatusNotFound, "not_found", "No active API key")
	}

	settings.RevokeAPIKey()
	if err := userRepo.SaveSettings(settings); err != nil {
		log.Errorf("api key revoke persist failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "API key revocation failed")
	}

	return c.JSON(fiber.Map{"message": "API key revoked"})
}

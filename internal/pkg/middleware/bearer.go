package middleware

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/database"
	"github.com/queryhub/QueryHub/internal/pkg/security"
	"github.com/queryhub/QueryHub/internal/pkg/usercontext"
)

// BearerAuthMiddleware authenticates API requests carrying either a signed
// JWT bearer token or a per-user API key. Session logins handled by
// UserContextMiddleware pass through untouched.
func BearerAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Already authenticated via session.
		if v, ok := c.Locals(usercontext.KeyFromProtected).(bool); ok && v {
			return c.Next()
		}

		credential := extractBearerCredential(c)
		if credential == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing bearer token"})
		}

		// JWT first; API keys carry a distinct prefix.
		if !strings.HasPrefix(credential, "qh_") {
			claims, err := security.ParseAccessToken(credential)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid bearer token"})
			}
			return establishUser(c, claims.UserID)
		}

		db := database.GetDB()
		if db == nil {
			log.Print("bearer middleware: database unavailable")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Database unavailable"})
		}

		hash := models.HashAPIKey(credential)
		repo := repository.GetGlobalFactory().GetUserRepository()
		user, settings, err := repo.GetByAPIKeyHash(hash)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
			}
			log.Printf("api key lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "API key verification failed"})
		}

		if user.Status != models.STATUS_ACTIVE {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User inactive"})
		}

		// Refresh last-used timestamp best-effort.
		now := time.Now()
		if err := db.Model(&models.UserSettings{}).
			Where("id = ?", settings.ID).
			Updates(map[string]any{"api_key_last_used_at": now}).Error; err != nil {
			log.Printf("failed to update api key usage timestamp for user %d: %v", user.ID, err)
		}

		return establishUser(c, user.ID)
	}
}

func establishUser(c *fiber.Ctx, userID uint) error {
	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Unknown user"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "User lookup failed"})
	}
	if user.Status != models.STATUS_ACTIVE {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User inactive"})
	}

	plan := "free"
	if settings, err := repo.GetOrCreateSettings(user.ID); err == nil && settings.Plan != "" {
		plan = settings.Plan
	}

	userCtx := usercontext.UserContext{
		UserID:     user.ID,
		Username:   user.Name,
		Email:      user.Email,
		IsLoggedIn: true,
		IsAdmin:    user.Role == models.ROLE_ADMIN,
		Plan:       plan,
	}
	c.Locals("USER_CONTEXT", userCtx)
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUserID, user.ID)
	c.Locals(usercontext.KeyUsername, user.Name)
	c.Locals(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)

	return c.Next()
}

func extractBearerCredential(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

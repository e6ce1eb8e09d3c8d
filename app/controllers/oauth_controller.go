package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/session"
	"github.com/queryhub/QueryHub/internal/pkg/usercontext"
)

// HandleOAuthBegin redirects to the cloud provider's consent screen.
func HandleOAuthBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow. The granted tokens are
// stored as a cloud connection for file ingestion. A logged-in user gets the
// connection linked to their account; otherwise we match by email or create
// a fresh active account and log it in.
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", fmt.Sprintf("OAuth failed: %v", err))
	}

	factory := repository.GetGlobalFactory()
	userRepo := factory.GetUserRepository()

	var appUser *models.User
	if userCtx := usercontext.GetUserContext(c); userCtx.IsLoggedIn {
		appUser, err = userRepo.GetByID(userCtx.UserID)
		if err != nil {
			log.Errorf("oauth user lookup failed: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "OAuth callback failed")
		}
	} else {
		appUser, err = resolveOAuthUser(userRepo, u.Email, u.Name, u.NickName)
		if err != nil {
			log.Errorf("oauth user resolution failed: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "OAuth callback failed")
		}
	}

	var expiresAt *time.Time
	if !u.ExpiresAt.IsZero() {
		t := u.ExpiresAt
		expiresAt = &t
	}
	conn := &models.CloudConnection{
		UserID:         appUser.ID,
		Provider:       u.Provider,
		ProviderUserID: u.UserID,
		Email:          u.Email,
		ExpiresAt:      expiresAt,
	}
	if err := conn.SetTokens(u.AccessToken, u.RefreshToken); err != nil {
		log.Errorf("cloud connection token sealing failed for user %d: %v", appUser.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "OAuth callback failed")
	}
	if err := factory.GetConnectionRepository().Upsert(conn); err != nil {
		log.Errorf("cloud connection upsert failed for user %d: %v", appUser.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "OAuth callback failed")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		log.Errorf("oauth session setup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "OAuth callback failed")
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, appUser.ID)
	sess.Set(usercontext.KeyUsername, appUser.Name)
	sess.Set(usercontext.KeyIsAdmin, appUser.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		log.Errorf("oauth session save failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "OAuth callback failed")
	}

	now := time.Now()
	appUser.LastLoginAt = &now
	if err := userRepo.Update(appUser); err != nil {
		log.Warnf("last login update failed for user %d: %v", appUser.ID, err)
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

// resolveOAuthUser finds the account matching the provider email or creates
// a new active one. OAuth accounts get a random placeholder password that is
// never usable for credential login.
func resolveOAuthUser(userRepo repository.UserRepository, email, name, nickname string) (*models.User, error) {
	if email != "" {
		user, err := userRepo.GetByEmail(email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else {
		return nil, errors.New("provider returned no email")
	}

	placeholder := fmt.Sprintf("oauth_%d", time.Now().UnixNano())
	hash, err := models.HashPassword(placeholder)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:     firstNonEmpty(name, nickname, email),
		Email:    email,
		Password: hash,
		Role:     models.ROLE_USER,
		Status:   models.STATUS_ACTIVE,
	}
	if err := userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/hcaptcha"
	"github.com/queryhub/QueryHub/internal/pkg/mail"
	"github.com/queryhub/QueryHub/internal/pkg/security"
	"github.com/queryhub/QueryHub/internal/pkg/session"
	"github.com/queryhub/QueryHub/internal/pkg/usercontext"
)

type registerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type mfaVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// HandleRegister creates a new inactive user and sends the activation mail.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid request body")
	}

	if hcaptcha.Enabled() {
		ok, err := hcaptcha.Verify(req.CaptchaToken)
		if err != nil {
			log.Errorf("captcha verification failed: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Captcha verification failed")
		}
		if !ok {
			return jsonError(c, fiber.StatusBadRequest, "validation", "Captcha check failed")
		}
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := userRepo.GetByEmail(req.Email); err == nil {
		return jsonError(c, fiber.StatusConflict, "conflict", "Email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("register lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Registration failed")
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid name, email or password")
	}
	if err := user.GenerateActivationToken(); err != nil {
		log.Errorf("activation token generation failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Registration failed")
	}
	if err := userRepo.Create(user); err != nil {
		log.Errorf("user creation failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Registration failed")
	}

	if err := mail.SendActivationMail(user.Email, user.ActivationToken); err != nil {
		log.Warnf("activation mail to %s failed: %v", user.Email, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful. Please check your inbox to activate your account.",
	})
}

// HandleActivate switches an inactive account to active via the mailed token.
func HandleActivate(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		token = c.Params("token")
	}
	if token == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Missing activation token")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByActivationToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Unknown activation token")
		}
		log.Errorf("activation lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Activation failed")
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	if err := userRepo.Update(user); err != nil {
		log.Errorf("activation update failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Activation failed")
	}

	return c.JSON(fiber.Map{"message": "Account activated. You can log in now."})
}

// HandleLogin checks credentials and either completes the login or, when MFA
// is enabled for the account, mails a one-time code and defers the session.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid request body")
	}

	ip := GetClientIP(c)
	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			recordLoginAudit(0, false, ip, "unknown email")
			return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid email or password")
		}
		log.Errorf("login lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
	}

	if !user.CheckPassword(req.Password) {
		recordLoginAudit(user.ID, false, ip, "wrong password")
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid email or password")
	}
	if !user.IsActive() {
		recordLoginAudit(user.ID, false, ip, "account not active")
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Account is not activated")
	}

	if user.MFAEnabled {
		code, err := security.IssueMFACode(user.ID)
		if err != nil {
			log.Errorf("mfa code issue failed for user %d: %v", user.ID, err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
		}
		if err := mail.SendMFACodeMail(user.Email, code); err != nil {
			log.Errorf("mfa mail to %s failed: %v", user.Email, err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
		}
		return c.JSON(fiber.Map{
			"mfa_required": true,
			"message":      "A verification code has been sent to your email address.",
		})
	}

	return completeLogin(c, userRepo, user, ip)
}

// HandleMFAVerify consumes the mailed one-time code and finishes the login.
func HandleMFAVerify(c *fiber.Ctx) error {
	var req mfaVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid request body")
	}

	ip := GetClientIP(c)
	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid code")
		}
		log.Errorf("mfa lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Verification failed")
	}

	if err := security.VerifyMFACode(user.ID, req.Code); err != nil {
		if errors.Is(err, security.ErrMFACodeMismatch) {
			recordLoginAudit(user.ID, false, ip, "mfa code mismatch")
			return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid code")
		}
		log.Errorf("mfa verification failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Verification failed")
	}

	return completeLogin(c, userRepo, user, ip)
}

// HandleLogout destroys the current session.
func HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			log.Warnf("session destroy failed: %v", err)
		}
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// completeLogin establishes the session, stamps last login and returns a JWT
// for API clients alongside the cookie.
func completeLogin(c *fiber.Ctx, userRepo repository.UserRepository, user *models.User, ip string) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		log.Errorf("session setup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		log.Errorf("session save failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := userRepo.Update(user); err != nil {
		log.Warnf("last login update failed for user %d: %v", user.ID, err)
	}

	token, err := security.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		log.Errorf("access token generation failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
	}

	recordLoginAudit(user.ID, true, ip, "")

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(security.TokenValidity.Seconds()),
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// recordLoginAudit appends a login audit event. Failures are logged only,
// a broken audit trail must not block authentication.
func recordLoginAudit(userID uint, success bool, ip, details string) {
	action := models.AuditActionLoginSuccess
	if !success {
		action = models.AuditActionLoginFailed
	}
	event := &models.AuditEvent{
		UserID:    userID,
		Action:    action,
		Success:   success,
		IPAddress: ip,
		Details:   details,
	}
	if err := repository.GetGlobalFactory().GetAuditRepository().Create(event); err != nil {
		log.Errorf("audit append failed for action %s: %v", action, err)
	}
}

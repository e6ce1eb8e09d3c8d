package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/usercontext"
)

const (
	auditDefaultLimit = 20
	auditMaxLimit     = 100
	auditMaxDetails   = 4096
)

type appendAuditRequest struct {
	Action       string `json:"action"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Success      *bool  `json:"success"`
	Details      string `json:"details"`
}

// HandleAppendAuditEvent appends a custom audit event for the caller.
// Events are immutable once written.
func HandleAppendAuditEvent(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	var req appendAuditRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid request body")
	}
	if req.Action == "" || len(req.Action) > 100 {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Action is required and limited to 100 characters")
	}
	if len(req.Details) > auditMaxDetails {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Details exceed the 4096 character limit")
	}

	success := true
	if req.Success != nil {
		success = *req.Success
	}
	event := &models.AuditEvent{
		UserID:       userCtx.UserID,
		Action:       req.Action,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Success:      success,
		IPAddress:    GetClientIP(c),
		Details:      req.Details,
	}
	if err := repository.GetGlobalFactory().GetAuditRepository().Create(event); err != nil {
		log.Errorf("audit append failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Audit append failed")
	}

	return c.Status(fiber.StatusCreated).JSON(event)
}

// HandleListAuditEvents returns the caller's audit trail, newest first.
func HandleListAuditEvents(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	limit, offset := parsePagination(c, auditDefaultLimit, auditMaxLimit)
	auditRepo := repository.GetGlobalFactory().GetAuditRepository()

	events, err := auditRepo.ListByUser(userCtx.UserID, offset, limit)
	if err != nil {
		log.Errorf("audit listing failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Audit listing failed")
	}
	total, err := auditRepo.CountByUser(userCtx.UserID)
	if err != nil {
		log.Errorf("audit count failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Audit listing failed")
	}

	return c.JSON(fiber.Map{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

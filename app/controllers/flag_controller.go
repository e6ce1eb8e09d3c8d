package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/featureflag"
	"github.com/queryhub/QueryHub/internal/pkg/usercontext"
)

type flagRequest struct {
	Key               string `json:"key"`
	Description       string `json:"description"`
	Enabled           *bool  `json:"enabled"`
	RolloutPercentage *int   `json:"rollout_percentage"`
}

// HandleEvaluateFlags returns every flag evaluated for the caller. Percentage
// rollouts are stable per user, refreshes will not flip assignments.
func HandleEvaluateFlags(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	loader := featureflag.NewLoader(repository.GetGlobalFactory().GetFlagRepository())
	set, err := loader.ForUser(userCtx.UserID)
	if err != nil {
		log.Errorf("flag evaluation failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Flag evaluation failed")
	}

	return c.JSON(fiber.Map{
		"flags":   set.All(),
		"buckets": set.Buckets(),
	})
}

// HandleListFlags returns all flag definitions.
func HandleListFlags(c *fiber.Ctx) error {
	flags, err := repository.GetGlobalFactory().GetFlagRepository().GetAll()
	if err != nil {
		log.Errorf("flag listing failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Flag listing failed")
	}
	return c.JSON(fiber.Map{"flags": flags})
}

// HandleCreateFlag defines a new feature flag.
func HandleCreateFlag(c *fiber.Ctx) error {
	var req flagRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid request body")
	}
	if req.Key == "" || len(req.Key) > 100 {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Key is required and limited to 100 characters")
	}

	flag := &models.FeatureFlag{
		Key:               req.Key,
		Description:       req.Description,
		RolloutPercentage: 100,
	}
	if req.Enabled != nil {
		flag.Enabled = *req.Enabled
	}
	if req.RolloutPercentage != nil {
		if *req.RolloutPercentage < 0 || *req.RolloutPercentage > 100 {
			return jsonError(c, fiber.StatusBadRequest, "validation", "Rollout percentage must be between 0 and 100")
		}
		flag.RolloutPercentage = *req.RolloutPercentage
	}

	flagRepo := repository.GetGlobalFactory().GetFlagRepository()
	if _, err := flagRepo.GetByKey(flag.Key); err == nil {
		return jsonError(c, fiber.StatusConflict, "conflict", "Flag key already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("flag lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Flag creation failed")
	}

	if err := flagRepo.Create(flag); err != nil {
		log.Errorf("flag creation failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Flag creation failed")
	}
	featureflag.Invalidate()

	return c.Status(fiber.StatusCreated).JSON(flag)
}

// HandleUpdateFlag changes a flag's state or rollout percentage.
func HandleUpdateFlag(c *fiber.Ctx) error {
	key := c.Params("key")
	flagRepo := repository.GetGlobalFactory().GetFlagRepository()
	flag, err := flagRepo.GetByKey(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Flag not found")
		}
		log.Errorf("flag lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Flag update failed")
	}

	var req flagRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid request body")
	}
	if req.Description != "" {
		flag.Description = req.Description
	}
	if req.Enabled != nil {
		flag.Enabled = *req.Enabled
	}
	if req.RolloutPercentage != nil {
		if *req.RolloutPercentage < 0 || *req.RolloutPercentage > 100 {
			return jsonError(c, fiber.StatusBadRequest, "validation", "Rollout percentage must be between 0 and 100")
		}
		flag.RolloutPercentage = *req.RolloutPercentage
	}

	if err := flagRepo.Update(flag); err != nil {
		log.Errorf("flag update failed for %s: %v", key, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Flag update failed")
	}
	featureflag.Invalidate()

	return c.JSON(flag)
}

// HandleDeleteFlag removes a flag definition. Unknown keys then evaluate to
// disabled everywhere.
func HandleDeleteFlag(c *fiber.Ctx) error {
	key := c.Params("key")
	flagRepo := repository.GetGlobalFactory().GetFlagRepository()
	flag, err := flagRepo.GetByKey(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Flag not found")
		}
		log.Errorf("flag lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Flag deletion failed")
	}

	if err := flagRepo.Delete(flag.ID); err != nil {
		log.Errorf("flag deletion failed for %s: %v", key, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Flag deletion failed")
	}
	featureflag.Invalidate()

	return c.JSON(fiber.Map{"message": "Flag deleted"})
}

package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/securitymon"
)

const (
	incidentDefaultLimit = 50
	incidentMaxLimit     = 200
)

func incidentDetector() *securitymon.Detector {
	factory := repository.GetGlobalFactory()
	return securitymon.NewDetector(factory.GetAuditRepository(), factory.GetIncidentRepository())
}

// HandleSecurityScan runs incident detection over the recent audit log.
// The background worker does the same on a timer; re-running is harmless.
func HandleSecurityScan(c *fiber.Ctx) error {
	result, err := incidentDetector().Scan()
	if err != nil {
		log.Errorf("incident scan failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Incident scan failed")
	}
	return c.JSON(result)
}

// HandleListIncidents returns detected incidents, newest first.
func HandleListIncidents(c *fiber.Ctx) error {
	limit, offset := parsePagination(c, incidentDefaultLimit, incidentMaxLimit)
	incidents, err := repository.GetGlobalFactory().GetIncidentRepository().List(offset, limit)
	if err != nil {
		log.Errorf("incident listing failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Incident listing failed")
	}
	return c.JSON(fiber.Map{"incidents": incidents, "limit": limit, "offset": offset})
}

// HandleResolveIncident marks an incident as resolved.
func HandleResolveIncident(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid incident id")
	}

	incident, err := incidentDetector().Resolve(uint(id))
	if err != nil {
		if errors.Is(err, securitymon.ErrIncidentNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Incident not found")
		}
		log.Errorf("incident resolution failed for %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Incident resolution failed")
	}

	return c.JSON(incident)
}

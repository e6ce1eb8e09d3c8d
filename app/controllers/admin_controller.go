package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/queryhub/QueryHub/internal/pkg/jobqueue"
	"github.com/queryhub/QueryHub/internal/pkg/statistics"
)

// HandleAdminStats returns cached platform statistics plus live queue counters.
func HandleAdminStats(c *fiber.Ctx) error {
	statistics.UpdateCacheIfNeeded()
	stats := statistics.GetStatistics()

	queueStats, err := jobqueue.GetManager().GetQueue().GetStats()
	if err != nil {
		log.Warnf("queue stats read failed: %v", err)
		queueStats = map[string]int64{}
	}

	return c.JSON(fiber.Map{
		"platform": stats,
		"queue":    queueStats,
	})
}

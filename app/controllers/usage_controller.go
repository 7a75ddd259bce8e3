package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/DorianVeras/TradeGate/internal/pkg/database"
	"github.com/DorianVeras/TradeGate/internal/pkg/metering"
	"github.com/DorianVeras/TradeGate/internal/pkg/usercontext"
)

// HandleUsageCheck answers GET /api/v1/usage/check: may the user start one
// more analysis right now.
func HandleUsageCheck(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	quota, err := metering.NewServiceFromDB(database.GetDB()).CheckQuota(ctx, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{
		"allowed":    quota.Allowed,
		"used":       quota.Used,
		"limit":      quota.Limit,
		"remaining":  quota.Remaining,
		"tier":       quota.Tier,
		"period_end": quota.PeriodEnd.UTC().Format(time.RFC3339),
	})
}

// HandleCurrentUsage answers GET /api/v1/usage with the cached counter for
// dashboards; it may lag the database by up to the snapshot TTL.
func HandleCurrentUsage(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	quota, err := metering.NewServiceFromDB(database.GetDB()).CurrentUsage(ctx, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{
		"used":       quota.Used,
		"limit":      quota.Limit,
		"remaining":  quota.Remaining,
		"tier":       quota.Tier,
		"period_end": quota.PeriodEnd.UTC().Format(time.RFC3339),
	})
}

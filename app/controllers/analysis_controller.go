package controllers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/DorianVeras/TradeGate/internal/pkg/analysis"
	"github.com/DorianVeras/TradeGate/internal/pkg/database"
	"github.com/DorianVeras/TradeGate/internal/pkg/metering"
	"github.com/DorianVeras/TradeGate/internal/pkg/usercontext"
)

// analyzer is swappable in tests.
var analyzer analysis.Analyzer = analysis.NewEngine()

// HandleCreateAnalysis runs one compliance analysis on POST /api/v1/analyses.
// Quota is checked before the run and the counter incremented only after a
// successful one, so failed analyses never consume quota.
func HandleCreateAnalysis(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var in analysis.Input
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "malformed request body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	meter := metering.NewServiceFromDB(database.GetDB())
	quota, err := meter.CheckQuota(ctx, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if !quota.Allowed {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":      "quota_exceeded",
			"message":    "Monthly analysis limit reached for your plan.",
			"used":       quota.Used,
			"limit":      quota.Limit,
			"period_end": quota.PeriodEnd.UTC().Format(time.RFC3339),
		})
	}

	result, err := analyzer.Analyze(ctx, in)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "analysis_failed", "message": err.Error()})
	}

	if _, err := meter.IncrementUsage(ctx, userCtx.UserID); err != nil {
		// The analysis already ran; losing one count beats double-charging.
		log.Printf("[Metering] usage increment failed for user %d: %v", userCtx.UserID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/DorianVeras/TradeGate/app/models"
	"github.com/DorianVeras/TradeGate/internal/pkg/billing"
	"github.com/DorianVeras/TradeGate/internal/pkg/database"
	"github.com/DorianVeras/TradeGate/internal/pkg/session"
	"github.com/DorianVeras/TradeGate/internal/pkg/tiers"
	"github.com/DorianVeras/TradeGate/internal/pkg/usercontext"
)

// HandleGetSubscription returns the authenticated user's subscription state.
func HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	repo := billing.NewRepository(database.GetDB())
	sub, err := repo.GetSubscriptionByUser(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No record yet means the user never left the trial.
			def := tiers.MustLookup(string(tiers.TierTrial))
			return c.JSON(fiber.Map{
				"tier":          string(tiers.TierTrial),
				"status":        models.BillingStatusActive,
				"monthly_quota": def.MonthlyQuota,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	def, err := tiers.Lookup(sub.Tier)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{
		"tier":                 sub.Tier,
		"status":               sub.Status,
		"billing_interval":     sub.BillingInterval,
		"monthly_quota":        def.MonthlyQuota,
		"current_period_start": formatTimePtr(sub.CurrentPeriodStart),
		"current_period_end":   formatTimePtr(sub.CurrentPeriodEnd),
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"locked_until":         formatTimePtr(sub.LockedUntil),
		"locked":               sub.IsLocked(time.Now()),
	})
}

type updateSubscriptionRequest struct {
	Tier          string `json:"tier"`
	BillingPeriod string `json:"billing_period"`
}

// HandleUpdateSubscription applies a self-service plan change on
// POST /api/v1/subscription/update. The billing period is optional; sending
// the current tier with a new period switches the period alone. A
// commitment-lock refusal answers 403 with the remaining lock window.
func HandleUpdateSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var req updateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Tier) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "tier is required"})
	}
	if !tiers.IsKnown(req.Tier) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown tier"})
	}
	period := strings.ToLower(strings.TrimSpace(req.BillingPeriod))
	switch period {
	case "", models.BillingIntervalMonthly, models.BillingIntervalAnnual:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown billing period"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := billingService().RequestTierChange(ctx, userCtx.UserID, req.Tier, period)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if !res.Allowed {
		switch res.Reason {
		case billing.RefusalCommitmentLock:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":          "commitment_lock_active",
				"message":        "Your current plan has a minimum commitment period that has not ended yet.",
				"days_remaining": res.DaysRemaining,
				"locked_until":   formatTimePtr(res.LiftsAt),
			})
		case billing.RefusalUsageExceeds:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "usage_exceeds_target_quota",
				"message": "Your usage this period already exceeds the quota of the requested plan.",
			})
		default:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "tier_change_refused"})
		}
	}

	// Refresh the session-cached tier so the change is visible immediately.
	_ = session.SetSessionValue(c, "user_tier", res.Tier)

	return c.JSON(fiber.Map{
		"ok":                 true,
		"tier":               res.Tier,
		"billing_period":     res.BillingInterval,
		"locked_until":       formatTimePtr(res.LockedUntil),
		"current_period_end": formatTimePtr(res.CurrentPeriodEnd),
	})
}

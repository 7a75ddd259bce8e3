package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/DorianVeras/TradeGate/app/models"
	"github.com/DorianVeras/TradeGate/internal/pkg/database"
	"github.com/DorianVeras/TradeGate/internal/pkg/statistics"
	"github.com/DorianVeras/TradeGate/internal/pkg/tiers"
)

// HandleAdminStats returns the cached platform aggregates.
func HandleAdminStats(c *fiber.Ctx) error {
	data := statistics.GetStatisticsData()
	return c.JSON(fiber.Map{
		"total_analyses":       data.TotalAnalyses,
		"total_users":          data.TotalUsers,
		"active_subscriptions": data.ActiveSubscriptions,
	})
}

// HandleAdminListPlanMappings lists the processor price to tier mappings.
func HandleAdminListPlanMappings(c *fiber.Ctx) error {
	var mappings []models.BillingPlanMapping
	if err := database.GetDB().Order("tier, billing_interval").Find(&mappings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return c.JSON(fiber.Map{"plan_mappings": mappings})
}

type upsertPlanMappingRequest struct {
	PriceRef        string `json:"price_ref"`
	BillingInterval string `json:"billing_interval"`
	Tier            string `json:"tier"`
	IsActive        *bool  `json:"is_active"`
}

// HandleAdminUpsertPlanMapping creates or updates a price mapping. Webhook
// processing fails hard on unmapped prices, so this is the repair tool.
func HandleAdminUpsertPlanMapping(c *fiber.Ctx) error {
	var req upsertPlanMappingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "malformed request body"})
	}
	priceRef := strings.TrimSpace(req.PriceRef)
	interval := strings.ToLower(strings.TrimSpace(req.BillingInterval))
	if priceRef == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "price_ref is required"})
	}
	if interval != models.BillingIntervalMonthly && interval != models.BillingIntervalAnnual {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "billing_interval must be monthly or annual"})
	}
	if !tiers.IsKnown(req.Tier) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown tier"})
	}

	db := database.GetDB()
	var mapping models.BillingPlanMapping
	err := db.Where("price_ref = ? AND billing_interval = ?", priceRef, interval).First(&mapping).Error
	if err != nil {
		mapping = models.BillingPlanMapping{PriceRef: priceRef, BillingInterval: interval}
	}
	mapping.Tier = string(tiers.Normalize(req.Tier))
	mapping.IsActive = req.IsActive == nil || *req.IsActive
	if err := db.Save(&mapping).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(mapping)
}

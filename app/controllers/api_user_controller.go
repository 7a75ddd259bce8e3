package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/DorianVeras/TradeGate/app/models"
	"github.com/DorianVeras/TradeGate/app/repository"
	"github.com/DorianVeras/TradeGate/internal/pkg/database"
	"github.com/DorianVeras/TradeGate/internal/pkg/metering"
	"github.com/DorianVeras/TradeGate/internal/pkg/tiers"
	"github.com/DorianVeras/TradeGate/internal/pkg/usercontext"
	"github.com/DorianVeras/TradeGate/internal/pkg/utils"
)

// HandleGetUserAccount returns account information for the authenticated user (API key or session).
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user"})
	}

	db := database.GetDB()
	if db == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Database unavailable"})
	}
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user settings"})
	}

	tier := settings.SubscriptionTier
	if tier == "" {
		tier = string(tiers.TierTrial)
	}
	def, err := tiers.Lookup(tier)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Unknown subscription tier"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	quota, err := metering.NewServiceFromDB(db).CurrentUsage(ctx, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load usage"})
	}

	response := fiber.Map{
		"id":                   account.ID,
		"username":             account.Name,
		"email":                account.Email,
		"status":               account.Status,
		"company_name":         account.CompanyName,
		"company_country":      account.CompanyCountry,
		"tier":                 tier,
		"avatar_url":           utils.GetGravatarURL(account.Email, 200),
		"is_admin":             account.Role == models.ROLE_ADMIN,
		"created_at":           account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":        formatTimePtr(account.LastLoginAt),
		"api_key_last_used_at": formatTimePtr(settings.APIKeyLastUsedAt),
		"api_key_requests":     settings.APIKeyRequestCount,
		"usage": fiber.Map{
			"analyses_used":      quota.Used,
			"analyses_limit":     quota.Limit,
			"analyses_remaining": quota.Remaining,
			"period_end":         quota.PeriodEnd.UTC().Format(time.RFC3339),
		},
		"entitlements": fiber.Map{
			"monthly_quota":    def.MonthlyQuota,
			"api_access":       def.APIAccess,
			"priority_support": def.PrioritySupport,
			"watermark":        def.Watermark,
		},
	}

	return c.JSON(response)
}

// HandleIssueAPIKey issues (or rotates) the user's API key. The raw key is
// returned exactly once; only its hash is stored.
func HandleIssueAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	def, err := tiers.Lookup(settings.SubscriptionTier)
	if err != nil || !def.APIAccess {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "API access requires the Premium tier"})
	}

	rawKey, err := settings.IssueAPIKey()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if err := db.Save(settings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{
		"api_key":    rawKey,
		"prefix":     settings.APIKeyPrefix,
		"created_at": formatTimePtr(settings.APIKeyCreatedAt),
	})
}

// HandleRevokeAPIKey revokes the user's API key.
func HandleRevokeAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	settings.RevokeAPIKey()
	if err := db.Save(settings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{"ok": true})
}

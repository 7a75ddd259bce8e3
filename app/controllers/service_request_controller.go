package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/DorianVeras/TradeGate/app/models"
	"github.com/DorianVeras/TradeGate/app/repository"
	"github.com/DorianVeras/TradeGate/internal/pkg/env"
	"github.com/DorianVeras/TradeGate/internal/pkg/security"
	"github.com/DorianVeras/TradeGate/internal/pkg/usercontext"
)

const shareTokenTTL = 7 * 24 * time.Hour

// Fixed-price professional services. Prices are in cents.
var servicePrices = map[string]int64{
	"supplier_verification":  19900,
	"customs_audit":          49900,
	"classification_support": 29900,
}

type createServiceRequest struct {
	ServiceType string `json:"service_type"`
	Description string `json:"description"`
}

// HandleCreateServiceRequest records a one-time professional-service order.
// Payment happens through the processor checkout; the webhook marks it paid.
func HandleCreateServiceRequest(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var req createServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "malformed request body"})
	}
	serviceType := strings.TrimSpace(req.ServiceType)
	price, ok := servicePrices[serviceType]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown service type"})
	}

	request := &models.ServiceRequest{
		UserID:      userCtx.UserID,
		ServiceType: serviceType,
		Description: strings.TrimSpace(req.Description),
		PriceCents:  price,
		Status:      models.ServiceRequestStatusPending,
	}
	repo := repository.GetGlobalFactory().GetServiceRequestRepository()
	if err := repo.Create(request); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"uuid":         request.UUID,
		"service_type": request.ServiceType,
		"price_cents":  request.PriceCents,
		"status":       request.Status,
	})
}

// HandleListServiceRequests returns the authenticated user's service orders.
func HandleListServiceRequests(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	repo := repository.GetGlobalFactory().GetServiceRequestRepository()
	requests, err := repo.GetByUserID(userCtx.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	out := make([]fiber.Map, 0, len(requests))
	for _, r := range requests {
		out = append(out, fiber.Map{
			"uuid":         r.UUID,
			"service_type": r.ServiceType,
			"price_cents":  r.PriceCents,
			"status":       r.Status,
			"paid_at":      formatTimePtr(r.PaidAt),
			"created_at":   r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{"service_requests": out})
}

// HandleShareServiceRequest issues a signed read-only link for one service
// request, e.g. to forward to a customs broker.
func HandleShareServiceRequest(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	uuid := strings.TrimSpace(c.Params("uuid"))
	repo := repository.GetGlobalFactory().GetServiceRequestRepository()
	request, err := repo.GetByUUID(uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if request.UserID != userCtx.UserID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	secret := env.GetEnv("SHARE_TOKEN_SECRET", "")
	token, err := security.GenerateShareToken(userCtx.UserID, request.UUID, shareTokenTTL, secret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": time.Now().Add(shareTokenTTL).UTC().Format(time.RFC3339),
	})
}

// HandleSharedServiceRequest resolves a signed share link without a session.
func HandleSharedServiceRequest(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "token is required"})
	}

	secret := env.GetEnv("SHARE_TOKEN_SECRET", "")
	claims, err := security.VerifyShareToken(token, secret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_token"})
	}

	repo := repository.GetGlobalFactory().GetServiceRequestRepository()
	request, err := repo.GetByUUID(claims.RequestUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if request.UserID != claims.UserID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	return c.JSON(fiber.Map{
		"uuid":         request.UUID,
		"service_type": request.ServiceType,
		"status":       request.Status,
		"paid_at":      formatTimePtr(request.PaidAt),
		"created_at":   request.CreatedAt.UTC().Format(time.RFC3339),
	})
}

package apiv1

import (
	"github.com/DorianVeras/TradeGate/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

// ServerInterface lists the operations of the public v1 API. The OpenAPI
// document at public/docs/v1/openapi.yml describes the same surface.
type ServerInterface interface {
	GetPing(c *fiber.Ctx) error
	GetUserAccount(c *fiber.Ctx) error
	GetSubscription(c *fiber.Ctx) error
	PostSubscriptionUpdate(c *fiber.Ctx) error
	GetUsageCheck(c *fiber.Ctx) error
	GetUsage(c *fiber.Ctx) error
	PostAnalysis(c *fiber.Ctx) error
	PostServiceRequest(c *fiber.Ctx) error
	GetServiceRequests(c *fiber.Ctx) error
	PostServiceRequestShare(c *fiber.Ctx) error
	PostAPIKeyIssue(c *fiber.Ctx) error
	PostAPIKeyRevoke(c *fiber.Ctx) error
}

// RegisterHandlers attaches the v1 operations to the given router group.
// Every operation except ping requires a logged-in session.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	router.Get("/ping", si.GetPing)

	authed := router.Group("", middleware.RequireAPISessionAuth)
	authed.Get("/account", si.GetUserAccount)
	authed.Get("/subscription", si.GetSubscription)
	authed.Post("/subscription/update", si.PostSubscriptionUpdate)
	authed.Get("/usage/check", si.GetUsageCheck)
	authed.Get("/usage", si.GetUsage)
	authed.Post("/analyses", si.PostAnalysis)
	authed.Post("/service-requests", si.PostServiceRequest)
	authed.Get("/service-requests", si.GetServiceRequests)
	authed.Post("/service-requests/:uuid/share", si.PostServiceRequestShare)
	authed.Post("/account/api-key", si.PostAPIKeyIssue)
	authed.Post("/account/api-key/revoke", si.PostAPIKeyRevoke)
}

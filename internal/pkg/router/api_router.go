package router

import (
	"github.com/DorianVeras/TradeGate/app/controllers"
	apiv1 "github.com/DorianVeras/TradeGate/internal/api/v1"
	"github.com/DorianVeras/TradeGate/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes (session auth)
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlers(v1, apiServer)

	// Programmatic access for Premium API keys
	ext := api.Group("/ext/v1", middleware.APIKeyAuthMiddleware())
	ext.Post("/analysis", controllers.HandleCreateAnalysis)
	ext.Get("/usage", controllers.HandleCurrentUsage)
	ext.Get("/usage/check", controllers.HandleUsageCheck)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

package router

import (
	"github.com/DorianVeras/TradeGate/app/controllers"
	"github.com/DorianVeras/TradeGate/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/stats", controllers.HandleAdminStats)

	// Plan mapping management
	adminGroup.Get("/plan-mappings", controllers.HandleAdminListPlanMappings)
	adminGroup.Post("/plan-mappings", controllers.HandleAdminUpsertPlanMapping)
}

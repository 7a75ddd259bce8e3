package router

import (
	"github.com/DorianVeras/TradeGate/app/controllers"
	"github.com/DorianVeras/TradeGate/internal/pkg/constants"
	"github.com/DorianVeras/TradeGate/internal/pkg/middleware"
	"github.com/DorianVeras/TradeGate/internal/pkg/statistics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	group := app.Group("", cors.New())

	group.Get("/", loggedInMiddleware, func(c *fiber.Ctx) error {
		data := statistics.GetStatisticsData()
		return c.JSON(fiber.Map{
			"service":              "tradegate",
			"total_analyses":       data.TotalAnalyses,
			"total_users":          data.TotalUsers,
			"active_subscriptions": data.ActiveSubscriptions,
		})
	})

	// Auth
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Get("/activate", loggedInMiddleware, controllers.HandleAuthActivate)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Payment processor webhooks (no session, signature-verified in controller)
	app.Post(constants.BillingEventsRoute, controllers.HandleBillingWebhook)

	// Shared service-request links (no session, token-verified in controller)
	app.Get(constants.SharedRequestRoute, controllers.HandleSharedServiceRequest)
}

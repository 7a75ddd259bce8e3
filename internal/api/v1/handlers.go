package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/DorianVeras/TradeGate/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// GetUserAccount returns account information for the authenticated user.
// Security is enforced via the middleware attached in the router.
func (s *APIServer) GetUserAccount(c *fiber.Ctx) error {
	return controllers.HandleGetUserAccount(c)
}

// GetSubscription returns the caller's subscription state.
func (s *APIServer) GetSubscription(c *fiber.Ctx) error {
	return controllers.HandleGetSubscription(c)
}

// PostSubscriptionUpdate applies a self-service tier change.
func (s *APIServer) PostSubscriptionUpdate(c *fiber.Ctx) error {
	return controllers.HandleUpdateSubscription(c)
}

// GetUsageCheck answers whether one more analysis may start.
func (s *APIServer) GetUsageCheck(c *fiber.Ctx) error {
	return controllers.HandleUsageCheck(c)
}

// GetUsage returns the cached usage counter.
func (s *APIServer) GetUsage(c *fiber.Ctx) error {
	return controllers.HandleCurrentUsage(c)
}

// PostAnalysis runs one compliance analysis.
func (s *APIServer) PostAnalysis(c *fiber.Ctx) error {
	return controllers.HandleCreateAnalysis(c)
}

// PostServiceRequest records a one-time professional-service order.
func (s *APIServer) PostServiceRequest(c *fiber.Ctx) error {
	return controllers.HandleCreateServiceRequest(c)
}

// GetServiceRequests lists the caller's service orders.
func (s *APIServer) GetServiceRequests(c *fiber.Ctx) error {
	return controllers.HandleListServiceRequests(c)
}

// PostServiceRequestShare issues a signed read-only link for a service order.
func (s *APIServer) PostServiceRequestShare(c *fiber.Ctx) error {
	return controllers.HandleShareServiceRequest(c)
}

// PostAPIKeyIssue issues or rotates the caller's API key.
func (s *APIServer) PostAPIKeyIssue(c *fiber.Ctx) error {
	return controllers.HandleIssueAPIKey(c)
}

// PostAPIKeyRevoke revokes the caller's API key.
func (s *APIServer) PostAPIKeyRevoke(c *fiber.Ctx) error {
	return controllers.HandleRevokeAPIKey(c)
}

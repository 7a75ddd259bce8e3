package constants

// Static route constants
const (
	PublicRoute        = "/"
	LoginRoute         = "/login"
	BillingEventsRoute = "/billing/events"
	SharedRequestRoute = "/service-requests/shared"
)

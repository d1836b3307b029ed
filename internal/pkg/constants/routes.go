package constants

// API route constants
const (
	APIRoute   = "/api"
	APIV1Route = "/v1"

	AuthRegisterRoute = "/auth/register"
	AuthLoginRoute    = "/auth/login"

	SubscriptionPlansRoute    = "/subscription/plans"
	SubscriptionCheckoutRoute = "/subscription/checkout"
	SubscriptionUsageRoute    = "/subscription/usage"
	SubscriptionHistoryRoute  = "/subscription/usage/history"
	SubscriptionOrdersRoute   = "/subscription/orders"

	GenerateRoute = "/generate"

	CreemWebhookRoute = "/webhooks/creem"
)

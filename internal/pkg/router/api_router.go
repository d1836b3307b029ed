package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/typix-ai/Typix/app/controllers"
	"github.com/typix-ai/Typix/internal/pkg/constants"
	"github.com/typix-ai/Typix/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group(constants.APIV1Route)

	// Public routes: registration, login, pricing and the payment webhook.
	// The webhook authenticates itself via its HMAC signature, never via an
	// API key.
	v1.Post(constants.AuthRegisterRoute, controllers.HandleAPIRegister)
	v1.Post(constants.AuthLoginRoute, controllers.HandleAPILogin)
	v1.Get(constants.SubscriptionPlansRoute, controllers.HandleGetPlans)
	v1.Post(constants.CreemWebhookRoute, controllers.HandleCreemWebhook)

	// Everything else requires a valid API key.
	protected := v1.Group("", middleware.APIKeyAuthMiddleware())
	protected.Post(constants.SubscriptionCheckoutRoute, controllers.HandleCreateCheckout)
	protected.Get(constants.SubscriptionUsageRoute, controllers.HandleGetUsage)
	protected.Get(constants.SubscriptionHistoryRoute, controllers.HandleGetUsageHistory)
	protected.Get(constants.SubscriptionOrdersRoute, controllers.HandleGetOrderHistory)
	protected.Post(constants.GenerateRoute, controllers.HandleCreateGeneration)
	protected.Get(constants.GenerateRoute, controllers.HandleListGenerations)
	protected.Get(constants.GenerateRoute+"/:id", controllers.HandleGetGeneration)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

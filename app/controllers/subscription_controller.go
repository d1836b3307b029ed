package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/typix-ai/Typix/internal/pkg/usercontext"
)

type checkoutRequest struct {
	PlanID string `json:"plan_id"`
}

// HandleGetPlans returns the purchasable product catalog.
func HandleGetPlans(c *fiber.Ctx) error {
	catalog := subscriptionService().Catalog()

	products := make([]fiber.Map, 0, len(catalog.Products))
	for _, product := range catalog.Products {
		plans := make([]fiber.Map, 0, len(product.Plans))
		for _, plan := range product.Plans {
			plans = append(plans, fiber.Map{
				"id":           plan.ID,
				"billing_type": plan.BillingType,
				"interval":     plan.Interval,
				"list_price":   plan.ListPrice,
				"price":        plan.Price,
			})
		}
		products = append(products, fiber.Map{
			"tier":        string(product.Tier),
			"description": product.Description,
			"credits":     product.Credits,
			"plans":       plans,
		})
	}

	return c.JSON(fiber.Map{"products": products})
}

// HandleCreateCheckout starts a hosted checkout session for the current user.
func HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_parameter", "message": "Invalid request body"})
	}

	checkoutURL, err := subscriptionService().CreateCheckout(c.Context(), userCtx.UserID, userCtx.Email, req.PlanID)
	if err != nil {
		return apiError(c, err)
	}

	return c.JSON(fiber.Map{"checkout_url": checkoutURL})
}

// HandleCreemWebhook receives payment provider callbacks. The signature is
// verified over the exact raw body, so the payload must not be parsed into a
// struct and re-serialized before verification.
func HandleCreemWebhook(c *fiber.Ctx) error {
	payload := c.BodyRaw()
	signature := c.Get("creem-signature")

	result, err := subscriptionService().HandleWebhook(c.Context(), payload, signature)
	if err != nil {
		return apiError(c, err)
	}

	switch {
	case result.Ignored:
		return c.JSON(fiber.Map{"status": "ignored"})
	case result.Duplicate:
		return c.JSON(fiber.Map{"status": "duplicate"})
	default:
		return c.JSON(fiber.Map{"status": "processed", "order_id": result.OrderID})
	}
}

// HandleGetUsage returns the current credit balance and entitlement window.
func HandleGetUsage(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	report, err := subscriptionService().GetUsage(c.Context(), userCtx.UserID)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(report)
}

// HandleGetUsageHistory returns the credit ledger entries, newest first.
func HandleGetUsageHistory(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	entries, err := subscriptionService().GetUsageHistory(c.Context(), userCtx.UserID)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"history": entries})
}

// HandleGetOrderHistory returns the user's orders, newest first.
func HandleGetOrderHistory(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	orders, err := subscriptionService().GetOrderHistory(c.Context(), userCtx.UserID)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"orders": orders})
}

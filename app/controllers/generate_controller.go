package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/typix-ai/Typix/internal/pkg/usercontext"
)

type generateRequest struct {
	Prompt  string `json:"prompt"`
	ModelID string `json:"model_id"`
}

// HandleCreateGeneration runs one image generation for the current user.
func HandleCreateGeneration(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_parameter", "message": "Invalid request body"})
	}

	generation, err := generateService().Generate(c.Context(), userCtx.UserID, req.ModelID, req.Prompt)
	if err != nil {
		return apiError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(generation)
}

// HandleGetGeneration returns one of the user's generations by id.
func HandleGetGeneration(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	generationID, err := c.ParamsInt("id")
	if err != nil || generationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_parameter", "message": "Invalid generation id"})
	}

	generation, err := generateService().GetGeneration(c.Context(), userCtx.UserID, uint(generationID))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(generation)
}

// HandleListGenerations returns the user's generations, newest first.
func HandleListGenerations(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	generations, err := generateService().ListGenerations(c.Context(), userCtx.UserID)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"generations": generations})
}

package controllers

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/typix-ai/Typix/internal/pkg/database"
	"github.com/typix-ai/Typix/internal/pkg/generate"
	"github.com/typix-ai/Typix/internal/pkg/subscription"
)

var (
	servicesOnce    sync.Once
	subscriptionSvc *subscription.Service
	generateSvc     *generate.Service
)

// InitServices wires the controllers with explicit service instances. Tests
// use it to inject services backed by their own DB and fake providers.
func InitServices(subSvc *subscription.Service, genSvc *generate.Service) {
	subscriptionSvc = subSvc
	generateSvc = genSvc
}

func subscriptionService() *subscription.Service {
	servicesOnce.Do(func() {
		if subscriptionSvc == nil {
			subscriptionSvc = subscription.NewServiceFromDB(database.GetDB())
		}
		if generateSvc == nil {
			generateSvc = generate.NewService(database.GetDB(), subscriptionSvc, generate.NewFalClientFromEnv())
		}
	})
	return subscriptionSvc
}

func generateService() *generate.Service {
	subscriptionService()
	return generateSvc
}

// apiError writes the JSON error shape shared by all API handlers. The kind
// of a tagged domain error decides the HTTP status.
func apiError(c *fiber.Ctx, err error) error {
	kind := subscription.KindOf(err)
	return c.Status(kind.HTTPStatus()).JSON(fiber.Map{
		"error":   string(kind),
		"message": subscription.MessageOf(err),
	})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

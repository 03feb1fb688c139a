package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/coaching-center-api/internal/config"
	"github.com/noah-isme/coaching-center-api/internal/handler"
	"github.com/noah-isme/coaching-center-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	BatchHandler    *handler.BatchHandler
	ActivityHandler *handler.AdminActivityHandler
	Guards          handler.Guards
	HealthProbes    map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), deps.Guards)
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users"), deps.Guards)
	}

	if deps.BatchHandler != nil {
		deps.BatchHandler.Register(api.Group("/batches"), deps.Guards)
		deps.BatchHandler.RegisterStandards(api.Group("/standards"), deps.Guards)
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/admin/activity"), deps.Guards)
	}
}

package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/career-agent-api/internal/config"
	"github.com/noah-isme/career-agent-api/internal/handler"
	"github.com/noah-isme/career-agent-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	RoadmapHandler  *handler.RoadmapHandler
	ProgressHandler *handler.ProgressHandler
	InsightHandler  *handler.InsightHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	career := app.Group("/api/v2/career", jwtMiddleware)

	if deps.RoadmapHandler != nil {
		// AI-backed routes get a tighter per-user limit; each call is a model request
		career.Use("/roadmap/id/:id/regenerate", middleware.RateLimit("regenerate", cfg.AIRateLimit, time.Minute))
		career.Use("/roadmap/id/:id/chat", middleware.RateLimit("chat", cfg.AIRateLimit, time.Minute))
		deps.RoadmapHandler.Register(career)
	}

	if deps.ProgressHandler != nil {
		deps.ProgressHandler.Register(career)
	}

	if deps.InsightHandler != nil {
		for _, route := range []string{"skills-gap", "weekly-plan", "explain-step", "mock-interview"} {
			career.Use("/roadmap/id/:id/"+route, middleware.RateLimit(route, cfg.AIRateLimit, time.Minute))
		}
		deps.InsightHandler.Register(career)
	}
}

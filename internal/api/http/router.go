package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-tracker/internal/api/http/handlers"
	"github.com/spec-kit/sla-tracker/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Policies       *handlers.PoliciesHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/at-risk", cfg.Tickets.ListAtRisk)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)

	policies := app.Group("/policies", cfg.AuthMiddleware.Handle)
	policies.Get("/", cfg.Policies.ListPolicies)
	policies.Patch("/:id", cfg.Policies.UpdatePolicy)

	metrics := app.Group("/metrics", cfg.AuthMiddleware.Handle)
	metrics.Get("/summary", cfg.Metrics.Summary)
	metrics.Get("/daily-trend", cfg.Metrics.DailyTrend)
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/e1ixyz/ReportSystem-sub000/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Reports *handlers.ReportsHandler
	Tickets *handlers.TicketsHandler
	Ops     *handlers.OpsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Ops.Live)
	app.Get("/health/ready", cfg.Ops.Ready)

	api := app.Group("/api")
	api.Post("/reports", cfg.Reports.File)

	api.Get("/tickets", cfg.Tickets.List)
	api.Get("/tickets/search", cfg.Tickets.Search)
	api.Get("/tickets/:id", cfg.Tickets.Get)
	api.Get("/tickets/:id/evidence", cfg.Tickets.Evidence)
	api.Post("/tickets/:id/assign", cfg.Tickets.Assign)
	api.Post("/tickets/:id/unassign", cfg.Tickets.Unassign)
	api.Post("/tickets/:id/close", cfg.Tickets.Close)
	api.Post("/tickets/:id/reopen", cfg.Tickets.Reopen)

	api.Get("/debug/summary", cfg.Ops.Summary)
	api.Post("/admin/reload", cfg.Ops.Reload)
}

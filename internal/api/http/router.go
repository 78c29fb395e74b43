package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/guest-services/internal/api/http/handlers"
	"github.com/spec-kit/guest-services/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Threads        *handlers.ThreadsHandler
	Staff          *handlers.StaffHandler
	Realtime       *handlers.RealtimeHandler
	AuthMiddleware *auth.AuthMiddleware
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/v1", cfg.AuthMiddleware.Handle, auth.RequireAnyPrincipal())
	staffOnly := auth.RequireStaff()

	tickets := v1.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", staffOnly, cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/notes", staffOnly, cfg.Tickets.AddNote)
	tickets.Get("/:id/history", staffOnly, cfg.Tickets.History)

	threads := v1.Group("/threads")
	threads.Post("/", cfg.Threads.CreateThread)
	threads.Get("/:id", cfg.Threads.GetThread)
	threads.Patch("/:id", staffOnly, cfg.Threads.UpdateThread)
	threads.Post("/:id/archive", staffOnly, cfg.Threads.ArchiveThread)
	threads.Post("/:id/read", cfg.Threads.MarkRead)
	threads.Get("/:id/messages", cfg.Threads.ListMessages)
	threads.Post("/:id/messages", cfg.Threads.PostMessage)
	threads.Post("/:id/notes", staffOnly, cfg.Threads.AddNote)
	threads.Get("/:id/history", staffOnly, cfg.Threads.History)

	staff := v1.Group("/staff", staffOnly)
	staff.Get("/", cfg.Staff.ListStaff)
	staff.Get("/:id", cfg.Staff.GetStaff)

	v1.Get("/realtime/stream", cfg.Realtime.Stream)
}

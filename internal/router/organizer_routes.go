package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/handler"    // organizer handlers
	"github.com/iliyamo/event-ticket-booking/internal/middleware" // JWT + role middlewares
	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// RegisterOrganizer registers ORGANIZER-scoped endpoints under /v1.
// All routes require a valid JWT and ORGANIZER role.
func RegisterOrganizer(e *echo.Echo, ev *handler.EventHandler, jwtSecret string) {
	// Attach middlewares at group construction time for clarity.
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOrganizer),
	)

	// ---- Events ----
	// NOTE: Listing events is handled by the public browse API to avoid
	// route conflicts with the public /v1/events handler.
	g.POST("/events", ev.Create)
	g.PUT("/events/:id", ev.Update)
	g.PATCH("/events/:id", ev.Update) // allow partial/semantic updates via PATCH as well
	g.DELETE("/events/:id", ev.Delete)
}

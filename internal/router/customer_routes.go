package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/handler"
	"github.com/iliyamo/event-ticket-booking/internal/middleware"
	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// RegisterCustomer registers the booking endpoints under /v1.  All routes
// require a valid JWT; any authenticated role may book, since organizers
// buy seats for their own events too.  Callers can place holds on seats,
// inspect and refresh them, open payment intents, purchase held seats
// and view their own orders.  limitMW, when non-nil, rate limits the
// write-heavy hold and purchase endpoints.
func RegisterCustomer(e *echo.Echo, holds *handler.HoldHandler, pay *handler.PaymentHandler, buy *handler.PurchaseHandler, jwtSecret string, limitMW echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleOrganizer),
	)

	limited := []echo.MiddlewareFunc{}
	if limitMW != nil {
		limited = append(limited, limitMW)
	}

	// ---- Holds ----
	g.POST("/events/:id/holds", holds.Grant, limited...)
	g.GET("/holds/:holdId", holds.Details)
	g.GET("/holds/:holdId/ttl", holds.TTL)
	g.POST("/holds/:holdId/refresh", holds.Refresh, limited...)
	g.DELETE("/holds/:holdId", holds.Cancel)

	// ---- Payments ----
	g.POST("/payments/intent", pay.CreateIntent)
	g.POST("/payments/confirm", pay.Confirm)

	// ---- Purchase ----
	g.POST("/purchase", buy.Purchase, limited...)
	g.GET("/my-orders", buy.MyOrders)
}

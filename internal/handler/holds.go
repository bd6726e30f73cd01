package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/hold"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// HoldHandler exposes the seat hold lifecycle: grant, inspect, refresh
// and cancel.  All state lives in the lease store; the handler only
// translates between HTTP and the hold manager.
type HoldHandler struct {
	Events *repository.EventRepo
	Holds  *hold.Manager
}

func NewHoldHandler(events *repository.EventRepo, holds *hold.Manager) *HoldHandler {
	if events == nil || holds == nil {
		panic("nil dependency passed to NewHoldHandler")
	}
	return &HoldHandler{Events: events, Holds: holds}
}

type grantReq struct {
	SeatIDs []string `json:"seat_ids"`
}

type holdRefreshReq struct {
	ExtendSeconds int `json:"extend_seconds"`
}

// Grant acquires an all-or-nothing hold on the requested seats.
func (h *HoldHandler) Grant(c echo.Context) error {
	eventID := c.Param("id")

	var req grantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Events.GetByID(ctx, eventID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}

	grant, err := h.Holds.Grant(ctx, eventID, req.SeatIDs)
	if err != nil {
		var conflict *hold.SeatConflictError
		switch {
		case errors.As(err, &conflict):
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "seats unavailable",
				"seats": conflict.Seats,
			})
		case errors.Is(err, hold.ErrInvalidSeats):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown seat ids"})
		case errors.Is(err, repository.ErrRosterNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event has no seat roster"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant hold failed"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"hold_id":       grant.HoldID,
		"lease_seconds": grant.LeaseSeconds,
	})
}

// Cancel releases a hold.  Cancelling an unknown or expired hold is a
// success: the desired end state already holds.
func (h *HoldHandler) Cancel(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Holds.Cancel(ctx, c.Param("holdId")); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel hold failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// TTL reports the remaining lease time.  Expired and unknown holds both
// report zero; the two cases are indistinguishable once the keys are gone.
func (h *HoldHandler) TTL(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ttl, err := h.Holds.TTL(ctx, c.Param("holdId"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ttl lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hold_id":     c.Param("holdId"),
		"ttl_seconds": int(ttl / time.Second),
	})
}

// Details reconstructs a hold's event and seats from the lease store.
func (h *HoldHandler) Details(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Holds.Details(ctx, c.Param("holdId"))
	if err != nil {
		if errors.Is(err, hold.ErrHoldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hold not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hold lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hold_id":     d.HoldID,
		"event_id":    d.EventID,
		"seat_ids":    d.SeatIDs,
		"ttl_seconds": int(d.TTL / time.Second),
	})
}

// Refresh extends a live hold's lease and returns the new TTL.
func (h *HoldHandler) Refresh(c echo.Context) error {
	var req holdRefreshReq
	_ = c.Bind(&req) // empty body means "extend by the default lease"
	if req.ExtendSeconds < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "extend_seconds must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ttl, err := h.Holds.Refresh(ctx, c.Param("holdId"), time.Duration(req.ExtendSeconds)*time.Second)
	if err != nil {
		if errors.Is(err, hold.ErrHoldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hold not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh hold failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hold_id":     c.Param("holdId"),
		"ttl_seconds": int(ttl / time.Second),
	})
}

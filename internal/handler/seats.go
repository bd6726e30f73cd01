package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/lease"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// SeatHandler serves the seat map for an event.  Durable state comes
// from the roster; live holds are overlaid from the lease store at read
// time, so the view is a best-effort snapshot that can go stale the
// moment it is produced.
type SeatHandler struct {
	Events *repository.EventRepo
	Seats  *repository.SeatRepo
	Leases lease.Store
	Rows   int
	Cols   int
}

func NewSeatHandler(events *repository.EventRepo, seats *repository.SeatRepo, leases lease.Store, rows, cols int) *SeatHandler {
	if events == nil || seats == nil || leases == nil {
		panic("nil dependency passed to NewSeatHandler")
	}
	if rows <= 0 {
		rows = 5
	}
	if cols <= 0 {
		cols = 10
	}
	return &SeatHandler{Events: events, Seats: seats, Leases: leases, Rows: rows, Cols: cols}
}

// List returns every seat of the event with its derived state.  The
// roster is provisioned on first access for events created before seat
// maps existed.
func (h *SeatHandler) List(c echo.Context) error {
	eventID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Events.GetByID(ctx, eventID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}

	roster, err := h.Seats.EnsureRoster(ctx, eventID, h.Rows, h.Cols)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load seats failed"})
	}

	views := make([]model.SeatView, 0, len(roster))
	for _, s := range roster {
		state := model.SeatStateAvailable
		if s.State == model.SeatStateReserved {
			state = model.SeatStateReserved
		} else {
			v, err := h.Leases.Get(ctx, lease.LockKey(eventID, s.SeatID))
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load seats failed"})
			}
			if v != "" {
				state = model.SeatStateHeld
			}
		}
		views = append(views, model.SeatView{
			SeatID: s.SeatID,
			Row:    s.Row,
			Number: s.Number,
			State:  state,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": eventID, "seats": views})
}

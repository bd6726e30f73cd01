package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// EventHandler serves the event catalog: organizer-scoped CRUD plus the
// public listing and detail endpoints.
type EventHandler struct {
	Events *repository.EventRepo
	Seats  *repository.SeatRepo
	Rows   int // roster rows generated when an event is created
	Cols   int // seats per roster row
}

func NewEventHandler(events *repository.EventRepo, seats *repository.SeatRepo, rows, cols int) *EventHandler {
	if events == nil || seats == nil {
		panic("nil repository passed to NewEventHandler")
	}
	if rows <= 0 {
		rows = 5
	}
	if cols <= 0 {
		cols = 10
	}
	return &EventHandler{Events: events, Seats: seats, Rows: rows, Cols: cols}
}

type eventReq struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Date        string   `json:"date"` // RFC3339
	Location    *string  `json:"location"`
	Tags        []string `json:"tags"`
}

type eventResp struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Date        string   `json:"date"`
	Location    *string  `json:"location,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	OrganizerID uint64   `json:"organizer_id"`
}

func toEventResp(ev *model.Event) eventResp {
	return eventResp{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Date:        ev.Date.UTC().Format(time.RFC3339),
		Location:    ev.Location,
		Tags:        ev.Tags,
		OrganizerID: ev.OrganizerID,
	}
}

// Create registers a new event for the authenticated organizer and lazily
// provisions its seat roster.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title/date required"})
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be RFC3339"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev := &model.Event{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		Tags:        req.Tags,
		OrganizerID: uid,
	}
	if err := h.Events.Create(ctx, ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	if _, err := h.Seats.EnsureRoster(ctx, ev.ID, h.Rows, h.Cols); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create roster failed"})
	}
	return c.JSON(http.StatusCreated, toEventResp(ev))
}

// Update replaces the mutable fields of an event owned by the caller.
func (h *EventHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title/date required"})
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be RFC3339"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev := &model.Event{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		Tags:        req.Tags,
		OrganizerID: uid,
	}
	switch err := h.Events.Update(ctx, uid, ev); err {
	case nil:
	case repository.ErrEventNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
	}
	return c.JSON(http.StatusOK, toEventResp(ev))
}

// Delete removes an event owned by the caller.
func (h *EventHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Events.Delete(ctx, id, uid); err {
	case nil:
	case repository.ErrEventNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete event failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// List is the public catalog endpoint with optional title/tag filters.
func (h *EventHandler) List(c echo.Context) error {
	q := repository.EventSearchQuery{
		Title: strings.TrimSpace(c.QueryParam("title")),
		Tag:   strings.TrimSpace(c.QueryParam("tag")),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			q.Limit = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.List(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list events failed"})
	}
	out := make([]eventResp, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResp(ev))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Get returns one event by id.
func (h *EventHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	return c.JSON(http.StatusOK, toEventResp(ev))
}

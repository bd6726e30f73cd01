package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/purchase"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// PurchaseHandler converts a hold into a durable order and lists the
// caller's order history.
type PurchaseHandler struct {
	Coordinator *purchase.Coordinator
	Orders      *repository.OrderRepo
}

func NewPurchaseHandler(coord *purchase.Coordinator, orders *repository.OrderRepo) *PurchaseHandler {
	if coord == nil || orders == nil {
		panic("nil dependency passed to NewPurchaseHandler")
	}
	return &PurchaseHandler{Coordinator: coord, Orders: orders}
}

type purchaseReq struct {
	EventID    string   `json:"event_id"`
	HoldID     string   `json:"hold_id"`
	SeatIDs    []string `json:"seat_ids"`
	PaymentRef string   `json:"payment_ref"`
}

// Purchase commits the purchase.  Retries must carry the same
// Idempotency-Key header; a replayed key returns the original order
// without touching payment, locks or inventory again.
func (h *PurchaseHandler) Purchase(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req purchaseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	resp, err := h.Coordinator.Purchase(ctx, purchase.Request{
		UserID:         uid,
		EventID:        req.EventID,
		HoldID:         req.HoldID,
		SeatIDs:        req.SeatIDs,
		PaymentRef:     req.PaymentRef,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		var conflict *purchase.HoldConflictError
		switch {
		case errors.Is(err, purchase.ErrInvalidPayload):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id, hold_id, seat_ids and payment_ref required"})
		case errors.Is(err, purchase.ErrPaymentRequired):
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment not completed"})
		case errors.As(err, &conflict):
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "hold no longer valid",
				"seat":  conflict.SeatID,
			})
		case errors.Is(err, repository.ErrSeatAlreadyReserved):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seats already sold"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "purchase failed"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"order_id": resp.OrderID,
		"event_id": resp.EventID,
		"seat_ids": resp.SeatIDs,
		"status":   resp.Status,
	})
}

type orderResp struct {
	OrderID    string   `json:"order_id"`
	EventID    string   `json:"event_id"`
	SeatIDs    []string `json:"seat_ids"`
	PaymentRef string   `json:"payment_ref"`
	Status     string   `json:"status"`
	CreatedAt  string   `json:"created_at"`
}

// MyOrders lists the caller's orders, newest first.
func (h *PurchaseHandler) MyOrders(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, err := h.Orders.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list orders failed"})
	}
	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderResp{
			OrderID:    o.ID,
			EventID:    o.EventID,
			SeatIDs:    o.SeatIDs,
			PaymentRef: o.PaymentRef,
			Status:     o.Status,
			CreatedAt:  o.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": out})
}

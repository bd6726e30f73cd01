package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// PaymentHandler implements the simulated payment provider: intents are
// created in requires_confirmation and move to succeeded exactly once
// the matching client secret is presented.
type PaymentHandler struct {
	Payments *repository.PaymentRepo
}

func NewPaymentHandler(payments *repository.PaymentRepo) *PaymentHandler {
	if payments == nil {
		panic("nil repository passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: payments}
}

type intentReq struct {
	AmountCents uint32 `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type confirmReq struct {
	PaymentID    string `json:"payment_id"`
	ClientSecret string `json:"client_secret"`
}

// CreateIntent opens a new payment intent for the caller.
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req intentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.AmountCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents required"})
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	intent, err := h.Payments.Create(ctx, uid, req.AmountCents, currency)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create intent failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"payment_id":    intent.ID,
		"client_secret": intent.ClientSecret,
		"amount_cents":  intent.AmountCents,
		"currency":      intent.Currency,
		"status":        intent.Status,
	})
}

// Confirm moves an intent to succeeded.  Confirming an already
// succeeded intent is a no-op success.
func (h *PaymentHandler) Confirm(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req confirmReq
	if err := c.Bind(&req); err != nil || req.PaymentID == "" || req.ClientSecret == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_id and client_secret required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Payments.Confirm(ctx, req.PaymentID, req.ClientSecret); err {
	case nil:
	case repository.ErrPaymentNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
	case repository.ErrPaymentSecretMismatch:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "client secret mismatch"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirm failed"})
	}

	status, err := h.Payments.Status(ctx, req.PaymentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirm failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"payment_id": req.PaymentID,
		"status":     status,
	})
}

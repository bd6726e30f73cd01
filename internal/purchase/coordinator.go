// Package purchase implements the purchase coordinator: it reconciles a
// hold's lock ownership against a completed payment and commits a
// durable, idempotent order.  The coordinator owns the choice between
// the transactional commit and the explicit two-step fallback used when
// the durable store cannot promise multi-statement atomicity.
package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-booking/internal/lease"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// ErrInvalidPayload is returned when the request is missing required
// fields before any side effect is attempted.
var ErrInvalidPayload = errors.New("invalid purchase payload")

// ErrPaymentRequired is returned when the payment reference is unknown
// or has not reached the succeeded state.  Nothing durable is mutated.
var ErrPaymentRequired = errors.New("payment not completed")

// ErrReservationFailed wraps a failure inside the fallback commit after
// its re-check passed.  It is deliberately not retried here: the caller
// must retry with the same idempotency token, which is safe because the
// token check runs before any mutation.
var ErrReservationFailed = errors.New("reservation failed")

// HoldConflictError reports the first seat whose lock no longer belongs
// to the presented hold: expired, stolen by a later grant, or never
// held.  The purchase fails as a whole so the caller can send the user
// back to seat selection.
type HoldConflictError struct {
	SeatID string
}

func (e *HoldConflictError) Error() string {
	return fmt.Sprintf("hold conflict on seat %s", e.SeatID)
}

// InventoryStore is the durable store contract the coordinator needs.
// Stores that support multi-statement atomicity implement CommitPurchase
// as one unit; the remaining methods serve the fallback path.
type InventoryStore interface {
	SupportsTransactions() bool
	CommitPurchase(ctx context.Context, o *model.Order) error
	ReservedSeats(ctx context.Context, eventID string) (map[string]bool, error)
	ReserveSeats(ctx context.Context, eventID string, seatIDs []string) error
	CreateOrder(ctx context.Context, o *model.Order) error
}

// PaymentVerifier reports the recorded status of a payment reference.
type PaymentVerifier interface {
	Status(ctx context.Context, ref string) (string, error)
}

// ResponseCache is the idempotency cache contract.
type ResponseCache interface {
	Get(ctx context.Context, token string) ([]byte, bool, error)
	Put(ctx context.Context, token string, response []byte) error
}

// Publisher is notified after a successful purchase.  Publishing is
// best-effort; failures are logged, never surfaced.
type Publisher interface {
	OrderConfirmed(ctx context.Context, o *model.Order)
}

// Request carries one purchase attempt.
type Request struct {
	UserID         uint64
	EventID        string
	HoldID         string
	SeatIDs        []string
	PaymentRef     string
	IdempotencyKey string
}

// Response is what the caller receives and what the idempotency cache
// stores verbatim.
type Response struct {
	OrderID string   `json:"order_id"`
	EventID string   `json:"event_id"`
	SeatIDs []string `json:"seat_ids"`
	Status  string   `json:"status"`
}

// Coordinator validates and commits purchases.
type Coordinator struct {
	inventory InventoryStore
	leases    lease.Store
	payments  PaymentVerifier
	responses ResponseCache
	publisher Publisher
}

// NewCoordinator wires the coordinator's dependencies.  publisher may be
// nil when no broker is configured.
func NewCoordinator(inventory InventoryStore, leases lease.Store, payments PaymentVerifier, responses ResponseCache, publisher Publisher) *Coordinator {
	if inventory == nil || leases == nil || payments == nil || responses == nil {
		panic("nil dependency passed to purchase.NewCoordinator")
	}
	return &Coordinator{
		inventory: inventory,
		leases:    leases,
		payments:  payments,
		responses: responses,
		publisher: publisher,
	}
}

// Purchase executes the full purchase sequence.  Steps fail fast in
// order: idempotency replay, payment verification, lock ownership,
// durable commit, lease release, response caching.  Only the lease
// release is best-effort; a leftover lease on a now-reserved seat is
// harmless because ownership checks stop matching once it expires.
func (c *Coordinator) Purchase(ctx context.Context, req Request) (Response, error) {
	if req.EventID == "" || req.HoldID == "" || len(req.SeatIDs) == 0 || req.PaymentRef == "" {
		return Response{}, ErrInvalidPayload
	}
	// Deduplicate while preserving request order, the same normalization
	// grants apply; a repeated seat id would otherwise pass the lock
	// ownership check and then trip the reserved-row count in the commit.
	seen := make(map[string]struct{}, len(req.SeatIDs))
	seats := make([]string, 0, len(req.SeatIDs))
	for _, sid := range req.SeatIDs {
		if sid == "" {
			continue
		}
		if _, ok := seen[sid]; !ok {
			seen[sid] = struct{}{}
			seats = append(seats, sid)
		}
	}
	if len(seats) == 0 {
		return Response{}, ErrInvalidPayload
	}

	// Step 1: replay a cached response without re-executing anything.
	if req.IdempotencyKey != "" {
		cached, found, err := c.responses.Get(ctx, req.IdempotencyKey)
		if err != nil {
			return Response{}, fmt.Errorf("idempotency lookup: %w", err)
		}
		if found {
			var resp Response
			if err := json.Unmarshal(cached, &resp); err == nil {
				return resp, nil
			}
			// A corrupt cache entry falls through to a fresh attempt.
			log.Printf("purchase: discarding unreadable idempotency record for token %s", req.IdempotencyKey)
		}
	}

	// Step 2: the payment must already be in its terminal success state.
	status, err := c.payments.Status(ctx, req.PaymentRef)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return Response{}, ErrPaymentRequired
		}
		return Response{}, fmt.Errorf("payment status: %w", err)
	}
	if status != model.PaymentSucceeded {
		return Response{}, ErrPaymentRequired
	}

	// Step 3: every requested seat's lock must still belong to this hold.
	for _, sid := range seats {
		v, err := c.leases.Get(ctx, lease.LockKey(req.EventID, sid))
		if err != nil {
			return Response{}, fmt.Errorf("verify lock for %s: %w", sid, err)
		}
		if v != req.HoldID {
			return Response{}, &HoldConflictError{SeatID: sid}
		}
	}

	// Step 4: durable commit.
	order := &model.Order{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		EventID:    req.EventID,
		SeatIDs:    seats,
		PaymentRef: req.PaymentRef,
		Status:     model.OrderStatusReserved,
		CreatedAt:  time.Now().UTC(),
	}
	if c.inventory.SupportsTransactions() {
		if err := c.inventory.CommitPurchase(ctx, order); err != nil {
			return Response{}, err
		}
	} else if err := c.fallbackCommit(ctx, order); err != nil {
		return Response{}, err
	}

	// Step 5: release the lease group; a failure here cannot affect
	// correctness, so it is logged and swallowed.
	c.releaseHold(ctx, req.HoldID)

	resp := Response{
		OrderID: order.ID,
		EventID: order.EventID,
		SeatIDs: order.SeatIDs,
		Status:  order.Status,
	}

	// Step 6: persist the response under the token before returning.
	if req.IdempotencyKey != "" {
		b, err := json.Marshal(resp)
		if err == nil {
			if err := c.responses.Put(ctx, req.IdempotencyKey, b); err != nil {
				log.Printf("purchase: caching idempotency record failed: %v", err)
			}
		}
	}

	if c.publisher != nil {
		c.publisher.OrderConfirmed(ctx, order)
	}
	return resp, nil
}

// fallbackCommit is the best-effort two-step path for stores without
// multi-statement atomicity: re-check, write seats, write order.  A
// failure after the re-check passed surfaces as ErrReservationFailed and
// must not be retried blindly; the idempotency token is the safe retry
// channel.  The window between the seat write and the order insert is
// the documented weaker guarantee of this mode: seat state is the
// primary consistency signal, the order record is best-effort
// bookkeeping.
func (c *Coordinator) fallbackCommit(ctx context.Context, o *model.Order) error {
	reserved, err := c.inventory.ReservedSeats(ctx, o.EventID)
	if err != nil {
		return fmt.Errorf("fallback re-check: %w", err)
	}
	for _, sid := range o.SeatIDs {
		if reserved[sid] {
			return repository.ErrSeatAlreadyReserved
		}
	}
	if err := c.inventory.ReserveSeats(ctx, o.EventID, o.SeatIDs); err != nil {
		if errors.Is(err, repository.ErrSeatAlreadyReserved) {
			return err
		}
		return fmt.Errorf("%w: seat transition: %v", ErrReservationFailed, err)
	}
	if err := c.inventory.CreateOrder(ctx, o); err != nil {
		return fmt.Errorf("%w: order insert after seat transition: %v", ErrReservationFailed, err)
	}
	return nil
}

func (c *Coordinator) releaseHold(ctx context.Context, holdID string) {
	group := lease.GroupKey(holdID)
	members, err := c.leases.GroupMembers(ctx, group)
	if err != nil {
		log.Printf("purchase: listing lease group %s failed: %v", holdID, err)
		return
	}
	if len(members) > 0 {
		if err := c.leases.Delete(ctx, members...); err != nil {
			log.Printf("purchase: releasing lease members for %s failed: %v", holdID, err)
		}
	}
	if err := c.leases.Delete(ctx, group); err != nil {
		log.Printf("purchase: releasing lease group %s failed: %v", holdID, err)
	}
}

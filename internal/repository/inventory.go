package repository // repository assembles the durable inventory store facade

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// Inventory is the durable inventory store handed to the purchase
// coordinator.  MySQL supports multi-statement transactions, so
// SupportsTransactions reports true and the fallback path on the
// coordinator exists for stores that cannot make that promise.
type Inventory struct {
	db     *sql.DB
	seats  *SeatRepo
	orders *OrderRepo
}

// NewInventory builds the inventory facade over shared repositories.
func NewInventory(db *sql.DB, seats *SeatRepo, orders *OrderRepo) *Inventory {
	if db == nil || seats == nil || orders == nil {
		panic("nil dependency passed to NewInventory")
	}
	return &Inventory{db: db, seats: seats, orders: orders}
}

// SupportsTransactions reports whether seat transitions and the order
// insert can be committed as one atomic unit.
func (inv *Inventory) SupportsTransactions() bool { return true }

// ReservedSeats exposes the fallback path's re-check read.
func (inv *Inventory) ReservedSeats(ctx context.Context, eventID string) (map[string]bool, error) {
	return inv.seats.ReservedSeats(ctx, eventID)
}

// CommitPurchase transitions every seat of the order to reserved and
// inserts the order record in a single transaction.  The seat update's
// state guard turns any concurrent reservation into
// ErrSeatAlreadyReserved and rolls the whole unit back.
func (inv *Inventory) CommitPurchase(ctx context.Context, o *model.Order) error {
	tx, err := inv.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := inv.seats.ReserveSeatsTx(ctx, tx, o.EventID, o.SeatIDs); err != nil {
		return err
	}
	if err := inv.orders.CreateTx(ctx, tx, o); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ReserveSeats writes the seat transition alone (fallback step b).
func (inv *Inventory) ReserveSeats(ctx context.Context, eventID string, seatIDs []string) error {
	return inv.seats.ReserveSeats(ctx, eventID, seatIDs)
}

// CreateOrder writes the order record alone (fallback step c).
func (inv *Inventory) CreateOrder(ctx context.Context, o *model.Order) error {
	return inv.orders.Create(ctx, o)
}

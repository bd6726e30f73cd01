package repository // repository defines data access for orders

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// OrderRepo provides access to the orders and order_seats tables.  An
// order and its seats are normally written inside the same transaction
// as the seat-state transition; the non-Tx variant exists only for the
// fallback commit path.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo constructs an OrderRepo with the given DB handle.
func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// CreateTx inserts the order and its seat rows within the provided
// transaction.  The caller commits or rolls back.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `INSERT INTO orders (id, user_id, event_id, payment_ref, status, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, o.ID, o.UserID, o.EventID, o.PaymentRef, o.Status, o.CreatedAt.UTC()); err != nil {
		return err
	}
	return insertOrderSeats(ctx, tx.ExecContext, o)
}

// Create inserts the order and its seat rows without a surrounding
// transaction (fallback commit path).
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	const q = `INSERT INTO orders (id, user_id, event_id, payment_ref, status, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, o.ID, o.UserID, o.EventID, o.PaymentRef, o.Status, o.CreatedAt.UTC()); err != nil {
		return err
	}
	return insertOrderSeats(ctx, r.db.ExecContext, o)
}

type execFunc func(ctx context.Context, query string, args ...any) (sql.Result, error)

func insertOrderSeats(ctx context.Context, exec execFunc, o *model.Order) error {
	if len(o.SeatIDs) == 0 {
		return nil
	}
	query := "INSERT INTO order_seats (order_id, seat_id) VALUES "
	args := make([]any, 0, len(o.SeatIDs)*2)
	for i, sid := range o.SeatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, o.ID, sid)
	}
	_, err := exec(ctx, query, args...)
	return err
}

// ListByUser returns the user's orders newest first, each with its seat
// ids populated.  The two-query shape keeps the aggregation simple at
// the small scale this serves.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Order, error) {
	const q = `SELECT id, user_id, event_id, payment_ref, status, created_at
	           FROM orders WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Order
	byID := map[string]*model.Order{}
	for rows.Next() {
		o := new(model.Order)
		if err := rows.Scan(&o.ID, &o.UserID, &o.EventID, &o.PaymentRef, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
		byID[o.ID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	const qs = `SELECT os.order_id, os.seat_id
	            FROM order_seats os JOIN orders o ON o.id = os.order_id
	            WHERE o.user_id = ? ORDER BY os.seat_id`
	seatRows, err := r.db.QueryContext(ctx, qs, userID)
	if err != nil {
		return nil, err
	}
	defer seatRows.Close()
	for seatRows.Next() {
		var orderID, seatID string
		if err := seatRows.Scan(&orderID, &seatID); err != nil {
			return nil, err
		}
		if o, ok := byID[orderID]; ok {
			o.SeatIDs = append(o.SeatIDs, seatID)
		}
	}
	return out, seatRows.Err()
}

package model

import "time"

// OrderStatusReserved is the only terminal status an order can have; it
// is written in the same durable unit as the seat state transition.
const OrderStatusReserved = "reserved"

// Order records a completed purchase.  Exactly one order is created per
// successful purchase; its seats were transitioned to reserved in the
// same durable write wherever the store supports multi-statement
// atomicity.
//
// Fields:
//  ID         – opaque string identifier (UUID).
//  UserID     – buyer.
//  EventID    – event the seats belong to.
//  SeatIDs    – derived seat ids covered by this order.
//  PaymentRef – payment reference consumed by the purchase.
//  Status     – always "reserved".
//  CreatedAt  – creation timestamp.
type Order struct {
	ID         string    // orders.id
	UserID     uint64    // orders.user_id
	EventID    string    // orders.event_id
	SeatIDs    []string  // order_seats.seat_id rows
	PaymentRef string    // orders.payment_ref
	Status     string    // orders.status
	CreatedAt  time.Time // orders.created_at
}

// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderConfirmedEvent is published when a purchase is successfully
// committed. It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary
// database.
type OrderConfirmedEvent struct {
	OrderID     string   `json:"order_id"`
	UserID      uint64   `json:"user_id"`
	EventID     string   `json:"event_id"`
	EventTitle  string   `json:"event_title"`
	SeatIDs     []string `json:"seats"`
	PaymentRef  string   `json:"payment_ref"`
	ConfirmedAt string   `json:"confirmed_at"`
}

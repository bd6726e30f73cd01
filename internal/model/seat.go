package model

// Seat state constants.  A seat's durable state is either empty
// (available or held, derived at read time) or reserved, which is
// terminal.  Holds never appear in the durable store; they live only
// in the lease store.
const (
	SeatStateAvailable = "available"
	SeatStateHeld      = "held"
	SeatStateReserved  = "reserved"
)

// Seat is one entry in an event's durable roster.  The identity of a
// seat is (event, row, number); SeatID is the derived string form
// ("R<row>-S<number>") used in lock keys and API payloads.
//
// Fields:
//  EventID – event this seat belongs to.
//  SeatID  – derived string id, e.g. "R2-S7".
//  Row     – one-based row index.
//  Number  – one-based seat number within the row.
//  State   – "" while the seat is available or held; "reserved" once sold.
type Seat struct {
	EventID string // event_seats.event_id
	SeatID  string // event_seats.seat_id
	Row     uint32 // event_seats.row
	Number  uint32 // event_seats.number
	State   string // event_seats.state ("" or "reserved")
}

// SeatView is a roster entry with its state fully derived, as returned
// by the seat listing endpoint.  State is one of available/held/reserved.
type SeatView struct {
	SeatID string `json:"seat_id"`
	Row    uint32 `json:"row"`
	Number uint32 `json:"number"`
	State  string `json:"state"`
}

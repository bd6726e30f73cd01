// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and services to distinguish between different failure
// scenarios without string matching.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrEventNotFound is returned when an event id does not exist in the
// catalog. Handlers should translate this into an HTTP 404 response.
var ErrEventNotFound = errors.New("event not found")

// ErrRosterNotFound is returned when an event exists but its seat
// roster has not been created yet.
var ErrRosterNotFound = errors.New("seat roster not found")

// ErrSeatAlreadyReserved is returned when a purchase attempts to
// transition a seat that is already durably reserved. The purchase
// fails as a whole; no seat in the request is written.
var ErrSeatAlreadyReserved = errors.New("seat already reserved")

// ErrPaymentNotFound is returned when a payment reference does not
// exist.
var ErrPaymentNotFound = errors.New("payment reference not found")

// ErrPaymentSecretMismatch is returned when confirming a payment intent
// with the wrong client secret.
var ErrPaymentSecretMismatch = errors.New("client secret mismatch")

package model

import "time"

// Payment intent statuses.  The booking core only ever consumes this
// two-state outcome; everything else about the payment provider is out
// of scope.
const (
	PaymentRequiresConfirmation = "requires_confirmation"
	PaymentSucceeded            = "succeeded"
)

// PaymentIntent models a simulated payment reference.  An intent is
// created in requires_confirmation and transitions to succeeded exactly
// once when the client confirms it with the matching client secret.
//
// Fields:
//  ID           – opaque string identifier (UUID), used as the payment reference.
//  UserID       – user who created the intent.
//  AmountCents  – amount to charge, in cents.
//  Currency     – ISO currency code.
//  Status       – requires_confirmation or succeeded.
//  ClientSecret – secret the client must echo back on confirm.
//  CreatedAt    – creation timestamp.
type PaymentIntent struct {
	ID           string    // payment_intents.id
	UserID       uint64    // payment_intents.user_id
	AmountCents  uint32    // payment_intents.amount_cents
	Currency     string    // payment_intents.currency
	Status       string    // payment_intents.status
	ClientSecret string    // payment_intents.client_secret
	CreatedAt    time.Time // payment_intents.created_at
}

package repository // repository defines data access for simulated payment intents

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// PaymentRepo provides access to the payment_intents table.  The
// booking core consumes only the two-state outcome of an intent; the
// rest of the provider is simulated.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo constructs a PaymentRepo with the given DB handle.
func NewPaymentRepo(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

// Create inserts a new intent in requires_confirmation with a fresh id
// and client secret.
func (r *PaymentRepo) Create(ctx context.Context, userID uint64, amountCents uint32, currency string) (*model.PaymentIntent, error) {
	intent := &model.PaymentIntent{
		ID:           uuid.NewString(),
		UserID:       userID,
		AmountCents:  amountCents,
		Currency:     currency,
		Status:       model.PaymentRequiresConfirmation,
		ClientSecret: uuid.NewString(),
	}
	const q = `INSERT INTO payment_intents (id, user_id, amount_cents, currency, status, client_secret)
	           VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q,
		intent.ID, intent.UserID, intent.AmountCents, intent.Currency, intent.Status, intent.ClientSecret); err != nil {
		return nil, err
	}
	return intent, nil
}

// Confirm transitions an intent to succeeded when the client secret
// matches.  Confirming an already-succeeded intent is a no-op success so
// client retries are harmless.
func (r *PaymentRepo) Confirm(ctx context.Context, id, clientSecret string) error {
	var (
		storedSecret string
		status       string
	)
	const q = "SELECT client_secret, status FROM payment_intents WHERE id = ?"
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&storedSecret, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPaymentNotFound
		}
		return err
	}
	if storedSecret != clientSecret {
		return ErrPaymentSecretMismatch
	}
	if status == model.PaymentSucceeded {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE payment_intents SET status = ? WHERE id = ?", model.PaymentSucceeded, id)
	return err
}

// Status returns the recorded status of a payment reference, or
// ErrPaymentNotFound.
func (r *PaymentRepo) Status(ctx context.Context, id string) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx,
		"SELECT status FROM payment_intents WHERE id = ?", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrPaymentNotFound
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

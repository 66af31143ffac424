package payment

import (
	"context"
	"errors"

	"mindease/models"
)

// PaymentGate opens checkout sessions with an external processor. The outcome arrives
// later, at least once, as a models.PaymentCallback.
type PaymentGate interface {
	Provider() string
	CreateSession(ctx context.Context, req models.SessionRequest) (*models.PaymentSession, error)
	// ExpireSession closes a session so it can no longer be paid.
	ExpireSession(ctx context.Context, sessionID string) error
}

// CallbackListener receives asynchronous payment outcomes.
type CallbackListener func(ctx context.Context, cb models.PaymentCallback)

// WebhookParser verifies a signed processor webhook and maps it to a callback.
// A nil callback with a nil error means the event is not relevant to bookings.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*models.PaymentCallback, error)
}

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrSessionClosed    = errors.New("payment session is closed")
)

func validateSessionRequest(req models.SessionRequest) error {
	if req.BookingID == "" {
		return errors.New("missing booking id")
	}
	if req.Amount <= 0 {
		return errors.New("invalid payment amount")
	}
	if req.Currency == "" {
		return errors.New("missing currency")
	}
	return nil
}

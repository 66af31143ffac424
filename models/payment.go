package models

import "time"

// PaymentResult is the outcome reported by a payment processor.
type PaymentResult string

const (
	PaymentSucceeded PaymentResult = "success"
	PaymentFailed    PaymentResult = "failure"
)

// SessionRequest asks a PaymentGate to open a checkout flow for a held booking.
type SessionRequest struct {
	BookingID   string
	UserID      string
	UserEmail   string
	Amount      int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// PaymentSession is the client-facing handle of an open checkout flow.
type PaymentSession struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"bookingId"`
	Provider    string    `json:"provider"`
	CheckoutURL string    `json:"checkoutUrl,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero"`
}

// PaymentCallback is an asynchronous payment notification. It may be delivered more than once.
type PaymentCallback struct {
	BookingID string        `json:"bookingId"`
	SessionID string        `json:"sessionId,omitempty"`
	Result    PaymentResult `json:"result" binding:"required,oneof=success failure"`
	PaymentID string        `json:"paymentId"`
	Reason    string        `json:"reason,omitempty"`
}

// CallbackOutcome reports what a callback did to the booking.
type CallbackOutcome struct {
	BookingID string        `json:"bookingId"`
	Status    BookingStatus `json:"status,omitempty"`
	Applied   bool          `json:"applied"`
	Message   string        `json:"message,omitempty"`
}

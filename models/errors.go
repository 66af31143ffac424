package models

import "errors"

var (
	// ErrSlotConflict means another held or confirmed booking owns the slot key.
	ErrSlotConflict = errors.New("slot no longer available")
	// ErrStaleState means the booking is no longer in the status the caller expected.
	ErrStaleState = errors.New("this reservation has expired")
	// ErrPaymentFailure means the payment processor rejected or could not open the payment.
	ErrPaymentFailure = errors.New("payment failed")
	// ErrInvalidRequest means the request was rejected before any booking was written.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrStoreUnavailable means the store could not complete the operation; no partial effect remains.
	ErrStoreUnavailable = errors.New("booking store unavailable")

	ErrBookingNotFound   = errors.New("booking not found")
	ErrCounselorNotFound = errors.New("counselor not found")
)

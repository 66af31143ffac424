package ledgerRepo

import (
	"context"
	"time"

	"mindease/models"
)

// BookingLedger is the durable store of bookings. It owns the rule that at most one
// held or confirmed booking exists per slot key; every mutation is a single atomic
// store operation.
type BookingLedger interface {
	// Get returns the held or confirmed booking for key, or models.ErrBookingNotFound.
	Get(ctx context.Context, key models.SlotKey) (*models.Booking, error)
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// InsertIfAbsent writes b unless its key is already active; then it returns models.ErrSlotConflict.
	InsertIfAbsent(ctx context.Context, b *models.Booking) error
	// Transition moves a booking from one status to another, or returns models.ErrStaleState.
	Transition(ctx context.Context, id string, from, to models.BookingStatus, extra models.TransitionExtra) (*models.Booking, error)
	// AttachSession records the checkout session of a held booking, or returns models.ErrStaleState.
	AttachSession(ctx context.Context, id, sessionID string) error
	// SweepExpiredHolds expires held bookings older than the hold TTL and returns their ids.
	SweepExpiredHolds(ctx context.Context, now time.Time) ([]string, error)
	ActiveSlots(ctx context.Context, counselorID int64, fromISO, toISO string) ([]models.SlotKey, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	EnsureSchema(ctx context.Context) error
}

const defaultListLimit = 200

func listLimit(f models.BookingFilter) int {
	if f.Limit <= 0 || f.Limit > defaultListLimit {
		return defaultListLimit
	}
	return f.Limit
}

// transitionAllowed lists the edges of the booking lifecycle.
func transitionAllowed(from, to models.BookingStatus) bool {
	if from != models.StatusHeld {
		return false
	}
	switch to {
	case models.StatusConfirmed, models.StatusCancelled, models.StatusExpired:
		return true
	}
	return false
}

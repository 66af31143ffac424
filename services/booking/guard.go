package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledgerRepo "mindease/database/repository/ledger"
	"mindease/models"
	"mindease/utils"
)

// HoldParams describes the booking a Reserve call writes.
type HoldParams struct {
	UserID        string
	UserEmail     string
	CounselorID   int64
	CounselorName string
	DateISO       string
	Time          string
	Amount        int64
	Currency      string
}

// ConflictGuard is the check-and-reserve layer over the ledger. Every method is a
// single guarded store operation, so concurrent callers need no extra locking.
type ConflictGuard struct {
	ledger ledgerRepo.BookingLedger
	now    func() time.Time
}

func NewConflictGuard(ledger ledgerRepo.BookingLedger, now func() time.Time) *ConflictGuard {
	if now == nil {
		now = time.Now
	}
	return &ConflictGuard{ledger: ledger, now: now}
}

// Reserve writes a held booking or returns models.ErrSlotConflict. A losing caller
// leaves nothing behind.
func (g *ConflictGuard) Reserve(ctx context.Context, p HoldParams) (*models.Booking, error) {
	now := g.now().UTC()
	b := &models.Booking{
		ID:            utils.NewBookingID(),
		UserID:        p.UserID,
		UserEmail:     p.UserEmail,
		CounselorID:   p.CounselorID,
		CounselorName: p.CounselorName,
		DateISO:       p.DateISO,
		Time:          p.Time,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        models.StatusHeld,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := g.ledger.InsertIfAbsent(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Confirm moves a hold to confirmed. Repeating a confirmation with the same payment
// id returns the stored booking with applied=false.
func (g *ConflictGuard) Confirm(ctx context.Context, id, paymentID string) (b *models.Booking, applied bool, err error) {
	if paymentID == "" {
		return nil, false, fmt.Errorf("%w: missing payment id", models.ErrInvalidRequest)
	}
	b, err = g.ledger.Transition(ctx, id, models.StatusHeld, models.StatusConfirmed, models.TransitionExtra{PaymentID: paymentID})
	if err == nil {
		return b, true, nil
	}
	if !errors.Is(err, models.ErrStaleState) {
		return nil, false, err
	}
	cur, getErr := g.ledger.GetByID(ctx, id)
	if getErr != nil {
		return nil, false, getErr
	}
	if cur.Status == models.StatusConfirmed && cur.PaymentID == paymentID {
		return cur, false, nil
	}
	return nil, false, fmt.Errorf("%w: booking %s is %s", models.ErrStaleState, id, cur.Status)
}

// Release cancels a hold. Anything but a held booking is stale.
func (g *ConflictGuard) Release(ctx context.Context, id string) (*models.Booking, error) {
	return g.ledger.Transition(ctx, id, models.StatusHeld, models.StatusCancelled, models.TransitionExtra{})
}

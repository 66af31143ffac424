package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"mindease/metrics"
	"mindease/models"

	"go.uber.org/zap"
)

// StartPayment opens a checkout session for a held booking. If the processor fails
// the hold is released so the slot does not stay blocked.
func (s *DefaultBookingService) StartPayment(ctx context.Context, bookingID string) (*models.PaymentSession, error) {
	b, err := s.ledger.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.StatusHeld {
		return nil, fmt.Errorf("%w: booking %s is %s", models.ErrStaleState, b.ID, b.Status)
	}

	session, err := s.gate.CreateSession(ctx, models.SessionRequest{
		BookingID:   b.ID,
		UserID:      b.UserID,
		UserEmail:   b.UserEmail,
		Amount:      b.Amount,
		Currency:    b.Currency,
		Description: fmt.Sprintf("Counseling session with %s on %s at %s", b.CounselorName, b.DateISO, b.Time),
		Metadata: map[string]string{
			"counselor_id": strconv.FormatInt(b.CounselorID, 10),
			"date":         b.DateISO,
			"time":         b.Time,
		},
	})
	if err != nil {
		s.logger.Error("BookingService: payment session failed, releasing hold",
			zap.String("bookingId", b.ID), zap.String("provider", s.gate.Provider()), zap.Error(err))
		if _, relErr := s.guard.Release(ctx, b.ID); relErr != nil {
			if !errors.Is(relErr, models.ErrStaleState) {
				s.logger.Error("BookingService: release after payment failure failed", zap.String("bookingId", b.ID), zap.Error(relErr))
			}
		} else {
			metrics.RecordTransition(string(models.StatusCancelled))
		}
		if errors.Is(err, models.ErrPaymentFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrPaymentFailure, err)
	}

	// The hold may have been released while the processor was answering.
	if err := s.ledger.AttachSession(ctx, b.ID, session.ID); err != nil {
		s.closeSession(ctx, b.ID, session.ID)
		return nil, err
	}
	return session, nil
}

// closeSession expires a checkout session whose hold is gone. A failure only means a late
// payment may still arrive, which the callback path records as orphaned.
func (s *DefaultBookingService) closeSession(ctx context.Context, bookingID, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.gate.ExpireSession(ctx, sessionID); err != nil {
		s.logger.Warn("BookingService: could not expire payment session",
			zap.String("bookingId", bookingID), zap.String("sessionId", sessionID), zap.Error(err))
		return
	}
	s.logger.Debug("BookingService: payment session expired", zap.String("bookingId", bookingID), zap.String("sessionId", sessionID))
}

// OnPaymentCallback applies a processor outcome. Late and duplicate callbacks are
// absorbed: the returned outcome says whether anything changed.
func (s *DefaultBookingService) OnPaymentCallback(ctx context.Context, cb models.PaymentCallback) (*models.CallbackOutcome, error) {
	if cb.BookingID == "" {
		return nil, fmt.Errorf("%w: missing booking id", models.ErrInvalidRequest)
	}
	switch cb.Result {
	case models.PaymentSucceeded:
		return s.onPaymentSucceeded(ctx, cb)
	case models.PaymentFailed:
		return s.onPaymentFailed(ctx, cb)
	default:
		return nil, fmt.Errorf("%w: unknown payment result %q", models.ErrInvalidRequest, cb.Result)
	}
}

func (s *DefaultBookingService) onPaymentSucceeded(ctx context.Context, cb models.PaymentCallback) (*models.CallbackOutcome, error) {
	b, applied, err := s.guard.Confirm(ctx, cb.BookingID, cb.PaymentID)
	if err == nil {
		if !applied {
			metrics.RecordPaymentCallback(string(cb.Result), "duplicate")
			s.logger.Debug("BookingService: duplicate payment callback", zap.String("bookingId", b.ID))
			return &models.CallbackOutcome{BookingID: b.ID, Status: b.Status, Applied: false, Message: "already confirmed"}, nil
		}
		metrics.RecordPaymentCallback(string(cb.Result), "applied")
		metrics.RecordTransition(string(models.StatusConfirmed))
		s.logger.Info("BookingService: booking confirmed", zap.String("bookingId", b.ID), zap.String("paymentId", cb.PaymentID))
		s.afterConfirm(ctx, b)
		return &models.CallbackOutcome{BookingID: b.ID, Status: b.Status, Applied: true, Message: "booking confirmed"}, nil
	}
	if !errors.Is(err, models.ErrStaleState) {
		return nil, err
	}

	metrics.RecordPaymentCallback(string(cb.Result), "stale")
	cur, getErr := s.ledger.GetByID(ctx, cb.BookingID)
	if getErr != nil {
		return nil, getErr
	}
	switch cur.Status {
	case models.StatusExpired, models.StatusCancelled:
		// Money moved for a slot we no longer hold.
		metrics.RecordOrphanedPayment()
		s.logger.Warn("BookingService: payment received for released booking, refund required",
			zap.String("bookingId", cur.ID),
			zap.String("status", string(cur.Status)),
			zap.String("paymentId", cb.PaymentID),
			zap.Int64("amount", cur.Amount),
			zap.String("currency", cur.Currency))
	default:
		s.logger.Error("BookingService: conflicting payment for confirmed booking",
			zap.String("bookingId", cur.ID),
			zap.String("storedPaymentId", cur.PaymentID),
			zap.String("paymentId", cb.PaymentID))
	}
	return &models.CallbackOutcome{BookingID: cur.ID, Status: cur.Status, Applied: false, Message: models.ErrStaleState.Error()}, nil
}

func (s *DefaultBookingService) onPaymentFailed(ctx context.Context, cb models.PaymentCallback) (*models.CallbackOutcome, error) {
	b, err := s.guard.Release(ctx, cb.BookingID)
	if err == nil {
		metrics.RecordPaymentCallback(string(cb.Result), "applied")
		metrics.RecordTransition(string(models.StatusCancelled))
		s.logger.Info("BookingService: payment failed, hold released", zap.String("bookingId", b.ID), zap.String("reason", cb.Reason))
		return &models.CallbackOutcome{BookingID: b.ID, Status: b.Status, Applied: true, Message: "payment failed, slot released"}, nil
	}
	if !errors.Is(err, models.ErrStaleState) {
		return nil, err
	}
	metrics.RecordPaymentCallback(string(cb.Result), "stale")
	cur, getErr := s.ledger.GetByID(ctx, cb.BookingID)
	if getErr != nil {
		return nil, getErr
	}
	s.logger.Info("BookingService: ignoring failure callback", zap.String("bookingId", cur.ID), zap.String("status", string(cur.Status)))
	return &models.CallbackOutcome{BookingID: cur.ID, Status: cur.Status, Applied: false}, nil
}

package booking

import (
	"context"
	"errors"
	"fmt"

	"mindease/metrics"
	"mindease/models"

	"go.uber.org/zap"
)

// Cancel releases a hold on the user's request. Confirmed bookings cannot be cancelled here.
func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.guard.Release(ctx, bookingID)
	if err != nil {
		if errors.Is(err, models.ErrStaleState) {
			return nil, fmt.Errorf("%w: only held bookings can be cancelled", err)
		}
		return nil, err
	}
	metrics.RecordTransition(string(models.StatusCancelled))
	s.logger.Info("BookingService: hold cancelled", zap.String("bookingId", b.ID))
	s.closeSession(ctx, b.ID, b.SessionID)
	return b, nil
}

func (s *DefaultBookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.ledger.GetByID(ctx, bookingID)
}

func (s *DefaultBookingService) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidRequest, filter.Status)
	}
	return s.ledger.List(ctx, filter)
}

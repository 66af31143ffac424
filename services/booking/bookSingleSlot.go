package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mindease/metrics"
	"mindease/models"
	"mindease/services/availability"
	"mindease/services/calendar"

	"go.uber.org/zap"
)

// ReserveSlot validates the request and places a held booking on the slot.
func (s *DefaultBookingService) ReserveSlot(ctx context.Context, req models.ReserveRequest) (*models.Booking, error) {
	b, err := s.reserve(ctx, req)
	switch {
	case err == nil:
		metrics.RecordReservation("held")
	case errors.Is(err, models.ErrSlotConflict):
		metrics.RecordReservation("conflict")
		s.logger.Info("BookingService: slot taken",
			zap.Int64("counselorId", req.CounselorID), zap.String("date", req.DateISO), zap.String("time", req.Time))
	case errors.Is(err, models.ErrInvalidRequest), errors.Is(err, models.ErrCounselorNotFound):
		metrics.RecordReservation("invalid")
	default:
		metrics.RecordReservation("error")
		s.logger.Error("BookingService: reserve failed", zap.Int64("counselorId", req.CounselorID), zap.Error(err))
	}
	return b, err
}

func (s *DefaultBookingService) reserve(ctx context.Context, req models.ReserveRequest) (*models.Booking, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", models.ErrInvalidRequest)
	}
	date, err := calendar.ParseDate(req.DateISO)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}
	if _, _, err := calendar.ParseClock(req.Time); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}

	c, err := s.counselors.GetByID(ctx, req.CounselorID)
	if err != nil {
		return nil, err
	}
	model, err := availability.ForCounselor(*c)
	if err != nil {
		return nil, fmt.Errorf("counselor %d: %w", c.ID, err)
	}
	if !model.Offers(date, req.Time) {
		return nil, fmt.Errorf("%w: %s does not offer %s at %s", models.ErrInvalidRequest, c.Name, req.DateISO, req.Time)
	}
	if s.isPast(req.DateISO, req.Time, s.opts.Now()) {
		return nil, fmt.Errorf("%w: %s %s is in the past", models.ErrInvalidRequest, req.DateISO, req.Time)
	}

	amount, currency := s.opts.Fee, s.opts.Currency
	if c.SessionFee > 0 {
		amount = c.SessionFee
		if c.Currency != "" {
			currency = c.Currency
		}
	}

	return s.guard.Reserve(ctx, HoldParams{
		UserID:        userID,
		UserEmail:     strings.TrimSpace(req.UserEmail),
		CounselorID:   c.ID,
		CounselorName: c.Name,
		DateISO:       req.DateISO,
		Time:          req.Time,
		Amount:        amount,
		Currency:      currency,
	})
}

// isPast reports whether the slot starts at or before now, in the configured zone.
func (s *DefaultBookingService) isPast(dateISO, clock string, now time.Time) bool {
	d, err := calendar.ParseDate(dateISO)
	if err != nil {
		return true
	}
	start, err := d.At(clock, s.opts.Location)
	if err != nil {
		return true
	}
	return !start.After(now)
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"mindease/models"
	"mindease/services/calendar"
	"mindease/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	confirmationTitle = "Booking confirmed"
	confirmationBody  = "Payment successful. Your appointment is confirmed."
	sideEffectTimeout = 5 * time.Second
)

// afterConfirm sends the confirmation push and schedules the reminder. Both are
// best-effort; the booking is already confirmed.
func (s *DefaultBookingService) afterConfirm(ctx context.Context, b *models.Booking) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	data := map[string]string{
		"type":        "booking_confirmed",
		"bookingId":   b.ID,
		"counselorId": strconv.FormatInt(b.CounselorID, 10),
		"date":        b.DateISO,
		"time":        b.Time,
	}
	if err := s.notifier.SendUserPushNotification(ctx, b.UserID, confirmationTitle, confirmationBody, data); err != nil {
		s.logger.Warn("BookingService: confirmation push failed", zap.String("bookingId", b.ID), zap.Error(err))
	}

	if err := s.scheduleReminder(ctx, b); err != nil {
		s.logger.Warn("BookingService: reminder not scheduled", zap.String("bookingId", b.ID), zap.Error(err))
	}
}

func (s *DefaultBookingService) scheduleReminder(ctx context.Context, b *models.Booking) error {
	if s.tasks == nil || s.opts.ReminderLead <= 0 {
		return nil
	}
	d, err := calendar.ParseDate(b.DateISO)
	if err != nil {
		return err
	}
	start, err := d.At(b.Time, s.opts.Location)
	if err != nil {
		return err
	}
	fireAt := start.Add(-s.opts.ReminderLead)
	if !fireAt.After(s.opts.Now()) {
		return nil
	}

	who := b.CounselorName
	if who == "" {
		who = "your counselor"
	}
	task, opts, err := tasks.NewReminderTask(models.ReminderPayload{
		BookingID: b.ID,
		UserID:    b.UserID,
		Title:     "Upcoming session",
		Body:      fmt.Sprintf("Your session with %s starts at %s.", who, b.Time),
		FireDate:  fireAt.Format(time.RFC3339),
	}, fireAt)
	if err != nil {
		return err
	}
	if _, err := s.tasks.EnqueueContext(ctx, task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}

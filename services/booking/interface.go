package booking

import (
	"context"
	"time"

	"mindease/models"

	"github.com/hibiken/asynq"
)

// BookingService orchestrates reserve, pay and confirm for counselor sessions.
type BookingService interface {
	ListCounselors(ctx context.Context) ([]models.Counselor, error)
	ListAvailableSlots(ctx context.Context, counselorID int64, year, month int) (*models.MonthAvailability, error)
	ReserveSlot(ctx context.Context, req models.ReserveRequest) (*models.Booking, error)
	StartPayment(ctx context.Context, bookingID string) (*models.PaymentSession, error)
	OnPaymentCallback(ctx context.Context, cb models.PaymentCallback) (*models.CallbackOutcome, error)
	Cancel(ctx context.Context, bookingID string) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	SweepExpiredHolds(ctx context.Context) ([]string, error)
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Options carries the booking settings read from config.
type Options struct {
	Fee          int64
	Currency     string
	Location     *time.Location
	ReminderLead time.Duration
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Fee <= 0 {
		o.Fee = models.DefaultFeeINR
	}
	if o.Currency == "" {
		o.Currency = "INR"
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

package booking

import (
	"context"
	"fmt"

	counselorRepo "mindease/database/repository/counselor"
	ledgerRepo "mindease/database/repository/ledger"
	"mindease/models"
	"mindease/services/notification"
	"mindease/services/payment"

	"go.uber.org/zap"
)

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	counselors counselorRepo.CounselorRepository
	ledger     ledgerRepo.BookingLedger
	guard      *ConflictGuard
	gate       payment.PaymentGate
	notifier   notification.NotificationService
	tasks      TaskEnqueuer
	logger     *zap.Logger
	opts       Options
}

// NewDefaultBookingService wires the service. tasks may be nil, which disables reminders.
func NewDefaultBookingService(
	counselors counselorRepo.CounselorRepository,
	ledger ledgerRepo.BookingLedger,
	gate payment.PaymentGate,
	notifier notification.NotificationService,
	tasks TaskEnqueuer,
	logger *zap.Logger,
	opts Options,
) (*DefaultBookingService, error) {
	if counselors == nil || ledger == nil || gate == nil {
		return nil, fmt.Errorf("booking service initialization error: counselors, ledger and payment gate are required")
	}
	if notifier == nil {
		notifier = notification.NewNoopNotificationService(logger)
	}
	opts = opts.withDefaults()
	return &DefaultBookingService{
		counselors: counselors,
		ledger:     ledger,
		guard:      NewConflictGuard(ledger, opts.Now),
		gate:       gate,
		notifier:   notifier,
		tasks:      tasks,
		logger:     logger,
		opts:       opts,
	}, nil
}

func (s *DefaultBookingService) ListCounselors(ctx context.Context) ([]models.Counselor, error) {
	return s.counselors.List(ctx)
}

package booking

import (
	"context"

	"mindease/metrics"

	"go.uber.org/zap"
)

// SweepExpiredHolds expires holds older than the hold TTL. Each expiry is a guarded
// transition, so a hold confirmed mid-sweep keeps its confirmation.
func (s *DefaultBookingService) SweepExpiredHolds(ctx context.Context) ([]string, error) {
	ids, err := s.ledger.SweepExpiredHolds(ctx, s.opts.Now())
	metrics.RecordHoldsExpired(len(ids))
	if err != nil {
		s.logger.Error("BookingService: sweep failed", zap.Int("expired", len(ids)), zap.Error(err))
		return ids, err
	}
	if len(ids) > 0 {
		s.logger.Info("BookingService: expired abandoned holds", zap.Strings("bookingIds", ids))
	}
	s.closeExpiredSessions(ctx, ids)
	return ids, nil
}

func (s *DefaultBookingService) closeExpiredSessions(ctx context.Context, ids []string) {
	for _, id := range ids {
		b, err := s.ledger.GetByID(ctx, id)
		if err != nil {
			s.logger.Warn("BookingService: lookup of expired hold failed", zap.String("bookingId", id), zap.Error(err))
			continue
		}
		s.closeSession(ctx, b.ID, b.SessionID)
	}
}

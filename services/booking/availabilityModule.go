package booking

import (
	"context"
	"fmt"

	"mindease/models"
	"mindease/services/availability"
	"mindease/services/calendar"
)

// ListAvailableSlots returns the month's candidate slots minus held, confirmed and
// past ones, together with the month grid.
func (s *DefaultBookingService) ListAvailableSlots(ctx context.Context, counselorID int64, year, month int) (*models.MonthAvailability, error) {
	if !calendar.ValidMonth(month) || year < 1 || year > 9999 {
		return nil, fmt.Errorf("%w: month %d-%d is out of range", models.ErrInvalidRequest, year, month)
	}
	c, err := s.counselors.GetByID(ctx, counselorID)
	if err != nil {
		return nil, err
	}
	model, err := availability.ForCounselor(*c)
	if err != nil {
		return nil, fmt.Errorf("counselor %d: %w", counselorID, err)
	}

	first, last := calendar.MonthBounds(year, month)
	active, err := s.ledger.ActiveSlots(ctx, counselorID, first.String(), last.String())
	if err != nil {
		return nil, err
	}
	taken := make(map[models.SlotKey]struct{}, len(active))
	for _, k := range active {
		taken[k] = struct{}{}
	}

	now := s.opts.Now().In(s.opts.Location)
	slots := []models.CandidateSlot{}
	for slot := range model.Month(counselorID, year, month) {
		if _, ok := taken[slot.Key()]; ok {
			continue
		}
		if s.isPast(slot.DateISO, slot.Time, now) {
			continue
		}
		slots = append(slots, slot)
	}

	py, pm := calendar.PrevMonth(year, month)
	ny, nm := calendar.NextMonth(year, month)
	return &models.MonthAvailability{
		CounselorID: counselorID,
		Year:        year,
		Month:       month,
		DaysInMonth: calendar.DaysInMonth(year, month),
		Weeks:       calendar.Grid(year, month),
		Prev:        models.YearMonth{Year: py, Month: pm},
		Next:        models.YearMonth{Year: ny, Month: nm},
		Slots:       slots,
	}, nil
}

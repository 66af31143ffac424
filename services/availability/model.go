// Package availability turns a counselor's weekly rule into candidate slots.
package availability

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"mindease/models"
	"mindease/services/calendar"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Model is a validated weekly rule plus blackout dates. Safe for concurrent reads.
type Model struct {
	times     [7][]string
	blackouts map[calendar.Date]struct{}
}

// New validates rule and blackouts. Times per weekday are sorted and deduplicated.
func New(rule models.AvailabilityRule, blackouts []string) (*Model, error) {
	m := &Model{blackouts: make(map[calendar.Date]struct{}, len(blackouts))}

	for name, clocks := range rule {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q in availability rule", name)
		}
		for _, c := range clocks {
			if _, _, err := calendar.ParseClock(c); err != nil {
				return nil, fmt.Errorf("availability rule for %s: %w", name, err)
			}
		}
		merged := append(m.times[wd], clocks...)
		slices.Sort(merged)
		m.times[wd] = slices.Compact(merged)
	}

	for _, s := range blackouts {
		d, err := calendar.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("blackout date: %w", err)
		}
		m.blackouts[d] = struct{}{}
	}
	return m, nil
}

// ForCounselor builds the model from a counselor record.
func ForCounselor(c models.Counselor) (*Model, error) {
	m, err := New(c.AvailabilityRule, c.BlackoutDates)
	if err != nil {
		return nil, fmt.Errorf("counselor %d: %w", c.ID, err)
	}
	return m, nil
}

// TimesOn returns the configured times for the weekday of d, or nil when d is blacked out.
func (m *Model) TimesOn(d calendar.Date) []string {
	if _, blocked := m.blackouts[d]; blocked {
		return nil
	}
	return m.times[d.Weekday()]
}

// Offers reports whether the rule yields the slot (d, clock).
func (m *Model) Offers(d calendar.Date, clock string) bool {
	return slices.Contains(m.TimesOn(d), clock)
}

// CandidateSlots yields every slot in [from, to] in date then time order. The sequence
// is computed lazily and each range over it starts again from from.
func (m *Model) CandidateSlots(counselorID int64, from, to calendar.Date) iter.Seq[models.CandidateSlot] {
	return func(yield func(models.CandidateSlot) bool) {
		for d := from; !to.Before(d); d = d.Next() {
			times := m.TimesOn(d)
			if len(times) == 0 {
				continue
			}
			iso := d.String()
			for _, clock := range times {
				if !yield(models.CandidateSlot{CounselorID: counselorID, DateISO: iso, Time: clock}) {
					return
				}
			}
		}
	}
}

// Month yields the candidate slots of a calendar month.
func (m *Model) Month(counselorID int64, year, month int) iter.Seq[models.CandidateSlot] {
	first, last := calendar.MonthBounds(year, month)
	return m.CandidateSlots(counselorID, first, last)
}

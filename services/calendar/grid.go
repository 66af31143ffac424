// Package calendar holds the month arithmetic behind the booking calendar.
package calendar

import (
	"fmt"
	"strconv"
	"time"
)

const (
	daysPerWeek = 7
	maxWeeks    = 6
)

// IsLeapYear applies the Gregorian rule.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in month (1-12) of year.
func DaysInMonth(year, month int) int {
	switch month {
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// NextMonth returns the month after (year, month), rolling the year after December.
func NextMonth(year, month int) (int, int) {
	if month >= 12 {
		return year + 1, 1
	}
	return year, month + 1
}

// PrevMonth returns the month before (year, month), rolling the year before January.
func PrevMonth(year, month int) (int, int) {
	if month <= 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// FirstWeekday is the weekday of day 1 of the month.
func FirstWeekday(year, month int) time.Weekday {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Weekday()
}

// Grid lays the month out in Sunday-first weeks. Cells before day 1 and after the
// last day are 0. Rows stop after the week holding the last day.
func Grid(year, month int) [][]int {
	days := DaysInMonth(year, month)
	lead := int(FirstWeekday(year, month))

	grid := make([][]int, 0, maxWeeks)
	day := 1
	for w := 0; w < maxWeeks && day <= days; w++ {
		week := make([]int, daysPerWeek)
		for d := 0; d < daysPerWeek; d++ {
			if (w == 0 && d < lead) || day > days {
				continue
			}
			week[d] = day
			day++
		}
		grid = append(grid, week)
	}
	return grid
}

// ValidMonth reports whether month is in 1..12.
func ValidMonth(month int) bool {
	return month >= 1 && month <= 12
}

// MonthBounds returns the first and last Date of the month.
func MonthBounds(year, month int) (Date, Date) {
	return Date{Year: year, Month: month, Day: 1},
		Date{Year: year, Month: month, Day: DaysInMonth(year, month)}
}

// Date is a calendar day without a time or zone.
type Date struct {
	Year  int
	Month int
	Day   int
}

// ParseDate parses a strict "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	var d Date
	if len(s) != 10 || s[4] != '-' || s[7] != '-' || !digits(s[:4]+s[5:7]+s[8:]) {
		return d, fmt.Errorf("date %q is not YYYY-MM-DD", s)
	}
	d.Year, _ = strconv.Atoi(s[:4])
	d.Month, _ = strconv.Atoi(s[5:7])
	d.Day, _ = strconv.Atoi(s[8:])
	if !ValidMonth(d.Month) || d.Day < 1 || d.Day > DaysInMonth(d.Year, d.Month) {
		return Date{}, fmt.Errorf("date %q does not exist", s)
	}
	return d, nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: int(m), Day: d}
}

// String formats the date as ISO "YYYY-MM-DD".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Weekday of the date.
func (d Date) Weekday() time.Weekday {
	lead := FirstWeekday(d.Year, d.Month)
	return time.Weekday((int(lead) + d.Day - 1) % daysPerWeek)
}

// Next returns the following day, crossing month and year boundaries.
func (d Date) Next() Date {
	if d.Day < DaysInMonth(d.Year, d.Month) {
		return Date{Year: d.Year, Month: d.Month, Day: d.Day + 1}
	}
	y, m := NextMonth(d.Year, d.Month)
	return Date{Year: y, Month: m, Day: 1}
}

// Compare returns -1, 0 or 1 as d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(d.Month - o.Month)
	default:
		return sign(d.Day - o.Day)
	}
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// At combines the date with an "HH:MM" clock in loc.
func (d Date) At(clock string, loc *time.Location) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, h, m, 0, 0, loc), nil
}

// ParseClock parses a strict 24h "HH:MM" string.
func ParseClock(s string) (int, int, error) {
	if len(s) != 5 || s[2] != ':' || !digits(s[:2]+s[3:]) {
		return 0, 0, fmt.Errorf("time %q is not HH:MM", s)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	if h > 23 || m > 59 {
		return 0, 0, fmt.Errorf("time %q is out of range", s)
	}
	return h, m, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

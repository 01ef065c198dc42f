package core

import (
	"fmt"
	"time"
)

// Date is a pure calendar date: year, month and day with no time of day
// and no timezone. Billing math only cares about which day a charge lands
// on, so carrying a time.Time around invites timezone bugs.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate builds a Date, rolling month overflow into subsequent years
// (month 14 of 2024 becomes February 2025) and clamping the day to the
// length of the resulting month. The result is always a valid Gregorian
// date.
func NewDate(year, month, day int) Date {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	d := Date{Year: t.Year(), Month: int(t.Month()), Day: day}
	if last := DaysInMonth(d.Year, d.Month); d.Day > last {
		d.Day = last
	}
	if d.Day < 1 {
		d.Day = 1
	}
	return d
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year, month int) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths returns the date shifted by n whole calendar months, n may be
// negative. The day is preserved but clamped to the target month's length,
// so Jan 31 plus one month is Feb 29 on a leap year, never Mar 2.
func (d Date) AddMonths(n int) Date {
	t := time.Date(d.Year, time.Month(d.Month+n), 1, 0, 0, 0, 0, time.UTC)
	day := d.Day
	if last := DaysInMonth(t.Year(), int(t.Month())); day > last {
		day = last
	}
	return Date{Year: t.Year(), Month: int(t.Month()), Day: day}
}

// WithDayClamped returns the date with its day replaced, clamped to the
// last valid day of the same month. Setting day 31 on a 30-day month
// yields day 30; it never rolls into the next month.
func (d Date) WithDayClamped(day int) Date {
	if last := DaysInMonth(d.Year, d.Month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return Date{Year: d.Year, Month: d.Month, Day: day}
}

// Compare returns -1, 0 or +1 ordering d against other.
func (d Date) Compare(other Date) int {
	a := d.Year*10000 + d.Month*100 + d.Day
	b := other.Year*10000 + other.Month*100 + other.Day
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Validate checks a literally-constructed Date. Dates built through
// NewDate are always valid.
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	if d.Month < 1 || d.Month > 12 {
		return ErrInvalidMonth
	}
	if d.Day < 1 || d.Day > DaysInMonth(d.Year, d.Month) {
		return ErrInvalidDay
	}
	return nil
}

// String formats the date as ISO 8601 (yyyy-mm-dd).
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// ParseDate parses an ISO 8601 date (yyyy-mm-dd).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
}

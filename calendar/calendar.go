/*
Package calendar holds the date arithmetic the attendance engine needs:
ISO calendar dates, year-month keys and the Working-Calendar Calculator.

WORKING DAYS:
  WorkingDays counts Monday-Friday dates in a month. It has no public-holiday
  awareness; closed holidays arrive explicitly as attendance records and are
  subtracted by the caller when sizing the staff Type-II quota.

All dates are civil dates pinned to UTC midnight. No timezone conversion is
performed anywhere.
*/
package calendar

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// =============================================================================
// DATES
// =============================================================================

// NewDate returns the civil date at UTC midnight.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO "YYYY-MM-DD" date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders an ISO date.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// Truncate drops the time-of-day part.
func Truncate(t time.Time) time.Time { return NewDate(t.Year(), t.Month(), t.Day()) }

func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func IsWorkday(t time.Time) bool { return !IsWeekend(t) }

// =============================================================================
// MONTHS
// =============================================================================

// Month is a calendar year-month, the unit quota counters reset on.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month { return Month{Year: t.Year(), Month: t.Month()} }

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

func (m Month) First() time.Time { return NewDate(m.Year, m.Month, 1) }

func (m Month) Last() time.Time { return m.First().AddDate(0, 1, -1) }

func (m Month) Contains(t time.Time) bool { return MonthOf(t) == m }

// Days returns every date of the month in order.
func (m Month) Days() []time.Time {
	var days []time.Time
	for d := m.First(); d.Month() == m.Month; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// WorkingDays counts the Monday-Friday dates in m.
func WorkingDays(m Month) int {
	count := 0
	for _, d := range m.Days() {
		if IsWorkday(d) {
			count++
		}
	}
	return count
}

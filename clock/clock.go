/*
Package clock converts wall-clock punch times between their 12-hour text form
and minutes since midnight.

FORMATS:
  Parse accepts "hh:mm AM" / "hh:mm PM" (case-insensitive, optional space
  before the period) and the 24-hour "HH:MM" form produced by HTML time
  inputs. Format always renders the 12-hour form with zero padding:

    Parse("09:05 AM") -> 545
    Parse("12:00 AM") -> 0
    Format(0)         -> "12:00 AM"
    Format(720)       -> "12:00 PM"

FAIL-SOFT:
  Parse never panics. Empty or malformed text yields ok == false so a single
  bad field cannot abort evaluation of a whole batch.
*/
package clock

import (
	"fmt"
	"strconv"
	"strings"
)

// Minutes is a wall-clock time expressed as minutes since local midnight.
type Minutes int

const (
	MinutesPerHour = 60
	MinutesPerDay  = 24 * MinutesPerHour
)

// Of builds a Minutes value from a 24-hour hour and minute.
func Of(hour, minute int) Minutes { return Minutes(hour*MinutesPerHour + minute) }

// Ptr returns a pointer to a copy of m, for optional punch fields.
func (m Minutes) Ptr() *Minutes { return &m }

func (m Minutes) Hour() int   { return int(m) / MinutesPerHour }
func (m Minutes) Minute() int { return int(m) % MinutesPerHour }

// String renders m as "hh:mm AM/PM".
func (m Minutes) String() string { return Format(m) }

// Parse converts clock text to minutes since midnight.
func Parse(text string) (Minutes, bool) {
	s := strings.ToUpper(strings.TrimSpace(text))
	if s == "" {
		return 0, false
	}

	period := ""
	switch {
	case strings.HasSuffix(s, "AM"):
		period = "AM"
	case strings.HasSuffix(s, "PM"):
		period = "PM"
	}
	if period != "" {
		s = strings.TrimSpace(strings.TrimSuffix(s, period))
	}

	hh, mm, found := strings.Cut(s, ":")
	if !found || len(mm) != 2 || hh == "" || len(hh) > 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}

	switch period {
	case "":
		if hour < 0 || hour > 23 {
			return 0, false
		}
	default:
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			hour = 0
		}
		if period == "PM" {
			hour += 12
		}
	}

	return Of(hour, minute), true
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(text string) Minutes {
	m, ok := Parse(text)
	if !ok {
		panic(fmt.Sprintf("clock: invalid time %q", text))
	}
	return m
}

// ParsePtr returns nil for empty or malformed text.
func ParsePtr(text string) *Minutes {
	m, ok := Parse(text)
	if !ok {
		return nil
	}
	return &m
}

// Format renders minutes as "hh:mm AM/PM". Values outside a single day are
// wrapped into [0, 1440).
func Format(m Minutes) string {
	v := int(m) % MinutesPerDay
	if v < 0 {
		v += MinutesPerDay
	}
	hour := v / MinutesPerHour
	minute := v % MinutesPerHour

	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%02d:%02d %s", hour, minute, period)
}

// FormatPtr renders an optional punch, "" when absent.
func FormatPtr(m *Minutes) string {
	if m == nil {
		return ""
	}
	return Format(*m)
}

// UnmarshalText lets policy documents write thresholds as clock text.
func (m *Minutes) UnmarshalText(b []byte) error {
	v, ok := Parse(string(b))
	if !ok {
		return fmt.Errorf("clock: invalid time %q", string(b))
	}
	*m = v
	return nil
}

func (m Minutes) MarshalText() ([]byte, error) { return []byte(Format(m)), nil }

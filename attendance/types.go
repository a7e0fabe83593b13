/*
Package attendance implements attendance compliance evaluation for faculty and
staff employees.

KEY CONCEPTS IN THIS FILE (types.go):
  - Record: one employee-day with punches, exemption flags and the derived
    hours/status/reason written by the engine
  - Class: employee class (faculty or staff), normalised leniently
  - Tour: official-tour exemption category
  - Reason: outcome label, optionally annotated ("Missing Punch-Out | Target 05:30 PM")
  - DayKind: the discriminated shape of a record before it reaches a ladder

DERIVED FIELDS:
  Hours, Status and Reason are never user-set. The engine recomputes them
  from scratch on every pass, which is what makes evaluation idempotent.

SEE ALSO:
  - policy.go: thresholds and quota formulas
  - rules.go: the faculty and staff rule ladders
  - engine.go: the monthly evaluation walk
*/
package attendance

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/clock"
)

// =============================================================================
// EMPLOYEE CLASS
// =============================================================================

type Class string

const (
	ClassFaculty Class = "faculty"
	ClassStaff   Class = "staff"
)

// NormalizeClass maps a free-form class, label or QR code to a Class.
// Anything that does not read as staff / non-teaching / "S" is treated as
// faculty.
func NormalizeClass(raw ...string) Class {
	for _, s := range raw {
		v := strings.ToLower(strings.TrimSpace(s))
		compact := strings.NewReplacer("-", "", " ", "", "_", "").Replace(v)
		if v == "s" || strings.Contains(v, "staff") || strings.Contains(compact, "nonteaching") {
			return ClassStaff
		}
	}
	return ClassFaculty
}

// Label is the display name used in exports.
func (c Class) Label() string {
	if c == ClassStaff {
		return "Non-Teaching"
	}
	return "Teaching"
}

// Code is the single-letter form used by the QR payload.
func (c Class) Code() string {
	if c == ClassStaff {
		return "S"
	}
	return "F"
}

// =============================================================================
// OFFICIAL TOUR
// =============================================================================

type Tour string

const (
	TourNone  Tour = ""
	TourLocal Tour = "local"
	TourOut   Tour = "out"
)

// ParseTour is lenient: unknown values mean no tour.
func ParseTour(s string) Tour {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "l" || strings.HasPrefix(v, "local"):
		return TourLocal
	case v == "o" || strings.HasPrefix(v, "out"):
		return TourOut
	}
	return TourNone
}

func (t Tour) Code() string {
	switch t {
	case TourLocal:
		return "L"
	case TourOut:
		return "O"
	}
	return ""
}

// =============================================================================
// STATUS AND REASON
// =============================================================================

type Status string

const (
	StatusCompliant    Status = "Compliant"
	StatusNonCompliant Status = "Non-Compliant"
)

type Reason string

const (
	ReasonOnTime             Reason = "On-Time"
	ReasonGrace              Reason = "Grace"
	ReasonRelaxation         Reason = "Semimonthly Relaxation"
	ReasonLateCompensation   Reason = "Late Compensation"
	ReasonLateCompensationI  Reason = "Late Compensation Type I"
	ReasonLateCompensationII Reason = "Late Compensation Type II"
	ReasonReject             Reason = "Reject"
	ReasonMissingPunchIn     Reason = "Missing Punch-In"
	ReasonMissingPunchOut    Reason = "Missing Punch-Out"
	ReasonClosedHoliday      Reason = "Closed Holiday"
	ReasonSpecialLeave       Reason = "Special Leave"
	ReasonOfficialTourLocal  Reason = "Official Tour (Local Station)"
	ReasonOfficialTourOut    Reason = "Official Tour (Out Station)"
)

const reasonSeparator = " | "

// With annotates a reason.
func (r Reason) With(note string) Reason { return r + Reason(reasonSeparator+note) }

// Base strips any annotation.
func (r Reason) Base() Reason {
	base, _, _ := strings.Cut(string(r), reasonSeparator)
	return Reason(base)
}

// Note returns the annotation, if any.
func (r Reason) Note() string {
	_, note, _ := strings.Cut(string(r), reasonSeparator)
	return note
}

// =============================================================================
// RECORD
// =============================================================================

// Record is one employee-day. Date is a civil date at UTC midnight.
type Record struct {
	EmployeeID    string
	Date          time.Time
	Class         Class
	PunchIn       *clock.Minutes
	PunchOut      *clock.Minutes
	Tour          Tour
	ClosedHoliday bool
	SpecialLeave  bool

	// Derived by the engine.
	Hours  decimal.Decimal
	Status Status
	Reason Reason
}

// Key identifies a record; the store keeps at most one record per key.
type Key struct {
	EmployeeID string
	Date       string
}

func (r Record) Key() Key {
	return Key{EmployeeID: r.EmployeeID, Date: calendar.FormatDate(r.Date)}
}

func (r Record) Month() calendar.Month { return calendar.MonthOf(r.Date) }

// IsCompliant reports the derived status.
func (r Record) IsCompliant() bool { return r.Status == StatusCompliant }

// Clone returns a copy that shares no punch pointers with r.
func (r Record) Clone() Record {
	c := r
	if r.PunchIn != nil {
		c.PunchIn = r.PunchIn.Ptr()
	}
	if r.PunchOut != nil {
		c.PunchOut = r.PunchOut.Ptr()
	}
	return c
}

// =============================================================================
// DAY KIND - discriminated before the rule ladder
// =============================================================================

type DayKind int

const (
	DayPunched DayKind = iota
	DayClosedHoliday
	DaySpecialLeave
	DayTourLocal
	DayTourOut
	DayMissingPunchIn
	DayMissingPunchOut
)

// Kind classifies r. Precedence: holiday > leave > tour > punches.
func (r Record) Kind() DayKind {
	switch {
	case r.ClosedHoliday:
		return DayClosedHoliday
	case r.SpecialLeave:
		return DaySpecialLeave
	case r.Tour == TourLocal:
		return DayTourLocal
	case r.Tour == TourOut:
		return DayTourOut
	case r.PunchIn == nil:
		return DayMissingPunchIn
	case r.PunchOut == nil:
		return DayMissingPunchOut
	}
	return DayPunched
}

// Filter selects records. Nil / zero fields match everything.
type Filter struct {
	EmployeeID *string
	Month      calendar.Month
	Class      Class
}

func (f Filter) Match(r Record) bool {
	if f.EmployeeID != nil && *f.EmployeeID != r.EmployeeID {
		return false
	}
	if !f.Month.IsZero() && !f.Month.Contains(r.Date) {
		return false
	}
	if f.Class != "" && f.Class != r.Class {
		return false
	}
	return true
}

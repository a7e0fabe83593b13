/*
policy.go - Thresholds and quota formulas per employee class

PURPOSE:
  A Policy is the immutable configuration the rule ladders read. Nothing in
  the engine holds package-level thresholds; every predicate receives the
  ClassPolicy of the group it is evaluating.

DEFAULTS (DefaultPolicy):
                       Faculty     Staff
  Office start         09:00       09:00
  Office end           17:30       17:30
  Grace end            09:10       09:10
  Late ceiling         10:30       09:30 (Type I)
  Type II ceiling      -           10:00
  Relaxation late      10:00       10:00
  Relaxation exit      16:30       16:30
  Full duty            8.5h        8.5h
  Relaxation duty      7.5h        7.5h
  Relaxation quota     2/month     2/month
  Type II share        -           30%

QUOTA FORMULAS:
  Both the engine and the summary aggregator size the Type II cap through
  ClassPolicy.TypeIILimit so displayed caps always equal enforced caps:

    limit = ceil((workingDays(month) - closedHolidays) * share), floored at 0

SEE ALSO:
  - rules.go: predicates reading these fields
  - factory/policy.go: loading a Policy from YAML or JSON
*/
package attendance

import (
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/clock"
)

// ClassPolicy holds the thresholds for one employee class.
type ClassPolicy struct {
	OfficeStart clock.Minutes
	OfficeEnd   clock.Minutes
	GraceEnd    clock.Minutes

	// LateCeiling bounds Late Compensation (faculty) or Type I (staff).
	LateCeiling clock.Minutes

	// TypeIICeiling bounds Late Compensation Type II. Zero disables the tier.
	TypeIICeiling clock.Minutes

	RelaxationLateCeiling clock.Minutes
	RelaxationEarliestOut clock.Minutes

	FullDutyMinutes       int
	RelaxationDutyMinutes int
	RelaxationQuota       int
	TypeIIShare           decimal.Decimal
}

// Policy is the complete configuration, one ClassPolicy per class.
type Policy struct {
	Faculty ClassPolicy
	Staff   ClassPolicy
}

// DefaultPolicy returns the jurisdiction's standard thresholds.
func DefaultPolicy() Policy {
	base := ClassPolicy{
		OfficeStart:           clock.Of(9, 0),
		OfficeEnd:             clock.Of(17, 30),
		GraceEnd:              clock.Of(9, 10),
		RelaxationLateCeiling: clock.Of(10, 0),
		RelaxationEarliestOut: clock.Of(16, 30),
		FullDutyMinutes:       510,
		RelaxationDutyMinutes: 450,
		RelaxationQuota:       2,
		TypeIIShare:           decimal.Zero,
	}

	faculty := base
	faculty.LateCeiling = clock.Of(10, 30)

	staff := base
	staff.LateCeiling = clock.Of(9, 30)
	staff.TypeIICeiling = clock.Of(10, 0)
	staff.TypeIIShare = decimal.RequireFromString("0.30")

	return Policy{Faculty: faculty, Staff: staff}
}

// For returns the ClassPolicy governing c.
func (p Policy) For(c Class) ClassPolicy {
	if c == ClassStaff {
		return p.Staff
	}
	return p.Faculty
}

// Validate checks both classes.
func (p Policy) Validate() error {
	if err := p.Faculty.validate(ClassFaculty); err != nil {
		return err
	}
	return p.Staff.validate(ClassStaff)
}

func (cp ClassPolicy) validate(c Class) error {
	fail := func(field, reason string) error {
		return &PolicyError{Class: c, Field: field, Reason: reason}
	}
	inDay := func(m clock.Minutes) bool { return m >= 0 && m < clock.MinutesPerDay }

	switch {
	case !inDay(cp.OfficeStart) || !inDay(cp.OfficeEnd):
		return fail("office hours", "must fall within one day")
	case cp.OfficeEnd <= cp.OfficeStart:
		return fail("office_end", "must be after office_start")
	case cp.GraceEnd < cp.OfficeStart:
		return fail("grace_end", "must not be before office_start")
	case cp.LateCeiling < cp.GraceEnd:
		return fail("late_ceiling", "must not be before grace_end")
	case cp.HasTypeII() && cp.TypeIICeiling <= cp.LateCeiling:
		return fail("type2_ceiling", "must be after late_ceiling")
	case cp.HasTypeII() && (cp.TypeIIShare.IsNegative() || cp.TypeIIShare.GreaterThan(decimal.NewFromInt(1))):
		return fail("type2_share", "must be between 0 and 1")
	case cp.FullDutyMinutes <= 0 || cp.RelaxationDutyMinutes <= 0:
		return fail("duty hours", "must be positive")
	case cp.RelaxationQuota < 0:
		return fail("relaxation_quota", "must not be negative")
	}
	return nil
}

// HasTypeII reports whether the Late Compensation Type II tier applies.
func (cp ClassPolicy) HasTypeII() bool { return cp.TypeIICeiling > 0 }

// TypeIILimit sizes the monthly Type II quota.
func (cp ClassPolicy) TypeIILimit(month calendar.Month, closedHolidays int) int {
	if !cp.HasTypeII() {
		return 0
	}
	days := calendar.WorkingDays(month) - closedHolidays
	if days <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(days)).Mul(cp.TypeIIShare).Ceil().IntPart())
}

// WithinGrace reports whether a punch-in still counts as on time or grace.
func (cp ClassPolicy) WithinGrace(in clock.Minutes) bool { return in <= cp.GraceEnd }

// PunchOutTarget is the earliest compliant punch-out for a punch-in: office
// end inside the grace window, otherwise punch-in plus full duty.
func (cp ClassPolicy) PunchOutTarget(in clock.Minutes) clock.Minutes {
	if cp.WithinGrace(in) {
		return cp.OfficeEnd
	}
	return in + clock.Minutes(cp.FullDutyMinutes)
}

/*
rules.go - Faculty and staff rule ladders

PURPOSE:
  A Ladder is an ordered list of (predicate, outcome) rules. Apply walks it
  top to bottom and the first matching rule decides the day. The order is the
  policy, so it is data here rather than nested conditionals, and tests can
  inspect it directly.

FACULTY LADDER:
  1. On-Time                 in <= start, out >= end
  2. Grace                   start < in <= grace end, out >= end
  3. Late Compensation       grace end < in <= late ceiling, worked >= full duty
  4. Semimonthly Relaxation  quota left, (late entry or early exit), worked >= relaxation duty
  5. Reject

STAFF LADDER:
  1. On-Time
  2. Grace
  3. Late Compensation Type I    grace end < in <= late ceiling, worked >= full duty
  4. Late Compensation Type II   late ceiling < in <= type II ceiling, worked >= full duty,
                                 type II quota left
  5. Semimonthly Relaxation
  6. Reject

Late compensation is checked before relaxation so a day that independently
qualifies never spends the scarcer relaxation quota.

QUOTA:
  Rules do not mutate counters. A matching rule reports which quota it
  consumes and the engine folds that into the next day's Counters.
*/
package attendance

import (
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/clock"
)

// Quota names a monthly allowance a rule can consume.
type Quota int

const (
	QuotaNone Quota = iota
	QuotaRelaxation
	QuotaTypeII
)

// Counters is the month-scoped quota state threaded through a group walk.
type Counters struct {
	Relaxation int
	TypeII     int
}

// Consume returns the counters after spending q.
func (c Counters) Consume(q Quota) Counters {
	switch q {
	case QuotaRelaxation:
		c.Relaxation++
	case QuotaTypeII:
		c.TypeII++
	}
	return c
}

// Punch is a completed day: both punches present.
type Punch struct {
	In  clock.Minutes
	Out clock.Minutes
}

// Worked returns the minutes between punches.
func (p Punch) Worked() int { return int(p.Out - p.In) }

// Hours returns worked time in hours, rounded to 2 places.
func (p Punch) Hours() decimal.Decimal { return HoursBetween(p.In, p.Out) }

// HoursBetween returns (out - in) / 60 rounded to 2 places.
func HoursBetween(in, out clock.Minutes) decimal.Decimal {
	return decimal.NewFromInt(int64(out - in)).Div(decimal.NewFromInt(clock.MinutesPerHour)).Round(2)
}

// RuleInput is everything a predicate may look at.
type RuleInput struct {
	Punch       Punch
	Policy      ClassPolicy
	Counters    Counters
	TypeIILimit int
}

// Rule pairs a predicate with the outcome it produces.
type Rule struct {
	Reason   Reason
	Status   Status
	Consumes Quota
	Match    func(RuleInput) bool
}

// Outcome is the result of applying a ladder to one day.
type Outcome struct {
	Hours    decimal.Decimal
	Status   Status
	Reason   Reason
	Consumed Quota
}

// Ladder is an ordered rule list; first match wins.
type Ladder []Rule

// Apply evaluates the ladder. A ladder with no matching rule rejects.
func (l Ladder) Apply(in RuleInput) Outcome {
	for _, rule := range l {
		if rule.Match(in) {
			return Outcome{
				Hours:    in.Punch.Hours(),
				Status:   rule.Status,
				Reason:   rule.Reason,
				Consumed: rule.Consumes,
			}
		}
	}
	return Outcome{Hours: in.Punch.Hours(), Status: StatusNonCompliant, Reason: ReasonReject}
}

// Reasons lists the ladder order, for inspection.
func (l Ladder) Reasons() []Reason {
	out := make([]Reason, len(l))
	for i, rule := range l {
		out[i] = rule.Reason
	}
	return out
}

// =============================================================================
// PREDICATES
// =============================================================================

func onTime(in RuleInput) bool {
	return in.Punch.In <= in.Policy.OfficeStart && in.Punch.Out >= in.Policy.OfficeEnd
}

func grace(in RuleInput) bool {
	return in.Punch.In > in.Policy.OfficeStart &&
		in.Punch.In <= in.Policy.GraceEnd &&
		in.Punch.Out >= in.Policy.OfficeEnd
}

// lateCompensation covers faculty Late Compensation and staff Type I.
func lateCompensation(in RuleInput) bool {
	return in.Punch.In > in.Policy.GraceEnd &&
		in.Punch.In <= in.Policy.LateCeiling &&
		in.Punch.Worked() >= in.Policy.FullDutyMinutes
}

func lateCompensationTypeII(in RuleInput) bool {
	return in.Policy.HasTypeII() &&
		in.Counters.TypeII < in.TypeIILimit &&
		in.Punch.In > in.Policy.LateCeiling &&
		in.Punch.In <= in.Policy.TypeIICeiling &&
		in.Punch.Worked() >= in.Policy.FullDutyMinutes
}

func relaxation(in RuleInput) bool {
	p := in.Policy
	if in.Counters.Relaxation >= p.RelaxationQuota {
		return false
	}
	lateEntry := in.Punch.In <= p.RelaxationLateCeiling && in.Punch.Out >= p.OfficeEnd
	earlyExit := in.Punch.In <= p.OfficeStart && in.Punch.Out >= p.RelaxationEarliestOut
	return (lateEntry || earlyExit) && in.Punch.Worked() >= p.RelaxationDutyMinutes
}

func always(RuleInput) bool { return true }

// =============================================================================
// LADDERS
// =============================================================================

var (
	ruleOnTime     = Rule{Reason: ReasonOnTime, Status: StatusCompliant, Match: onTime}
	ruleGrace      = Rule{Reason: ReasonGrace, Status: StatusCompliant, Match: grace}
	ruleRelaxation = Rule{Reason: ReasonRelaxation, Status: StatusCompliant, Consumes: QuotaRelaxation, Match: relaxation}
	ruleReject     = Rule{Reason: ReasonReject, Status: StatusNonCompliant, Match: always}
)

// FacultyLadder returns the faculty rule order.
func FacultyLadder() Ladder {
	return Ladder{
		ruleOnTime,
		ruleGrace,
		{Reason: ReasonLateCompensation, Status: StatusCompliant, Match: lateCompensation},
		ruleRelaxation,
		ruleReject,
	}
}

// StaffLadder returns the staff rule order.
func StaffLadder() Ladder {
	return Ladder{
		ruleOnTime,
		ruleGrace,
		{Reason: ReasonLateCompensationI, Status: StatusCompliant, Match: lateCompensation},
		{Reason: ReasonLateCompensationII, Status: StatusCompliant, Consumes: QuotaTypeII, Match: lateCompensationTypeII},
		ruleRelaxation,
		ruleReject,
	}
}

// LadderFor returns the ladder for an employee class.
func LadderFor(c Class) Ladder {
	if c == ClassStaff {
		return StaffLadder()
	}
	return FacultyLadder()
}

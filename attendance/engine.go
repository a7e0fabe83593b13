/*
engine.go - Monthly evaluation engine

PURPOSE:
  Recomputes Hours, Status and Reason for a whole record set. Quota counters
  are month-scoped and consumed in date order, so a record can never be
  evaluated on its own: the engine always works on full groups.

ALGORITHM:
  1. Copy the input, normalise class and date, clear derived fields.
  2. Drop duplicate keys, last write wins.
  3. Partition into groups keyed by (employee, class, month), in order of
     first appearance.
  4. Sort each group by date (stable, ties keep input order).
  5. Size the group's Type II limit from working days minus closed holidays.
  6. Fold over the group: each day takes the current Counters and returns
     its evaluated record plus the next Counters.
  7. Concatenate groups. Output is not re-sorted.

DAY HANDLING (by DayKind):
  Closed holiday / special leave  Compliant, 0 hours, counters untouched
  Official tour (local)           Compliant when punched in, else Missing Punch-In
  Official tour (out)             Always Compliant
  Missing punch-in                Non-Compliant, 0 hours
  Missing punch-out               Non-Compliant, 0 hours, annotated with target out-time
  Punched                         class ladder with current counters

PURITY:
  Evaluate never mutates its input and keeps no state between calls, so
  Evaluate(Evaluate(x)) == Evaluate(x).
*/
package attendance

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/clock"
)

// Engine evaluates record sets under a fixed Policy.
type Engine struct {
	policy  Policy
	faculty Ladder
	staff   Ladder
}

// NewEngine creates an engine for p.
func NewEngine(p Policy) *Engine {
	return &Engine{policy: p, faculty: FacultyLadder(), staff: StaffLadder()}
}

// Policy returns the engine's configuration.
func (e *Engine) Policy() Policy { return e.policy }

// Evaluate runs the default-policy engine.
func Evaluate(records []Record) []Record {
	return NewEngine(DefaultPolicy()).Evaluate(records)
}

type groupKey struct {
	EmployeeID string
	Class      Class
	Month      calendar.Month
}

// Evaluate returns a freshly evaluated copy of records.
func (e *Engine) Evaluate(records []Record) []Record {
	prepared := dedupe(normalize(records))

	var order []groupKey
	groups := make(map[groupKey][]Record)
	for _, r := range prepared {
		k := groupKey{EmployeeID: r.EmployeeID, Class: r.Class, Month: r.Month()}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	out := make([]Record, 0, len(prepared))
	for _, k := range order {
		out = append(out, e.evaluateGroup(k, groups[k])...)
	}
	return out
}

func (e *Engine) evaluateGroup(k groupKey, group []Record) []Record {
	sort.SliceStable(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })

	cp := e.policy.For(k.Class)
	limit := cp.TypeIILimit(k.Month, countClosedHolidays(group))
	ladder := e.faculty
	if k.Class == ClassStaff {
		ladder = e.staff
	}

	var counters Counters
	for i, r := range group {
		group[i], counters = evaluateDay(cp, ladder, limit, counters, r)
	}
	return group
}

// evaluateDay is one step of the monthly fold.
func evaluateDay(cp ClassPolicy, ladder Ladder, limit int, c Counters, r Record) (Record, Counters) {
	r.Hours = decimal.Zero

	switch r.Kind() {
	case DayClosedHoliday:
		r.Status, r.Reason = StatusCompliant, ReasonClosedHoliday

	case DaySpecialLeave:
		r.Status, r.Reason = StatusCompliant, ReasonSpecialLeave

	case DayTourLocal:
		r.Hours = partialHours(r)
		switch {
		case r.PunchIn == nil:
			r.Status, r.Reason = StatusNonCompliant, ReasonMissingPunchIn.With(string(ReasonOfficialTourLocal))
		case r.PunchOut == nil:
			r.Status, r.Reason = StatusCompliant, ReasonOfficialTourLocal.With("Punch-Out Exempted")
		default:
			r.Status, r.Reason = StatusCompliant, ReasonOfficialTourLocal
		}

	case DayTourOut:
		r.Hours = partialHours(r)
		r.Status, r.Reason = StatusCompliant, outStationReason(r)

	case DayMissingPunchIn:
		r.Status, r.Reason = StatusNonCompliant, ReasonMissingPunchIn

	case DayMissingPunchOut:
		target := cp.PunchOutTarget(*r.PunchIn)
		r.Status, r.Reason = StatusNonCompliant, ReasonMissingPunchOut.With("Target "+clock.Format(target))

	default:
		outcome := ladder.Apply(RuleInput{
			Punch:       Punch{In: *r.PunchIn, Out: *r.PunchOut},
			Policy:      cp,
			Counters:    c,
			TypeIILimit: limit,
		})
		r.Hours, r.Status, r.Reason = outcome.Hours, outcome.Status, outcome.Reason
		c = c.Consume(outcome.Consumed)
	}

	return r, c
}

func outStationReason(r Record) Reason {
	switch {
	case r.PunchIn == nil && r.PunchOut == nil:
		return ReasonOfficialTourOut.With("Punch-In & Punch-Out Exempted")
	case r.PunchIn == nil:
		return ReasonOfficialTourOut.With("Punch-In Exempted")
	case r.PunchOut == nil:
		return ReasonOfficialTourOut.With("Punch-Out Exempted")
	}
	return ReasonOfficialTourOut
}

// partialHours is best-effort: zero unless both punches exist.
func partialHours(r Record) decimal.Decimal {
	if r.PunchIn == nil || r.PunchOut == nil {
		return decimal.Zero
	}
	return HoursBetween(*r.PunchIn, *r.PunchOut)
}

func countClosedHolidays(group []Record) int {
	n := 0
	for _, r := range group {
		if r.ClosedHoliday {
			n++
		}
	}
	return n
}

// normalize copies records and clears anything derived.
func normalize(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		c := r.Clone()
		c.Class = NormalizeClass(string(r.Class))
		c.Date = calendar.Truncate(r.Date)
		c.Hours = decimal.Zero
		c.Status = ""
		c.Reason = ""
		out[i] = c
	}
	return out
}

// dedupe keeps the last record for each key, at that record's position.
func dedupe(records []Record) []Record {
	seen := make(map[Key]bool, len(records))
	kept := make([]Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		k := records[i].Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		kept = append(kept, records[i])
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

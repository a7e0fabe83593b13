package attendance

import (
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/calendar"
)

// Summary is a read-only tally of evaluated records for one employee, month
// and class. Caps are derived with the same ClassPolicy methods the engine
// enforces, so "Relaxation: 1/2" always matches what the engine allowed.
type Summary struct {
	EmployeeID string
	Month      calendar.Month
	Class      Class

	Total        int
	Compliant    int
	NonCompliant int

	OnTime                 int
	Grace                  int
	Relaxation             int
	LateCompensation       int
	LateCompensationTypeI  int
	LateCompensationTypeII int
	Reject                 int
	MissingPunchIn         int
	MissingPunchOut        int
	ClosedHoliday          int
	SpecialLeave           int
	OfficialTour           int

	WorkingDays     int
	RelaxationLimit int
	TypeIILimit     int
	TotalHours      decimal.Decimal
}

// Summarize tallies already-evaluated records. It never re-evaluates.
func Summarize(p Policy, records []Record, employeeID string, month calendar.Month, class Class) Summary {
	cp := p.For(class)
	s := Summary{
		EmployeeID:      employeeID,
		Month:           month,
		Class:           class,
		WorkingDays:     calendar.WorkingDays(month),
		RelaxationLimit: cp.RelaxationQuota,
		TotalHours:      decimal.Zero,
	}

	filter := Filter{EmployeeID: &employeeID, Month: month, Class: class}
	for _, r := range records {
		if !filter.Match(r) {
			continue
		}
		s.Total++
		s.TotalHours = s.TotalHours.Add(r.Hours)

		switch r.Status {
		case StatusCompliant:
			s.Compliant++
		case StatusNonCompliant:
			s.NonCompliant++
		}
		if r.ClosedHoliday {
			s.ClosedHoliday++
		}

		switch r.Reason.Base() {
		case ReasonOnTime:
			s.OnTime++
		case ReasonGrace:
			s.Grace++
		case ReasonRelaxation:
			s.Relaxation++
		case ReasonLateCompensation:
			s.LateCompensation++
		case ReasonLateCompensationI:
			s.LateCompensationTypeI++
		case ReasonLateCompensationII:
			s.LateCompensationTypeII++
		case ReasonReject:
			s.Reject++
		case ReasonMissingPunchIn:
			s.MissingPunchIn++
		case ReasonMissingPunchOut:
			s.MissingPunchOut++
		case ReasonSpecialLeave:
			s.SpecialLeave++
		case ReasonOfficialTourLocal, ReasonOfficialTourOut:
			s.OfficialTour++
		}
	}

	s.TypeIILimit = cp.TypeIILimit(month, s.ClosedHoliday)
	return s
}

package attendance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/clock"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func facultyInput(in, out string, relaxUsed int) attendance.RuleInput {
	return attendance.RuleInput{
		Punch:    attendance.Punch{In: clock.MustParse(in), Out: clock.MustParse(out)},
		Policy:   attendance.DefaultPolicy().Faculty,
		Counters: attendance.Counters{Relaxation: relaxUsed},
	}
}

func staffInput(in, out string, relaxUsed, type2Used, type2Limit int) attendance.RuleInput {
	return attendance.RuleInput{
		Punch:       attendance.Punch{In: clock.MustParse(in), Out: clock.MustParse(out)},
		Policy:      attendance.DefaultPolicy().Staff,
		Counters:    attendance.Counters{Relaxation: relaxUsed, TypeII: type2Used},
		TypeIILimit: type2Limit,
	}
}

// =============================================================================
// LADDER ORDER
// =============================================================================

func TestFacultyLadder_Order(t *testing.T) {
	assert.Equal(t, []attendance.Reason{
		attendance.ReasonOnTime,
		attendance.ReasonGrace,
		attendance.ReasonLateCompensation,
		attendance.ReasonRelaxation,
		attendance.ReasonReject,
	}, attendance.FacultyLadder().Reasons())
}

func TestStaffLadder_Order(t *testing.T) {
	assert.Equal(t, []attendance.Reason{
		attendance.ReasonOnTime,
		attendance.ReasonGrace,
		attendance.ReasonLateCompensationI,
		attendance.ReasonLateCompensationII,
		attendance.ReasonRelaxation,
		attendance.ReasonReject,
	}, attendance.StaffLadder().Reasons())
}

func TestLadderFor(t *testing.T) {
	assert.Len(t, attendance.LadderFor(attendance.ClassFaculty), 5)
	assert.Len(t, attendance.LadderFor(attendance.ClassStaff), 6)
}

func TestEmptyLadder_Rejects(t *testing.T) {
	out := attendance.Ladder{}.Apply(facultyInput("09:00 AM", "05:30 PM", 0))
	assert.Equal(t, attendance.StatusNonCompliant, out.Status)
	assert.Equal(t, attendance.ReasonReject, out.Reason)
}

// =============================================================================
// FACULTY
// =============================================================================

func TestFaculty_Boundaries(t *testing.T) {
	ladder := attendance.FacultyLadder()
	cases := []struct {
		name      string
		in, out   string
		relaxUsed int
		reason    attendance.Reason
		status    attendance.Status
		consumed  attendance.Quota
	}{
		{"on time at start", "09:00 AM", "05:30 PM", 2, attendance.ReasonOnTime, attendance.StatusCompliant, attendance.QuotaNone},
		{"early arrival", "08:30 AM", "05:30 PM", 2, attendance.ReasonOnTime, attendance.StatusCompliant, attendance.QuotaNone},
		{"grace first minute", "09:01 AM", "05:30 PM", 2, attendance.ReasonGrace, attendance.StatusCompliant, attendance.QuotaNone},
		{"grace last minute", "09:10 AM", "05:30 PM", 2, attendance.ReasonGrace, attendance.StatusCompliant, attendance.QuotaNone},
		{"late compensation first minute", "09:11 AM", "05:41 PM", 2, attendance.ReasonLateCompensation, attendance.StatusCompliant, attendance.QuotaNone},
		{"late compensation at ceiling", "10:30 AM", "07:00 PM", 2, attendance.ReasonLateCompensation, attendance.StatusCompliant, attendance.QuotaNone},
		{"past late ceiling", "10:31 AM", "08:00 PM", 0, attendance.ReasonReject, attendance.StatusNonCompliant, attendance.QuotaNone},
		{"late short day uses relaxation", "09:11 AM", "05:30 PM", 0, attendance.ReasonRelaxation, attendance.StatusCompliant, attendance.QuotaRelaxation},
		{"late short day without quota", "09:11 AM", "05:30 PM", 2, attendance.ReasonReject, attendance.StatusNonCompliant, attendance.QuotaNone},
		{"relaxation at late ceiling", "10:00 AM", "05:30 PM", 1, attendance.ReasonRelaxation, attendance.StatusCompliant, attendance.QuotaRelaxation},
		{"relaxation late entry past ceiling", "10:01 AM", "05:30 PM", 0, attendance.ReasonReject, attendance.StatusNonCompliant, attendance.QuotaNone},
		{"relaxation early exit", "08:55 AM", "04:30 PM", 0, attendance.ReasonRelaxation, attendance.StatusCompliant, attendance.QuotaRelaxation},
		{"exit before relaxation floor", "08:55 AM", "04:29 PM", 0, attendance.ReasonReject, attendance.StatusNonCompliant, attendance.QuotaNone},
		{"late arrival and early exit", "09:01 AM", "04:30 PM", 0, attendance.ReasonReject, attendance.StatusNonCompliant, attendance.QuotaNone},
		{"grace but left early", "09:05 AM", "05:00 PM", 2, attendance.ReasonReject, attendance.StatusNonCompliant, attendance.QuotaNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := ladder.Apply(facultyInput(tc.in, tc.out, tc.relaxUsed))
			assert.Equal(t, tc.reason, out.Reason)
			assert.Equal(t, tc.status, out.Status)
			assert.Equal(t, tc.consumed, out.Consumed)
		})
	}
}

func TestFaculty_LateCompensationDoesNotSpendRelaxation(t *testing.T) {
	// GIVEN: a late arrival that also satisfies relaxation
	// WHEN: relaxation quota is untouched
	// THEN: late compensation wins and no quota is consumed
	out := attendance.FacultyLadder().Apply(facultyInput("09:30 AM", "06:00 PM", 0))

	assert.Equal(t, attendance.ReasonLateCompensation, out.Reason)
	assert.Equal(t, attendance.QuotaNone, out.Consumed)
}

func TestFaculty_NeverReachesTypeII(t *testing.T) {
	in := facultyInput("10:45 AM", "07:15 PM", 2)
	in.TypeIILimit = 10

	out := attendance.FacultyLadder().Apply(in)
	assert.Equal(t, attendance.ReasonReject, out.Reason)
	assert.False(t, attendance.DefaultPolicy().Faculty.HasTypeII())
}

func TestFaculty_HoursRounded(t *testing.T) {
	ladder := attendance.FacultyLadder()

	assert.Equal(t, "8.50", ladder.Apply(facultyInput("09:00 AM", "05:30 PM", 0)).Hours.StringFixed(2))
	assert.Equal(t, "8.32", ladder.Apply(facultyInput("09:11 AM", "05:30 PM", 0)).Hours.StringFixed(2))
	assert.Equal(t, "9.02", ladder.Apply(facultyInput("08:29 AM", "05:30 PM", 0)).Hours.StringFixed(2))
}

// =============================================================================
// STAFF
// =============================================================================

func TestStaff_Boundaries(t *testing.T) {
	ladder := attendance.StaffLadder()
	cases := []struct {
		name                     string
		in, out                  string
		relaxUsed, t2Used, t2Cap int
		reason                   attendance.Reason
		consumed                 attendance.Quota
	}{
		{"on time", "09:00 AM", "05:30 PM", 0, 0, 6, attendance.ReasonOnTime, attendance.QuotaNone},
		{"grace", "09:08 AM", "05:30 PM", 0, 0, 6, attendance.ReasonGrace, attendance.QuotaNone},
		{"type I first minute", "09:11 AM", "05:41 PM", 0, 0, 6, attendance.ReasonLateCompensationI, attendance.QuotaNone},
		{"type I at ceiling", "09:30 AM", "06:00 PM", 0, 0, 6, attendance.ReasonLateCompensationI, attendance.QuotaNone},
		{"type II first minute", "09:31 AM", "06:15 PM", 0, 0, 6, attendance.ReasonLateCompensationII, attendance.QuotaTypeII},
		{"type II at ceiling", "10:00 AM", "06:30 PM", 0, 5, 6, attendance.ReasonLateCompensationII, attendance.QuotaTypeII},
		{"type II exhausted falls to relaxation", "09:31 AM", "06:15 PM", 0, 6, 6, attendance.ReasonRelaxation, attendance.QuotaRelaxation},
		{"type II and relaxation exhausted", "09:31 AM", "06:15 PM", 2, 6, 6, attendance.ReasonReject, attendance.QuotaNone},
		{"type II short day uses relaxation", "09:45 AM", "05:30 PM", 0, 0, 6, attendance.ReasonRelaxation, attendance.QuotaRelaxation},
		{"past type II ceiling", "10:01 AM", "07:00 PM", 0, 0, 6, attendance.ReasonReject, attendance.QuotaNone},
		{"zero cap", "09:45 AM", "06:15 PM", 2, 0, 0, attendance.ReasonReject, attendance.QuotaNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := ladder.Apply(staffInput(tc.in, tc.out, tc.relaxUsed, tc.t2Used, tc.t2Cap))
			assert.Equal(t, tc.reason, out.Reason)
			assert.Equal(t, tc.consumed, out.Consumed)
		})
	}
}

func TestCounters_Consume(t *testing.T) {
	c := attendance.Counters{}
	c = c.Consume(attendance.QuotaRelaxation)
	c = c.Consume(attendance.QuotaTypeII)
	c = c.Consume(attendance.QuotaTypeII)
	c = c.Consume(attendance.QuotaNone)

	assert.Equal(t, attendance.Counters{Relaxation: 1, TypeII: 2}, c)
}

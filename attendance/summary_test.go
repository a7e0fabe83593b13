package attendance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/clock"
)

func TestSummarize_StaffMonth(t *testing.T) {
	// GIVEN: a staff month that exhausts both quotas
	records := []attendance.Record{
		{Date: march(17), Class: attendance.ClassStaff, ClosedHoliday: true},
		{Date: march(18), Class: attendance.ClassStaff, Tour: attendance.TourOut},
		punched(attendance.ClassStaff, march(19), "09:00 AM", ""),
	}
	for _, d := range []int{3, 4, 5, 6, 7, 10, 11, 12, 13} {
		records = append(records, punched(attendance.ClassStaff, march(d), "09:45 AM", "06:15 PM"))
	}
	evaluated := attendance.Evaluate(records)

	// WHEN
	s := attendance.Summarize(attendance.DefaultPolicy(), evaluated, "", calendar.Month{Year: 2025, Month: time.March}, attendance.ClassStaff)

	// THEN
	assert.Equal(t, 12, s.Total)
	assert.Equal(t, 10, s.Compliant)
	assert.Equal(t, 2, s.NonCompliant)
	assert.Equal(t, 6, s.LateCompensationTypeII)
	assert.Equal(t, 2, s.Relaxation)
	assert.Equal(t, 1, s.Reject)
	assert.Equal(t, 1, s.MissingPunchOut)
	assert.Equal(t, 1, s.ClosedHoliday)
	assert.Equal(t, 1, s.OfficialTour)
	assert.Equal(t, 21, s.WorkingDays)
	assert.Equal(t, 2, s.RelaxationLimit)
	assert.Equal(t, 6, s.TypeIILimit)
	// 9 days of 8h30m
	assert.Equal(t, "76.50", s.TotalHours.StringFixed(2))
}

func TestSummarize_ScopesToEmployeeAndClass(t *testing.T) {
	other := punched(attendance.ClassFaculty, march(3), "09:00 AM", "05:30 PM")
	other.EmployeeID = "emp-2"

	records := attendance.Evaluate([]attendance.Record{
		punched(attendance.ClassFaculty, march(3), "09:00 AM", "05:30 PM"),
		punched(attendance.ClassFaculty, march(4), "09:05 AM", "05:30 PM"),
		punched(attendance.ClassStaff, march(5), "09:00 AM", "05:30 PM"),
		punched(attendance.ClassFaculty, calendar.NewDate(2025, time.April, 1), "09:00 AM", "05:30 PM"),
		other,
	})

	s := attendance.Summarize(attendance.DefaultPolicy(), records, "", calendar.Month{Year: 2025, Month: time.March}, attendance.ClassFaculty)

	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.OnTime)
	assert.Equal(t, 1, s.Grace)
	assert.Equal(t, 0, s.TypeIILimit)
	assert.Equal(t, "16.92", s.TotalHours.StringFixed(2))
}

func TestSummarize_CountsAnnotatedReasonsByBase(t *testing.T) {
	records := attendance.Evaluate([]attendance.Record{
		{Date: march(3), Class: attendance.ClassFaculty, Tour: attendance.TourLocal},
		{Date: march(4), Class: attendance.ClassFaculty, Tour: attendance.TourLocal, PunchIn: clock.ParsePtr("09:00 AM")},
	})

	s := attendance.Summarize(attendance.DefaultPolicy(), records, "", calendar.Month{Year: 2025, Month: time.March}, attendance.ClassFaculty)

	assert.Equal(t, 1, s.MissingPunchIn)
	assert.Equal(t, 1, s.OfficialTour)
}

func TestSummarize_Empty(t *testing.T) {
	s := attendance.Summarize(attendance.DefaultPolicy(), nil, "", calendar.Month{Year: 2025, Month: time.March}, attendance.ClassStaff)

	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 7, s.TypeIILimit)
	assert.True(t, s.TotalHours.IsZero())
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the attendance domain model from the external API contract: punch times
  travel as "hh:mm AM/PM" text, dates as ISO strings and hours as a fixed
  two-decimal string so clients never see float rounding.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Records:
    RecordDTO, RecordRequest

  Tallies:
    SummaryDTO, RunDTO, ImportResultDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request shape is checked with validator struct tags (validate.go);
  conversion to attendance.Record happens in toRecord. Derived fields
  (hours, status, reason) are response-only. RecordRequest has no slot for
  them, so a client cannot set them.

SEE ALSO:
  - handlers.go: Uses these types
  - transfer/: the CSV and QR wire formats
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/clock"
	"github.com/warp/attendance-engine/transfer"
)

// =============================================================================
// RECORDS
// =============================================================================

// RecordDTO is an evaluated attendance record.
type RecordDTO struct {
	Date          string `json:"date"`
	Employee      string `json:"employee"`
	Class         string `json:"class"`
	ClassLabel    string `json:"class_label"`
	In            string `json:"in"`
	Out           string `json:"out"`
	Tour          string `json:"tour,omitempty"`
	ClosedHoliday bool   `json:"closed_holiday"`
	SpecialLeave  bool   `json:"special_leave"`
	Hours         string `json:"hours"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
}

// RecordRequest is the body of PUT /api/records and each element of the
// POST /api/evaluate batch.
type RecordRequest struct {
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Employee      string `json:"employee" validate:"max=64"`
	Class         string `json:"class" validate:"max=32"`
	In            string `json:"in" validate:"max=16"`
	Out           string `json:"out" validate:"max=16"`
	Tour          string `json:"tour" validate:"max=32"`
	ClosedHoliday bool   `json:"closed_holiday"`
	SpecialLeave  bool   `json:"special_leave"`
}

func toRecordDTO(r attendance.Record) RecordDTO {
	return RecordDTO{
		Date:          calendar.FormatDate(r.Date),
		Employee:      r.EmployeeID,
		Class:         string(r.Class),
		ClassLabel:    r.Class.Label(),
		In:            clock.FormatPtr(r.PunchIn),
		Out:           clock.FormatPtr(r.PunchOut),
		Tour:          string(r.Tour),
		ClosedHoliday: r.ClosedHoliday,
		SpecialLeave:  r.SpecialLeave,
		Hours:         r.Hours.StringFixed(2),
		Status:        string(r.Status),
		Reason:        string(r.Reason),
	}
}

func toRecordDTOs(records []attendance.Record) []RecordDTO {
	dtos := make([]RecordDTO, len(records))
	for i, r := range records {
		dtos[i] = toRecordDTO(r)
	}
	return dtos
}

// toRecord rejects visibly invalid input: a bad date or a punch time that is
// present but unparseable. Class and tour are normalised leniently.
func toRecord(req RecordRequest) (attendance.Record, error) {
	req.Date = strings.TrimSpace(req.Date)
	if err := validate.Struct(req); err != nil {
		return attendance.Record{}, err
	}

	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("%w: %v", attendance.ErrInvalidDate, err)
	}
	in, err := parsePunch("in", req.In)
	if err != nil {
		return attendance.Record{}, err
	}
	out, err := parsePunch("out", req.Out)
	if err != nil {
		return attendance.Record{}, err
	}

	rec := attendance.Record{
		EmployeeID:    strings.TrimSpace(req.Employee),
		Date:          date,
		Class:         attendance.NormalizeClass(req.Class),
		PunchIn:       in,
		PunchOut:      out,
		Tour:          attendance.ParseTour(req.Tour),
		ClosedHoliday: req.ClosedHoliday,
		SpecialLeave:  req.SpecialLeave,
	}
	if err := attendance.ValidateRecord(rec); err != nil {
		return attendance.Record{}, err
	}
	return rec, nil
}

func parsePunch(field, text string) (*clock.Minutes, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	m, ok := clock.Parse(text)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", field, transfer.ErrInvalidTime, text)
	}
	return &m, nil
}

// =============================================================================
// SUMMARY, RUNS, IMPORTS
// =============================================================================

// SummaryDTO is the monthly tally shown alongside the record grid.
type SummaryDTO struct {
	Employee     string `json:"employee"`
	Month        string `json:"month"`
	Class        string `json:"class"`
	Total        int    `json:"total"`
	Compliant    int    `json:"compliant"`
	NonCompliant int    `json:"non_compliant"`

	OnTime                 int `json:"on_time"`
	Grace                  int `json:"grace"`
	Relaxation             int `json:"relaxation"`
	LateCompensation       int `json:"late_compensation"`
	LateCompensationTypeI  int `json:"late_compensation_type_i"`
	LateCompensationTypeII int `json:"late_compensation_type_ii"`
	Reject                 int `json:"reject"`
	MissingPunchIn         int `json:"missing_punch_in"`
	MissingPunchOut        int `json:"missing_punch_out"`
	ClosedHoliday          int `json:"closed_holiday"`
	SpecialLeave           int `json:"special_leave"`
	OfficialTour           int `json:"official_tour"`

	WorkingDays     int    `json:"working_days"`
	RelaxationLimit int    `json:"relaxation_limit"`
	TypeIILimit     int    `json:"type2_limit"`
	TotalHours      string `json:"total_hours"`
}

func toSummaryDTO(s attendance.Summary) SummaryDTO {
	return SummaryDTO{
		Employee:               s.EmployeeID,
		Month:                  s.Month.String(),
		Class:                  string(s.Class),
		Total:                  s.Total,
		Compliant:              s.Compliant,
		NonCompliant:           s.NonCompliant,
		OnTime:                 s.OnTime,
		Grace:                  s.Grace,
		Relaxation:             s.Relaxation,
		LateCompensation:       s.LateCompensation,
		LateCompensationTypeI:  s.LateCompensationTypeI,
		LateCompensationTypeII: s.LateCompensationTypeII,
		Reject:                 s.Reject,
		MissingPunchIn:         s.MissingPunchIn,
		MissingPunchOut:        s.MissingPunchOut,
		ClosedHoliday:          s.ClosedHoliday,
		SpecialLeave:           s.SpecialLeave,
		OfficialTour:           s.OfficialTour,
		WorkingDays:            s.WorkingDays,
		RelaxationLimit:        s.RelaxationLimit,
		TypeIILimit:            s.TypeIILimit,
		TotalHours:             s.TotalHours.StringFixed(2),
	}
}

// RunDTO is one evaluation-run audit entry.
type RunDTO struct {
	ID           string `json:"id"`
	Trigger      string `json:"trigger"`
	Records      int    `json:"records"`
	Compliant    int    `json:"compliant"`
	NonCompliant int    `json:"non_compliant"`
	CreatedAt    string `json:"created_at"`
}

func toRunDTO(run attendance.EvaluationRun) RunDTO {
	return RunDTO{
		ID:           run.ID,
		Trigger:      string(run.Trigger),
		Records:      run.Records,
		Compliant:    run.Compliant,
		NonCompliant: run.NonCompliant,
		CreatedAt:    run.CreatedAt.Format(time.RFC3339),
	}
}

// ImportResultDTO reports a merged CSV / QR batch.
type ImportResultDTO struct {
	Received int    `json:"received"`
	Inserted int    `json:"inserted"`
	Replaced int    `json:"replaced"`
	Run      RunDTO `json:"run"`
}

func toImportResultDTO(res attendance.ImportResult) ImportResultDTO {
	return ImportResultDTO{
		Received: res.Received,
		Inserted: res.Inserted,
		Replaced: res.Replaced,
		Run:      toRunDTO(res.Run),
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Class       string `json:"class"`
	Month       string `json:"month"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`

	// Fields maps a request field to the validation rule it failed.
	Fields map[string]string `json:"fields,omitempty"`
}

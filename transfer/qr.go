package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/clock"
)

// QR payloads are JSON. The compact form keeps a month of records inside the
// capacity of a single code:
//
//	[["2025-03-03","emp-1","F","09:05 AM","05:30 PM","",0], ...]
//
// Positions are date, employee, class code (F/S), in, out, tour code
// (""/L/O) and flags (1 = closed holiday, 2 = special leave). Derived fields
// are never carried; the importer re-evaluates.
//
// The importer also accepts an array of objects in the verbose form written
// by earlier exports (date, empType, inTime, outTime, closedHoliday,
// specialLeave, officialTour). Compact rows and objects may not be mixed
// with anything else: one bad entry rejects the payload.

const (
	flagClosedHoliday = 1 << 0
	flagSpecialLeave  = 1 << 1
)

// verboseRecord is the object form of a QR entry.
type verboseRecord struct {
	Date          string `json:"date"`
	Employee      string `json:"employee"`
	EmpType       string `json:"empType"`
	EmpLabel      string `json:"empLabel"`
	InTime        string `json:"inTime"`
	OutTime       string `json:"outTime"`
	ClosedHoliday bool   `json:"closedHoliday"`
	SpecialLeave  bool   `json:"specialLeave"`
	OfficialTour  string `json:"officialTour"`
}

// EncodeQR renders records in the compact form.
func EncodeQR(records []attendance.Record) ([]byte, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		flags := 0
		if r.ClosedHoliday {
			flags |= flagClosedHoliday
		}
		if r.SpecialLeave {
			flags |= flagSpecialLeave
		}
		rows = append(rows, []any{
			calendar.FormatDate(r.Date),
			r.EmployeeID,
			attendance.NormalizeClass(string(r.Class)).Code(),
			clock.FormatPtr(r.PunchIn),
			clock.FormatPtr(r.PunchOut),
			r.Tour.Code(),
			flags,
		})
	}
	return json.Marshal(rows)
}

// ParseQR decodes a compact or verbose payload.
func ParseQR(data []byte) ([]attendance.Record, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQR, err)
	}

	records := make([]attendance.Record, 0, len(entries))
	for i, raw := range entries {
		var (
			rec attendance.Record
			err error
		)
		switch trimmed := bytes.TrimSpace(raw); {
		case len(trimmed) > 0 && trimmed[0] == '[':
			rec, err = parseCompact(trimmed)
		case len(trimmed) > 0 && trimmed[0] == '{':
			rec, err = parseVerbose(trimmed)
		default:
			err = &RowError{Err: ErrInvalidQR}
		}
		if err != nil {
			if re, ok := err.(*RowError); ok {
				re.Line = i + 1
				return nil, re
			}
			return nil, &RowError{Line: i + 1, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseCompact(raw []byte) (attendance.Record, error) {
	var (
		date, employee, class, in, out, tour string
		flags                                int
	)
	fields := []any{&date, &employee, &class, &in, &out, &tour, &flags}

	var cells []json.RawMessage
	if err := json.Unmarshal(raw, &cells); err != nil {
		return attendance.Record{}, &RowError{Err: fmt.Errorf("%w: %v", ErrInvalidQR, err)}
	}
	if len(cells) < 1 || len(cells) > len(fields) {
		return attendance.Record{}, &RowError{Err: fmt.Errorf("%w: expected up to %d fields, got %d", ErrInvalidQR, len(fields), len(cells))}
	}
	for i, cell := range cells {
		if err := json.Unmarshal(cell, fields[i]); err != nil {
			return attendance.Record{}, &RowError{Field: fmt.Sprintf("field %d", i+1), Err: fmt.Errorf("%w: %v", ErrInvalidQR, err)}
		}
	}

	return buildRecord(date, employee, class, in, out, tour,
		flags&flagClosedHoliday != 0, flags&flagSpecialLeave != 0)
}

func parseVerbose(raw []byte) (attendance.Record, error) {
	var v verboseRecord
	if err := json.Unmarshal(raw, &v); err != nil {
		return attendance.Record{}, &RowError{Err: fmt.Errorf("%w: %v", ErrInvalidQR, err)}
	}
	return buildRecord(v.Date, v.Employee, v.EmpType+" "+v.EmpLabel, v.InTime, v.OutTime, v.OfficialTour,
		v.ClosedHoliday, v.SpecialLeave)
}

func buildRecord(date, employee, class, in, out, tour string, holiday, leave bool) (attendance.Record, error) {
	rec := attendance.Record{
		EmployeeID:    employee,
		Class:         attendance.NormalizeClass(class),
		Tour:          attendance.ParseTour(tour),
		ClosedHoliday: holiday,
		SpecialLeave:  leave,
	}

	var err error
	if rec.Date, err = calendar.ParseDate(date); err != nil {
		return rec, &RowError{Field: "date", Err: attendance.ErrInvalidDate}
	}
	if rec.PunchIn, err = parseTime(in); err != nil {
		return rec, &RowError{Field: "in", Err: err}
	}
	if rec.PunchOut, err = parseTime(out); err != nil {
		return rec, &RowError{Field: "out", Err: err}
	}
	if err := attendance.ValidateRecord(rec); err != nil {
		return rec, &RowError{Err: err}
	}
	return rec, nil
}

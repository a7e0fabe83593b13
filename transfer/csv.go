/*
Package transfer moves attendance records in and out of the register as CSV
spreadsheets and QR payloads.

CSV LAYOUT:
  Date,Employee,Emp,In,Out,Tour,Holiday,Leave,Hours,Status,Reason

  Date      YYYY-MM-DD
  Employee  employee identifier, may be empty
  Emp       class label ("Teaching" / "Non-Teaching")
  In, Out   "hh:mm AM", empty when missing
  Tour      "", "local" or "out"
  Holiday   "Yes" or empty
  Leave     "Yes" or empty

  Hours, Status and Reason are written for people reading the export and
  ignored on import: the engine recomputes them.

IMPORT RULES:
  - Columns are matched by header name, case-insensitively, in any order.
    The legacy four-column "Date,Emp,In,Out" sheet imports unchanged.
  - Blank lines are skipped.
  - The first malformed row rejects the whole payload with a *RowError.
    Nothing is merged from a partially valid file.
*/
package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/clock"
)

// Header is the export column order.
var Header = []string{"Date", "Employee", "Emp", "In", "Out", "Tour", "Holiday", "Leave", "Hours", "Status", "Reason"}

// =============================================================================
// EXPORT
// =============================================================================

// WriteCSV writes records in the export layout.
func WriteCSV(w io.Writer, records []attendance.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			calendar.FormatDate(r.Date),
			r.EmployeeID,
			attendance.NormalizeClass(string(r.Class)).Label(),
			clock.FormatPtr(r.PunchIn),
			clock.FormatPtr(r.PunchOut),
			string(r.Tour),
			yesNo(r.ClosedHoliday),
			yesNo(r.SpecialLeave),
			r.Hours.StringFixed(2),
			string(r.Status),
			string(r.Reason),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// =============================================================================
// IMPORT
// =============================================================================

// ParseCSV reads an import payload. Derived columns are ignored.
func ParseCSV(r io.Reader) ([]attendance.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &RowError{Line: 1, Err: ErrMissingHeader}
	}
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &RowError{Line: pe.StartLine, Err: err}
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := cols["date"]; !ok {
		return nil, &RowError{Line: 1, Err: ErrMissingHeader}
	}

	var records []attendance.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			return nil, &RowError{Line: line, Err: err}
		}
		line, _ := cr.FieldPos(0)
		if isBlank(row) {
			continue
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			var re *RowError
			if errors.As(err, &re) {
				re.Line = line
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, cols map[string]int) (attendance.Record, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rec attendance.Record
	var err error

	rec.Date, err = calendar.ParseDate(get("date"))
	if err != nil {
		return rec, &RowError{Field: "Date", Err: attendance.ErrInvalidDate}
	}
	rec.EmployeeID = get("employee")
	rec.Class = attendance.NormalizeClass(get("emp"))

	if rec.PunchIn, err = parseTime(get("in")); err != nil {
		return rec, &RowError{Field: "In", Err: err}
	}
	if rec.PunchOut, err = parseTime(get("out")); err != nil {
		return rec, &RowError{Field: "Out", Err: err}
	}

	rec.Tour = attendance.ParseTour(get("tour"))
	if rec.ClosedHoliday, err = parseFlag(get("holiday")); err != nil {
		return rec, &RowError{Field: "Holiday", Err: err}
	}
	if rec.SpecialLeave, err = parseFlag(get("leave")); err != nil {
		return rec, &RowError{Field: "Leave", Err: err}
	}

	if err := attendance.ValidateRecord(rec); err != nil {
		return rec, &RowError{Err: err}
	}
	return rec, nil
}

// =============================================================================
// FIELD HELPERS
// =============================================================================

func parseTime(s string) (*clock.Minutes, error) {
	if s == "" {
		return nil, nil
	}
	m, ok := clock.Parse(s)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return &m, nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "no", "n", "false", "0":
		return false, nil
	case "yes", "y", "true", "1":
		return true, nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidFlag, s)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return ""
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingHeader is returned when a CSV payload has no Date column.
	ErrMissingHeader = errors.New("csv header must include a Date column")

	// ErrInvalidTime is returned for non-empty punch text that is not a time.
	ErrInvalidTime = errors.New("invalid punch time")

	// ErrInvalidFlag is returned for a yes/no column holding anything else.
	ErrInvalidFlag = errors.New("invalid yes/no value")

	// ErrInvalidQR is returned for a QR payload that is not a record list.
	ErrInvalidQR = errors.New("invalid QR payload")
)

// RowError pinpoints the first malformed row of a rejected payload.
// Line is 1-based: the CSV line number, or the QR array index plus one.
type RowError struct {
	Line  int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("row %d, %s: %v", e.Line, e.Field, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

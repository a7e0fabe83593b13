/*
errors.go - Error values for the attendance package

The evaluation engine never returns errors: malformed fields fail soft and
quota exhaustion is an ordinary ladder fallthrough. Errors here belong to the
surrounding layers (register, store, policy loading) and are matched with
errors.Is at the HTTP boundary.
*/
package attendance

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound is returned when deleting a key that is not stored.
	ErrRecordNotFound = errors.New("attendance record not found")

	// ErrInvalidDate is returned for a missing or non-ISO record date.
	ErrInvalidDate = errors.New("invalid record date")

	// ErrInvalidMonth is returned for a malformed YYYY-MM month key.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrInvalidPolicy is returned when policy thresholds contradict each other.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrConflictingExemptions is returned when a record sets more than one of
	// closed holiday, special leave and official tour.
	ErrConflictingExemptions = errors.New("closed holiday, special leave and official tour are mutually exclusive")
)

// PolicyError names the class and threshold that failed validation.
type PolicyError struct {
	Class  Class
	Field  string
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("invalid %s policy: %s %s", e.Class, e.Field, e.Reason)
}

func (e *PolicyError) Unwrap() error { return ErrInvalidPolicy }

// IsClientError reports whether err stems from invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrConflictingExemptions)
}

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

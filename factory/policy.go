/*
Package factory provides policy document to Go policy conversion.

PURPOSE:
  Converts YAML or JSON policy documents into attendance.Policy values. This
  lets an institution adjust office hours, ceilings and quotas without code
  changes. The engine itself only ever sees the validated Go struct.

DOCUMENT SCHEMA (YAML shown, JSON uses the same keys):
  faculty:
    office_start: "09:00 AM"
    office_end: "05:30 PM"
    grace_end: "09:10 AM"
    late_ceiling: "10:30 AM"
    relaxation_late_ceiling: "10:00 AM"
    relaxation_earliest_out: "04:30 PM"
    full_duty_hours: "8.5"
    relaxation_duty_hours: "7.5"
    relaxation_quota: 2
  staff:
    late_ceiling: "09:30 AM"
    type2_ceiling: "10:00 AM"
    type2_share: "0.30"

DEFAULTS:
  Every field is optional. A missing field keeps the value from
  attendance.DefaultPolicy(), so a document only needs to list what differs.
  Setting type2_ceiling to "" on staff keeps the default; Type II can be
  disabled by setting type2_share to "0".

VALIDATION:
  Times accept 12-hour ("9:05 am") or 24-hour ("09:05") text. Hours and
  shares are decimal strings. Unknown keys are rejected. The merged policy
  must pass attendance.Policy.Validate.

USAGE:
  f := factory.NewPolicyFactory()
  policy, err := f.LoadFile("policy.yaml")

SEE ALSO:
  - attendance/policy.go: Policy type and defaults
*/
package factory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/clock"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT SCHEMA TYPES
// =============================================================================

// PolicyDocument is the serialised form of attendance.Policy.
type PolicyDocument struct {
	Faculty *ClassPolicyDocument `json:"faculty,omitempty" yaml:"faculty,omitempty"`
	Staff   *ClassPolicyDocument `json:"staff,omitempty" yaml:"staff,omitempty"`
}

// ClassPolicyDocument holds one class's thresholds. Empty strings and nil
// pointers mean "keep the default".
type ClassPolicyDocument struct {
	OfficeStart           string `json:"office_start,omitempty" yaml:"office_start,omitempty"`
	OfficeEnd             string `json:"office_end,omitempty" yaml:"office_end,omitempty"`
	GraceEnd              string `json:"grace_end,omitempty" yaml:"grace_end,omitempty"`
	LateCeiling           string `json:"late_ceiling,omitempty" yaml:"late_ceiling,omitempty"`
	TypeIICeiling         string `json:"type2_ceiling,omitempty" yaml:"type2_ceiling,omitempty"`
	RelaxationLateCeiling string `json:"relaxation_late_ceiling,omitempty" yaml:"relaxation_late_ceiling,omitempty"`
	RelaxationEarliestOut string `json:"relaxation_earliest_out,omitempty" yaml:"relaxation_earliest_out,omitempty"`
	FullDutyHours         string `json:"full_duty_hours,omitempty" yaml:"full_duty_hours,omitempty"`
	RelaxationDutyHours   string `json:"relaxation_duty_hours,omitempty" yaml:"relaxation_duty_hours,omitempty"`
	RelaxationQuota       *int   `json:"relaxation_quota,omitempty" yaml:"relaxation_quota,omitempty"`
	TypeIIShare           string `json:"type2_share,omitempty" yaml:"type2_share,omitempty"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts policy documents to attendance.Policy.
type PolicyFactory struct {
	base attendance.Policy
}

// NewPolicyFactory creates a factory that fills gaps from DefaultPolicy.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{base: attendance.DefaultPolicy()}
}

// LoadFile reads a policy document, choosing the decoder by extension
// (.json for JSON, anything else as YAML).
func (f *PolicyFactory) LoadFile(path string) (attendance.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return attendance.Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return f.ParseJSON(data)
	}
	return f.ParseYAML(data)
}

// ParseYAML parses a YAML policy document.
func (f *PolicyFactory) ParseYAML(data []byte) (attendance.Policy, error) {
	var doc PolicyDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return attendance.Policy{}, fmt.Errorf("failed to parse policy YAML: %w", err)
	}
	return f.FromDocument(doc)
}

// ParseJSON parses a JSON policy document.
func (f *PolicyFactory) ParseJSON(data []byte) (attendance.Policy, error) {
	var doc PolicyDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return attendance.Policy{}, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromDocument(doc)
}

// FromDocument merges doc over the defaults and validates the result.
func (f *PolicyFactory) FromDocument(doc PolicyDocument) (attendance.Policy, error) {
	p := f.base

	if doc.Faculty != nil {
		cp, err := mergeClass(attendance.ClassFaculty, p.Faculty, *doc.Faculty)
		if err != nil {
			return attendance.Policy{}, err
		}
		p.Faculty = cp
	}
	if doc.Staff != nil {
		cp, err := mergeClass(attendance.ClassStaff, p.Staff, *doc.Staff)
		if err != nil {
			return attendance.Policy{}, err
		}
		p.Staff = cp
	}

	if err := p.Validate(); err != nil {
		return attendance.Policy{}, err
	}
	return p, nil
}

// ToDocument converts a Policy to its fully populated document form.
func (f *PolicyFactory) ToDocument(p attendance.Policy) PolicyDocument {
	return PolicyDocument{
		Faculty: classToDocument(p.Faculty),
		Staff:   classToDocument(p.Staff),
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func mergeClass(class attendance.Class, cp attendance.ClassPolicy, doc ClassPolicyDocument) (attendance.ClassPolicy, error) {
	fail := func(field, reason string) error {
		return &attendance.PolicyError{Class: class, Field: field, Reason: reason}
	}

	times := []struct {
		field string
		text  string
		dst   *clock.Minutes
	}{
		{"office_start", doc.OfficeStart, &cp.OfficeStart},
		{"office_end", doc.OfficeEnd, &cp.OfficeEnd},
		{"grace_end", doc.GraceEnd, &cp.GraceEnd},
		{"late_ceiling", doc.LateCeiling, &cp.LateCeiling},
		{"type2_ceiling", doc.TypeIICeiling, &cp.TypeIICeiling},
		{"relaxation_late_ceiling", doc.RelaxationLateCeiling, &cp.RelaxationLateCeiling},
		{"relaxation_earliest_out", doc.RelaxationEarliestOut, &cp.RelaxationEarliestOut},
	}
	for _, t := range times {
		if t.text == "" {
			continue
		}
		m, ok := clock.Parse(t.text)
		if !ok {
			return cp, fail(t.field, fmt.Sprintf("%q is not a time of day", t.text))
		}
		*t.dst = m
	}

	durations := []struct {
		field string
		text  string
		dst   *int
	}{
		{"full_duty_hours", doc.FullDutyHours, &cp.FullDutyMinutes},
		{"relaxation_duty_hours", doc.RelaxationDutyHours, &cp.RelaxationDutyMinutes},
	}
	for _, d := range durations {
		if d.text == "" {
			continue
		}
		hours, err := decimal.NewFromString(d.text)
		if err != nil {
			return cp, fail(d.field, fmt.Sprintf("%q is not a number of hours", d.text))
		}
		*d.dst = int(hours.Mul(decimal.NewFromInt(clock.MinutesPerHour)).Round(0).IntPart())
	}

	if doc.RelaxationQuota != nil {
		cp.RelaxationQuota = *doc.RelaxationQuota
	}

	if doc.TypeIIShare != "" {
		share, err := decimal.NewFromString(doc.TypeIIShare)
		if err != nil {
			return cp, fail("type2_share", fmt.Sprintf("%q is not a decimal", doc.TypeIIShare))
		}
		cp.TypeIIShare = share
		if share.IsZero() {
			cp.TypeIICeiling = 0
		}
	}

	return cp, nil
}

func classToDocument(cp attendance.ClassPolicy) *ClassPolicyDocument {
	quota := cp.RelaxationQuota
	minutesPerHour := decimal.NewFromInt(clock.MinutesPerHour)
	doc := &ClassPolicyDocument{
		OfficeStart:           clock.Format(cp.OfficeStart),
		OfficeEnd:             clock.Format(cp.OfficeEnd),
		GraceEnd:              clock.Format(cp.GraceEnd),
		LateCeiling:           clock.Format(cp.LateCeiling),
		RelaxationLateCeiling: clock.Format(cp.RelaxationLateCeiling),
		RelaxationEarliestOut: clock.Format(cp.RelaxationEarliestOut),
		FullDutyHours:         decimal.NewFromInt(int64(cp.FullDutyMinutes)).Div(minutesPerHour).String(),
		RelaxationDutyHours:   decimal.NewFromInt(int64(cp.RelaxationDutyMinutes)).Div(minutesPerHour).String(),
		RelaxationQuota:       &quota,
	}
	if cp.HasTypeII() {
		doc.TypeIICeiling = clock.Format(cp.TypeIICeiling)
		doc.TypeIIShare = cp.TypeIIShare.String()
	}
	return doc
}

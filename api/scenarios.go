/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built months of attendance that exercise specific parts of
	the rule ladders. Each scenario is plain data: employees with a list of
	days. Loading goes through Register.Import, so scenario records are
	evaluated exactly like uploaded ones.

AVAILABLE SCENARIOS:

	faculty-month:  every faculty outcome, including relaxation quota exhaustion
	staff-month:    staff Type I / Type II, with the Type II cap reached
	department:     a faculty and a staff employee sharing one month

HOW SCENARIOS WORK:
 1. Clear every stored record
 2. Build records from the scenario table
 3. Import them (one full recompute)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "staff-month"}

ADDING NEW SCENARIOS:
 1. Add an entry to 'scenarios' with ID, name, description and days

NOTE:

	Scenarios clear the register. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: shared helpers
  - attendance/rules.go: the ladders these months walk through
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/clock"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenarioDay struct {
	day     int
	in, out string
	tour    attendance.Tour
	holiday bool
	leave   bool
}

type scenarioEmployee struct {
	id    string
	class attendance.Class
	days  []scenarioDay
}

type scenario struct {
	info      ScenarioDTO
	month     calendar.Month
	employees []scenarioEmployee
}

var march2025 = calendar.Month{Year: 2025, Month: 3}

var scenarios = []scenario{
	{
		info: ScenarioDTO{
			ID:          "faculty-month",
			Name:        "Faculty Month",
			Description: "On-time, grace, late compensation, two relaxations then a reject, exemptions",
			Class:       string(attendance.ClassFaculty),
		},
		month: march2025,
		employees: []scenarioEmployee{{
			id:    "fac-001",
			class: attendance.ClassFaculty,
			days: []scenarioDay{
				{day: 3, in: "09:00 AM", out: "05:30 PM"},
				{day: 4, in: "09:05 AM", out: "05:30 PM"},
				{day: 5, in: "09:45 AM", out: "06:15 PM"},
				{day: 6, in: "09:30 AM", out: "05:30 PM"},
				{day: 7, in: "09:00 AM", out: "04:45 PM"},
				{day: 10, in: "09:20 AM", out: "05:30 PM"},
				{day: 11, in: "09:00 AM"},
				{day: 12, holiday: true},
				{day: 13, leave: true},
				{day: 14, tour: attendance.TourLocal, in: "09:00 AM"},
				{day: 17, in: "10:45 AM", out: "07:15 PM"},
				{day: 18, out: "05:30 PM"},
			},
		}},
	},
	{
		info: ScenarioDTO{
			ID:          "staff-month",
			Name:        "Staff Month",
			Description: "Type I and Type II late compensation; the seventh Type II day overflows into relaxation",
			Class:       string(attendance.ClassStaff),
		},
		month: march2025,
		employees: []scenarioEmployee{{
			id:    "stf-001",
			class: attendance.ClassStaff,
			days: []scenarioDay{
				{day: 3, in: "08:55 AM", out: "05:30 PM"},
				{day: 4, in: "09:20 AM", out: "05:50 PM"},
				{day: 5, in: "09:45 AM", out: "06:15 PM"},
				{day: 6, in: "09:45 AM", out: "06:15 PM"},
				{day: 7, in: "09:45 AM", out: "06:15 PM"},
				{day: 10, in: "09:45 AM", out: "06:15 PM"},
				{day: 11, in: "09:45 AM", out: "06:15 PM"},
				{day: 12, in: "09:45 AM", out: "06:15 PM"},
				{day: 13, in: "09:45 AM", out: "06:15 PM"},
				{day: 14, holiday: true},
				{day: 17, in: "09:00 AM", out: "04:00 PM"},
			},
		}},
	},
	{
		info: ScenarioDTO{
			ID:          "department",
			Name:        "Department",
			Description: "A faculty and a staff employee in one month; quotas are kept per employee",
			Class:       "mixed",
		},
		month: march2025,
		employees: []scenarioEmployee{
			{
				id:    "fac-002",
				class: attendance.ClassFaculty,
				days: []scenarioDay{
					{day: 3, in: "09:30 AM", out: "05:30 PM"},
					{day: 4, in: "09:30 AM", out: "05:30 PM"},
					{day: 5, in: "09:30 AM", out: "05:30 PM"},
					{day: 6, tour: attendance.TourOut, in: "08:00 AM"},
				},
			},
			{
				id:    "stf-002",
				class: attendance.ClassStaff,
				days: []scenarioDay{
					{day: 3, in: "09:30 AM", out: "05:30 PM"},
					{day: 4, in: "09:10 AM", out: "05:30 PM"},
					{day: 5, leave: true},
				},
			},
		},
	},
}

func init() {
	for i := range scenarios {
		scenarios[i].info.Month = scenarios[i].month.String()
	}
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.info.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// records expands the scenario table into unevaluated records.
func (s scenario) records() []attendance.Record {
	var out []attendance.Record
	for _, emp := range s.employees {
		for _, d := range emp.days {
			out = append(out, attendance.Record{
				EmployeeID:    emp.id,
				Date:          calendar.NewDate(s.month.Year, s.month.Month, d.day),
				Class:         emp.class,
				PunchIn:       clock.ParsePtr(d.in),
				PunchOut:      clock.ParsePtr(d.out),
				Tour:          d.tour,
				ClosedHoliday: d.holiday,
				SpecialLeave:  d.leave,
			})
		}
	}
	return out
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.info
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	s, ok := findScenario(h.getCurrentScenario())
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.info)
}

// LoadScenario replaces every stored record with a scenario's month.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeInvalid(w, "Invalid request body", err)
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("no scenario %q", req.ScenarioID))
		return
	}

	result, err := h.loadScenario(r.Context(), s)
	if err != nil {
		h.writeDomainError(w, fmt.Sprintf("Failed to load scenario %s", s.info.ID), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": s.info.ID,
		"result":   toImportResultDTO(result),
	})
}

func (h *Handler) loadScenario(ctx context.Context, s scenario) (attendance.ImportResult, error) {
	// Clear current scenario on reset
	h.setCurrentScenario("")

	if err := h.Register.Clear(ctx); err != nil {
		return attendance.ImportResult{}, fmt.Errorf("clear register: %w", err)
	}
	result, err := h.Register.Import(ctx, s.records())
	if err != nil {
		return attendance.ImportResult{}, fmt.Errorf("import scenario: %w", err)
	}

	h.setCurrentScenario(s.info.ID)
	return result, nil
}

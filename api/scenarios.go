/*
scenarios.go - Demo scenario loaders for development and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data: an employee directory with reporting officers and an HR admin,
	the year's holiday calendar, and opening leave balances.

AVAILABLE SCENARIOS:

	small-team:     Four employees on different week-off days, two officer
	                levels, one HR admin, opening balances for every type
	night-shift:    small-team plus an employee whose rotation starts on
	                Shift III, for exercising the night rollover

HOW SCENARIOS WORK:
 1. Save employees (upsert, so reloading is safe)
 2. Save holidays
 3. Set accrued balances through the ledger (absolute figures, so a
    reload appends nothing)

USAGE:

	go run ./cmd/server -scenario small-team
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/lavkush9051/attendance-app/employee"
	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/leave"
)

// ScenarioStore is what a scenario writes besides the ledger.
type ScenarioStore interface {
	SaveEmployee(ctx context.Context, e employee.Employee) error
	SaveHoliday(ctx context.Context, date generic.TimePoint, name string) error
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-team",
		Name:        "Small Team",
		Description: "Applicant, L1 and L2 officers, HR admin, 2025 holidays and opening balances",
	},
	{
		ID:          "night-shift",
		Name:        "Night Shift",
		Description: "Small team plus a Sunday week-off employee starting the rotation on Shift III",
	},
}

// Scenarios returns the available scenarios.
func Scenarios() []ScenarioDTO {
	return append([]ScenarioDTO(nil), scenarios...)
}

var smallTeam = []employee.Employee{
	{ID: 1001, Name: "Asha Verma", WeekOffDay: time.Saturday, Designation: "Engineer"},
	{ID: 1002, Name: "Meera Iyer", WeekOffDay: time.Monday, Designation: "Shift Supervisor"},
	{ID: 1003, Name: "Vikram Rao", WeekOffDay: time.Friday, Designation: "Deputy General Manager"},
	{ID: 1004, Name: "Neha Kapoor", WeekOffDay: time.Sunday, Designation: "HR Manager"},
}

var nightShift = employee.Employee{ID: 1005, Name: "Ravi Kumar", WeekOffDay: time.Sunday, Designation: "Technician"}

var holidays2025 = []struct {
	date string
	name string
}{
	{"2025-01-26", "Republic Day"},
	{"2025-03-14", "Holi"},
	{"2025-08-15", "Independence Day"},
	{"2025-10-02", "Gandhi Jayanti"},
	{"2025-10-20", "Diwali"},
	{"2025-12-25", "Christmas"},
}

var openingBalances = map[leave.Type]int{
	leave.TypeCasual:   8,
	leave.TypeEarned:   30,
	leave.TypeHalfPay:  20,
	leave.TypeCompOff:  2,
	leave.TypeOptional: 2,
	leave.TypeMedical:  10,
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// LoadScenario writes a scenario through the store and the ledger.
func LoadScenario(ctx context.Context, id string, store ScenarioStore, ledger *generic.BalanceLedger) error {
	var team []employee.Employee
	switch id {
	case "small-team":
		team = smallTeam
	case "night-shift":
		team = append(append([]employee.Employee(nil), smallTeam...), nightShift)
	default:
		return generic.NewValidationError("scenario", fmt.Sprintf("unknown scenario %q", id))
	}

	for _, e := range team {
		if err := store.SaveEmployee(ctx, e); err != nil {
			return fmt.Errorf("failed to save employee %s: %w", e.ID, err)
		}
	}

	for _, h := range holidays2025 {
		d, err := generic.ParseDate(h.date)
		if err != nil {
			return err
		}
		if err := store.SaveHoliday(ctx, d, h.name); err != nil {
			return fmt.Errorf("failed to save holiday %s: %w", h.date, err)
		}
	}

	var entries []generic.AccrualEntry
	for _, e := range team {
		for _, t := range leave.AllTypes {
			days, ok := openingBalances[t]
			if !ok {
				continue
			}
			entries = append(entries, generic.AccrualEntry{
				Key:     generic.BalanceKey{EntityID: e.ID, Resource: t},
				Accrued: generic.Days(days),
			})
		}
	}
	posting := generic.Posting{ReferenceID: "scenario/" + id, Reason: "opening balance"}
	if err := ledger.Accrue(ctx, entries, posting); err != nil {
		return fmt.Errorf("failed to set opening balances: %w", err)
	}

	return nil
}

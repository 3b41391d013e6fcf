/*
Package employee is the read model of the employee master data.

PURPOSE:
  The portal never creates or edits employees; it only reads the few
  fields the core needs: the weekly off day that drives the shift
  rotation and the designation that grants administrator access.

APPROVER DIRECTORY:
  Directory resolves employee IDs to employees and to approver entries
  (name + ID) used when an officer picks the next reporting officer.

ADMIN DESIGNATIONS:
  Administrator access is a lookup in a normalized table instead of a
  chain of string comparisons. Normalization lower-cases, trims, and
  collapses punctuation and repeated spaces, so "Sr. Manager (HR)" and
  "sr manager hr" are the same designation.

SEE ALSO:
  - shift/rotation.go: Uses WeekOffDay
  - api/handlers.go: Admin-only routes
*/
package employee

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/shift"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

type Employee struct {
	ID          generic.EntityID
	Name        string
	WeekOffDay  time.Weekday
	Designation string
}

// IsAdmin reports whether the employee's designation grants admin access.
func (e Employee) IsAdmin() bool {
	return IsAdminDesignation(e.Designation)
}

// Approver is what the approver picker shows for an officer.
type Approver struct {
	ID   generic.EntityID
	Name string
}

// New builds an employee, validating the week-off day name.
func New(id generic.EntityID, name, weekOff, designation string) (Employee, error) {
	wd, err := shift.ParseWeekday(weekOff)
	if err != nil {
		return Employee{}, fmt.Errorf("employee %s: %w", id, err)
	}
	return Employee{ID: id, Name: name, WeekOffDay: wd, Designation: designation}, nil
}

// =============================================================================
// DESIGNATIONS
// =============================================================================

var adminDesignations = map[string]bool{
	"admin":                     true,
	"administrator":             true,
	"hr":                        true,
	"hr manager":                true,
	"hr executive":              true,
	"hr admin":                  true,
	"manager hr":                true,
	"sr manager hr":             true,
	"senior manager hr":         true,
	"general manager":           true,
	"assistant general manager": true,
	"deputy general manager":    true,
	"chief general manager":     true,
	"executive director":        true,
	"director":                  true,
	"managing director":         true,
}

// NormalizeDesignation lower-cases and strips punctuation and extra spaces.
func NormalizeDesignation(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func IsAdminDesignation(s string) bool {
	return adminDesignations[NormalizeDesignation(s)]
}

// =============================================================================
// DIRECTORY
// =============================================================================

// Directory is the approver directory the request services consult.
type Directory interface {
	Employee(ctx context.Context, id generic.EntityID) (Employee, error)
	LookupApprover(ctx context.Context, id generic.EntityID) (Approver, error)
}

// MemoryDirectory is an in-memory Directory.
type MemoryDirectory struct {
	mu        sync.RWMutex
	employees map[generic.EntityID]Employee
}

func NewMemoryDirectory(employees ...Employee) *MemoryDirectory {
	d := &MemoryDirectory{employees: make(map[generic.EntityID]Employee)}
	for _, e := range employees {
		d.employees[e.ID] = e
	}
	return d
}

func (d *MemoryDirectory) Put(e Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[e.ID] = e
}

func (d *MemoryDirectory) Employee(_ context.Context, id generic.EntityID) (Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.employees[id]
	if !ok {
		return Employee{}, fmt.Errorf("employee %s: %w", id, generic.ErrNotFound)
	}
	return e, nil
}

func (d *MemoryDirectory) LookupApprover(ctx context.Context, id generic.EntityID) (Approver, error) {
	e, err := d.Employee(ctx, id)
	if err != nil {
		return Approver{}, err
	}
	return Approver{ID: e.ID, Name: e.Name}, nil
}

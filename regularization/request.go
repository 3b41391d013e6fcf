/*
Package regularization handles requests to correct a past attendance day.

PURPOSE:
  An employee who missed a clock event (or whose recorded time is wrong)
  asks for the day to be corrected. The request follows the same
  transition table shape as leave without any ledger effect. A second
  approval tier is only used when escalation is configured.

FINAL APPROVAL:
  The corrected clock event is written to the attendance source before
  the request is saved as approved. The write replaces the day's event,
  so a retry after a failed save writes the same correction again.

SEE ALSO:
  - generic/workflow.go: RegularizationMachine
  - attendance/service.go: EventWriter
*/
package regularization

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/shift"
)

// =============================================================================
// TYPES
// =============================================================================

type Type string

const (
	TypeMissedClockIn  Type = "missed-clock-in"
	TypeMissedClockOut Type = "missed-clock-out"
	TypeWrongTime      Type = "wrong-time"
	TypeSystemError    Type = "system-error"
	TypeOutdoorDuty    Type = "outdoor-duty"
	TypeOther          Type = "other"
)

var types = map[Type]bool{
	TypeMissedClockIn: true, TypeMissedClockOut: true, TypeWrongTime: true,
	TypeSystemError: true, TypeOutdoorDuty: true, TypeOther: true,
}

// ParseType accepts the kebab-case name in any case, with spaces or
// underscores in place of dashes.
func ParseType(s string) (Type, error) {
	v := strings.NewReplacer(" ", "-", "_", "-").Replace(strings.ToLower(strings.TrimSpace(s)))
	if t := Type(v); types[t] {
		return t, nil
	}
	return "", generic.NewValidationError("type", fmt.Sprintf("unknown regularization type %q", s))
}

// Request is an attendance regularization request.
type Request struct {
	ID          string
	EmployeeID  generic.EntityID
	Date        generic.TimePoint
	ClockIn     shift.ClockOfDay
	ClockOut    *shift.ClockOfDay
	Shift       shift.Label
	Type        Type
	Reason      string
	Status      generic.State
	L1OfficerID generic.EntityID
	L2OfficerID generic.EntityID
	Remarks     []generic.Remark
	AppliedAt   time.Time
	UpdatedAt   time.Time
}

func (r Request) CurrentTier() generic.Tier { return generic.TierFor(r.Status) }

func (r Request) OfficerFor(t generic.Tier) generic.EntityID {
	if t == generic.TierL2 {
		return r.L2OfficerID
	}
	return r.L1OfficerID
}

// IsOpen reports whether a decision is still pending.
func (r Request) IsOpen() bool {
	return r.Status == generic.StatePending || r.Status == generic.StateL1Approved
}

func (r Request) clone() Request {
	c := r
	c.Remarks = append([]generic.Remark(nil), r.Remarks...)
	if r.ClockOut != nil {
		out := *r.ClockOut
		c.ClockOut = &out
	}
	return c
}

// =============================================================================
// REPOSITORY
// =============================================================================

type Repository interface {
	Create(ctx context.Context, r Request) error
	Update(ctx context.Context, r Request) error
	Get(ctx context.Context, id string) (Request, error)
	ListByEmployee(ctx context.Context, empID generic.EntityID) ([]Request, error)
	ListPendingFor(ctx context.Context, officer generic.EntityID) ([]Request, error)
}

// WaitingOn reports whether r is waiting on officer's decision.
func WaitingOn(r Request, officer generic.EntityID) bool {
	switch r.Status {
	case generic.StatePending:
		return r.L1OfficerID == officer
	case generic.StateL1Approved:
		return r.L2OfficerID == officer
	}
	return false
}

type MemoryRepository struct {
	mu       sync.RWMutex
	requests map[string]Request
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{requests: make(map[string]Request)}
}

func (m *MemoryRepository) Create(_ context.Context, r Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ID]; ok {
		return fmt.Errorf("regularization %s already exists", r.ID)
	}
	m.requests[r.ID] = r.clone()
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, r Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ID]; !ok {
		return fmt.Errorf("regularization %s: %w", r.ID, generic.ErrNotFound)
	}
	m.requests[r.ID] = r.clone()
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return Request{}, fmt.Errorf("regularization %s: %w", id, generic.ErrNotFound)
	}
	return r.clone(), nil
}

func (m *MemoryRepository) ListByEmployee(_ context.Context, empID generic.EntityID) ([]Request, error) {
	return m.filter(func(r Request) bool { return r.EmployeeID == empID }), nil
}

func (m *MemoryRepository) ListPendingFor(_ context.Context, officer generic.EntityID) ([]Request, error) {
	return m.filter(func(r Request) bool { return WaitingOn(r, officer) }), nil
}

// filter returns matches ordered by date, then submission time.
func (m *MemoryRepository) filter(keep func(Request) bool) []Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Request
	for _, r := range m.requests {
		if keep(r) {
			out = append(out, r.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].AppliedAt.Before(out[j].AppliedAt)
	})
	return out
}

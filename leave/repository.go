package leave

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lavkush9051/attendance-app/generic"
)

// =============================================================================
// REPOSITORY
// =============================================================================

// Repository persists leave requests. Requests are never deleted.
type Repository interface {
	Create(ctx context.Context, r Request) error
	Update(ctx context.Context, r Request) error
	Get(ctx context.Context, id string) (Request, error)
	ListByEmployee(ctx context.Context, empID generic.EntityID) ([]Request, error)

	// ListPendingFor returns requests waiting on the officer: pending ones
	// where they are L1, and l1_approved ones where they are L2.
	ListPendingFor(ctx context.Context, officer generic.EntityID) ([]Request, error)

	// ListApproved returns approved requests of the employee overlapping p.
	ListApproved(ctx context.Context, empID generic.EntityID, p generic.Period) ([]Request, error)
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

// =============================================================================
// MEMORY REPOSITORY
// =============================================================================

type MemoryRepository struct {
	mu       sync.RWMutex
	requests map[string]Request
	order    []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{requests: make(map[string]Request)}
}

func (m *MemoryRepository) Create(_ context.Context, r Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ID]; ok {
		return fmt.Errorf("leave request %s already exists", r.ID)
	}
	m.requests[r.ID] = r.clone()
	m.order = append(m.order, r.ID)
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, r Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ID]; !ok {
		return fmt.Errorf("leave request %s: %w", r.ID, generic.ErrNotFound)
	}
	m.requests[r.ID] = r.clone()
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return Request{}, fmt.Errorf("leave request %s: %w", id, generic.ErrNotFound)
	}
	return r.clone(), nil
}

func (m *MemoryRepository) ListByEmployee(_ context.Context, empID generic.EntityID) ([]Request, error) {
	return m.filter(func(r Request) bool { return r.EmployeeID == empID }), nil
}

func (m *MemoryRepository) ListPendingFor(_ context.Context, officer generic.EntityID) ([]Request, error) {
	return m.filter(func(r Request) bool { return WaitingOn(r, officer) }), nil
}

func (m *MemoryRepository) ListApproved(_ context.Context, empID generic.EntityID, p generic.Period) ([]Request, error) {
	return m.filter(func(r Request) bool {
		return r.EmployeeID == empID && r.Status == generic.StateApproved && r.Period.Overlaps(p)
	}), nil
}

// filter returns matches in start-date order, submission order on ties.
func (m *MemoryRepository) filter(keep func(Request) bool) []Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Request
	for _, id := range m.order {
		if r := m.requests[id]; keep(r) {
			out = append(out, r.clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period.Start.Before(out[j].Period.Start) })
	return out
}

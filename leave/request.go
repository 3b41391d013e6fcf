package leave

import (
	"time"

	"github.com/lavkush9051/attendance-app/generic"
)

// =============================================================================
// REQUEST
// =============================================================================

// Request is a leave request. Days is fixed at submission.
type Request struct {
	ID            string
	EmployeeID    generic.EntityID
	Type          Type
	Period        generic.Period
	Days          generic.Amount
	Reason        string
	AppliedDate   generic.TimePoint
	Status        generic.State
	L1OfficerID   generic.EntityID
	L2OfficerID   generic.EntityID // zero when no second level is assigned
	Remarks       []generic.Remark
	AttachmentRef string
	UpdatedAt     time.Time
}

// Key is the ledger bucket the request draws from.
func (r Request) Key() generic.BalanceKey {
	return generic.BalanceKey{EntityID: r.EmployeeID, Resource: r.Type}
}

// HasSecondLevel reports whether an L2 officer is assigned.
func (r Request) HasSecondLevel() bool { return r.L2OfficerID != 0 }

// IsActive reports whether the request still occupies its days.
func (r Request) IsActive() bool {
	switch r.Status {
	case generic.StatePending, generic.StateL1Approved, generic.StateApproved:
		return true
	}
	return false
}

// CurrentTier is the level whose decision the request is waiting for.
func (r Request) CurrentTier() generic.Tier { return generic.TierFor(r.Status) }

// OfficerFor returns the officer assigned to a tier.
func (r Request) OfficerFor(t generic.Tier) generic.EntityID {
	if t == generic.TierL2 {
		return r.L2OfficerID
	}
	return r.L1OfficerID
}

// clone copies the request including its remarks slice.
func (r Request) clone() Request {
	c := r
	c.Remarks = append([]generic.Remark(nil), r.Remarks...)
	return c
}

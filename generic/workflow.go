/*
workflow.go - Request lifecycle transition table

PURPOSE:
  Centralizes the request lifecycle as data: (state, action) -> next state
  plus the ledger effect the transition carries. Services never compare
  status strings; they ask the Machine and apply what it returns.

LEAVE REQUESTS:
  pending      --escalate-->  l1_approved   (no effect)
  pending      --approve--->  approved      (commit)
  pending      --reject---->  rejected      (release)
  l1_approved  --approve--->  approved      (commit)
  l1_approved  --reject---->  rejected      (release)
  pending      --cancel---->  cancelled     (release)
  l1_approved  --cancel---->  cancelled     (release)
  approved     --cancel---->  cancelled     (uncommit)

IDEMPOTENCE:
  Terminal states have no outgoing transitions. A duplicate approve on
  an approved request is an InvalidStateError, never a second commit.

SEE ALSO:
  - ledger.go: What each Effect does to the balance
  - leave/service.go, regularization/service.go: Table users
*/
package generic

import "time"

// =============================================================================
// STATES, ACTIONS, EFFECTS
// =============================================================================

type State string

const (
	StatePending    State = "pending"
	StateL1Approved State = "l1_approved"
	StateApproved   State = "approved"
	StateRejected   State = "rejected"
	StateCancelled  State = "cancelled"
)

func (s State) String() string { return string(s) }

type Action string

const (
	ActionEscalate Action = "escalate" // first-level approve that hands over to L2
	ActionApprove  Action = "approve"  // final approve
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
)

func (a Action) String() string { return string(a) }

// Effect is the ledger side effect of a transition.
type Effect string

const (
	EffectNone     Effect = "none"
	EffectCommit   Effect = "commit"
	EffectRelease  Effect = "release"
	EffectUncommit Effect = "uncommit"
)

// Transition is one row of the table.
type Transition struct {
	From   State
	Action Action
	To     State
	Effect Effect
}

// =============================================================================
// TIERS AND REMARKS
// =============================================================================

// Tier is the approval level an officer acts at.
type Tier string

const (
	TierL1 Tier = "L1"
	TierL2 Tier = "L2"
)

// Remark is one reviewer note. Remarks are only ever appended.
type Remark struct {
	Tier    Tier
	ActorID EntityID
	Action  Action
	Note    string
	At      time.Time
}

// TierFor returns the level whose decision a request in state s awaits.
func TierFor(s State) Tier {
	if s == StateL1Approved {
		return TierL2
	}
	return TierL1
}

// =============================================================================
// MACHINE
// =============================================================================

type transitionKey struct {
	from   State
	action Action
}

// Machine is an immutable transition table.
type Machine struct {
	table map[transitionKey]Transition
}

// NewMachine builds a machine from rows. Later rows win on duplicates.
func NewMachine(rows ...Transition) *Machine {
	m := &Machine{table: make(map[transitionKey]Transition, len(rows))}
	for _, r := range rows {
		m.table[transitionKey{r.From, r.Action}] = r
	}
	return m
}

// Next returns the transition for (from, action) or an InvalidStateError.
func (m *Machine) Next(from State, action Action) (Transition, error) {
	t, ok := m.table[transitionKey{from, action}]
	if !ok {
		return Transition{}, &InvalidStateError{From: from, Action: action}
	}
	return t, nil
}

// Allows reports whether the action is legal from the state.
func (m *Machine) Allows(from State, action Action) bool {
	_, ok := m.table[transitionKey{from, action}]
	return ok
}

// LeaveMachine is the leave request lifecycle.
func LeaveMachine() *Machine {
	return NewMachine(
		Transition{StatePending, ActionEscalate, StateL1Approved, EffectNone},
		Transition{StatePending, ActionApprove, StateApproved, EffectCommit},
		Transition{StatePending, ActionReject, StateRejected, EffectRelease},
		Transition{StateL1Approved, ActionApprove, StateApproved, EffectCommit},
		Transition{StateL1Approved, ActionReject, StateRejected, EffectRelease},
		Transition{StatePending, ActionCancel, StateCancelled, EffectRelease},
		Transition{StateL1Approved, ActionCancel, StateCancelled, EffectRelease},
		Transition{StateApproved, ActionCancel, StateCancelled, EffectUncommit},
	)
}

// RegularizationMachine is the attendance regularization lifecycle. It has
// no ledger effects and approved requests are final.
func RegularizationMachine() *Machine {
	return NewMachine(
		Transition{StatePending, ActionEscalate, StateL1Approved, EffectNone},
		Transition{StatePending, ActionApprove, StateApproved, EffectNone},
		Transition{StatePending, ActionReject, StateRejected, EffectNone},
		Transition{StateL1Approved, ActionApprove, StateApproved, EffectNone},
		Transition{StateL1Approved, ActionReject, StateRejected, EffectNone},
		Transition{StatePending, ActionCancel, StateCancelled, EffectNone},
		Transition{StateL1Approved, ActionCancel, StateCancelled, EffectNone},
	)
}

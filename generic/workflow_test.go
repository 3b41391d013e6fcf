package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lavkush9051/attendance-app/generic"
)

// =============================================================================
// TRANSITION TABLE
// =============================================================================

func TestLeaveMachine_Effects(t *testing.T) {
	m := generic.LeaveMachine()
	cases := []struct {
		from   generic.State
		action generic.Action
		to     generic.State
		effect generic.Effect
	}{
		{generic.StatePending, generic.ActionEscalate, generic.StateL1Approved, generic.EffectNone},
		{generic.StatePending, generic.ActionApprove, generic.StateApproved, generic.EffectCommit},
		{generic.StatePending, generic.ActionReject, generic.StateRejected, generic.EffectRelease},
		{generic.StateL1Approved, generic.ActionApprove, generic.StateApproved, generic.EffectCommit},
		{generic.StateL1Approved, generic.ActionReject, generic.StateRejected, generic.EffectRelease},
		{generic.StatePending, generic.ActionCancel, generic.StateCancelled, generic.EffectRelease},
		{generic.StateL1Approved, generic.ActionCancel, generic.StateCancelled, generic.EffectRelease},
		{generic.StateApproved, generic.ActionCancel, generic.StateCancelled, generic.EffectUncommit},
	}
	for _, c := range cases {
		tr, err := m.Next(c.from, c.action)
		if err != nil {
			t.Errorf("%s/%s: unexpected error: %v", c.from, c.action, err)
			continue
		}
		if tr.To != c.to || tr.Effect != c.effect {
			t.Errorf("%s/%s: expected %s (%s), got %s (%s)", c.from, c.action, c.to, c.effect, tr.To, tr.Effect)
		}
	}
}

var allActions = []generic.Action{
	generic.ActionEscalate, generic.ActionApprove, generic.ActionReject, generic.ActionCancel,
}

func terminal(m *generic.Machine, s generic.State) bool {
	for _, a := range allActions {
		if m.Allows(s, a) {
			return false
		}
	}
	return true
}

func TestLeaveMachine_TerminalStates(t *testing.T) {
	m := generic.LeaveMachine()
	for _, s := range []generic.State{generic.StateRejected, generic.StateCancelled} {
		if !terminal(m, s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	if terminal(m, generic.StateApproved) {
		t.Error("approved leave can still be cancelled")
	}
}

func TestLeaveMachine_DuplicateApproveIsInvalidState(t *testing.T) {
	m := generic.LeaveMachine()
	_, err := m.Next(generic.StateApproved, generic.ActionApprove)

	var stateErr *generic.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	if stateErr.From != generic.StateApproved || stateErr.Action != generic.ActionApprove {
		t.Errorf("unexpected error details: %+v", stateErr)
	}
	if !errors.Is(err, generic.ErrInvalidState) {
		t.Error("expected error to unwrap to ErrInvalidState")
	}
}

func TestRegularizationMachine_ApprovedIsFinal(t *testing.T) {
	m := generic.RegularizationMachine()
	if m.Allows(generic.StateApproved, generic.ActionCancel) {
		t.Error("approved regularization must not be cancellable")
	}
	if !terminal(m, generic.StateApproved) {
		t.Error("expected approved to be terminal")
	}
	for _, a := range allActions {
		if !m.Allows(generic.StatePending, a) {
			t.Errorf("expected %s to be legal from pending", a)
		}
	}
	for _, tr := range []generic.Action{generic.ActionApprove, generic.ActionReject} {
		next, _ := m.Next(generic.StateL1Approved, tr)
		if next.Effect != generic.EffectNone {
			t.Errorf("regularization transitions carry no ledger effect, got %s", next.Effect)
		}
	}
}

// =============================================================================
// PERIODS
// =============================================================================

func TestPeriod_LengthIsInclusive(t *testing.T) {
	p := generic.Period{
		Start: generic.NewTimePoint(2025, time.July, 10),
		End:   generic.NewTimePoint(2025, time.July, 12),
	}
	if p.Length() != 3 {
		t.Errorf("expected 3 days, got %d", p.Length())
	}
	single := generic.Period{Start: p.Start, End: p.Start}
	if single.Length() != 1 {
		t.Errorf("expected 1 day, got %d", single.Length())
	}
}

func TestPeriod_IntersectClipsToMonth(t *testing.T) {
	leave := generic.Period{
		Start: generic.NewTimePoint(2025, time.June, 28),
		End:   generic.NewTimePoint(2025, time.July, 2),
	}
	clipped, ok := leave.Intersect(generic.MonthPeriod(2025, time.July))
	if !ok {
		t.Fatal("expected overlap")
	}
	if clipped.String() != "[2025-07-01, 2025-07-02]" {
		t.Errorf("unexpected clip: %s", clipped)
	}

	_, ok = leave.Intersect(generic.MonthPeriod(2025, time.August))
	if ok {
		t.Error("expected no overlap with August")
	}
}

func TestEndOfMonth_LeapYear(t *testing.T) {
	if d := generic.EndOfMonth(2024, time.February).Day(); d != 29 {
		t.Errorf("expected 29, got %d", d)
	}
	if d := generic.EndOfMonth(2025, time.February).Day(); d != 28 {
		t.Errorf("expected 28, got %d", d)
	}
}

func TestDateOf_UsesLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC on the 1st is already the 2nd in India
	now := time.Date(2025, time.July, 1, 20, 0, 0, 0, time.UTC).In(ist)
	if got := generic.DateOf(now); got.String() != "2025-07-02" {
		t.Errorf("expected 2025-07-02, got %s", got)
	}
}

package leave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lavkush9051/attendance-app/employee"
	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/generic/store"
	"github.com/lavkush9051/attendance-app/leave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	applicant = generic.EntityID(1)
	officerL1 = generic.EntityID(100)
	officerL2 = generic.EntityID(200)
	stranger  = generic.EntityID(300)
)

var ist = time.FixedZone("IST", 5*3600+1800)

// today is 2025-07-15 in the test clock.
func today() generic.TimePoint { return generic.NewTimePoint(2025, time.July, 15) }

type env struct {
	svc    *leave.Service
	ledger *generic.BalanceLedger
	repo   *leave.MemoryRepository
	audit  *store.MemoryAudit
}

func singleLevel() leave.SecondLevelPolicy {
	return leave.SecondLevelFunc(func(leave.Request) bool { return false })
}

func newEnv(t *testing.T, cfg leave.Config) *env {
	t.Helper()
	clock := generic.FixedClock{T: time.Date(2025, time.July, 15, 10, 0, 0, 0, ist)}
	ledger := generic.NewBalanceLedger(store.NewMemory(), clock)
	repo := leave.NewMemoryRepository()
	audit := store.NewMemoryAudit()
	dir := employee.NewMemoryDirectory(
		employee.Employee{ID: applicant, Name: "Asha", WeekOffDay: time.Sunday},
		employee.Employee{ID: officerL1, Name: "Meera"},
		employee.Employee{ID: officerL2, Name: "Vikram"},
		employee.Employee{ID: stranger, Name: "Kiran"},
	)

	ctx := context.Background()
	for _, typ := range leave.AllTypes {
		key := generic.BalanceKey{EntityID: applicant, Resource: typ}
		require.NoError(t, ledger.SetAccrued(ctx, key, generic.Days(10), generic.Posting{Reason: "opening"}))
	}

	cfg.Clock = clock
	cfg.Location = ist
	cfg.Audit = audit
	return &env{svc: leave.NewService(ledger, repo, dir, cfg), ledger: ledger, repo: repo, audit: audit}
}

func (e *env) balance(t *testing.T, typ leave.Type) generic.Balance {
	t.Helper()
	b, err := e.ledger.Balance(context.Background(), generic.BalanceKey{EntityID: applicant, Resource: typ})
	require.NoError(t, err)
	return b
}

func assertCounters(t *testing.T, b generic.Balance, accrued, held, committed int) {
	t.Helper()
	assert.True(t, b.Accrued.Equal(generic.Days(accrued)), "accrued: got %v", b.Accrued.Value)
	assert.True(t, b.Held.Equal(generic.Days(held)), "held: got %v", b.Held.Value)
	assert.True(t, b.Committed.Equal(generic.Days(committed)), "committed: got %v", b.Committed.Value)
}

func submitInput(typ string, start, end generic.TimePoint) leave.SubmitInput {
	return leave.SubmitInput{
		EmployeeID:  applicant,
		LeaveType:   typ,
		StartDate:   start,
		EndDate:     end,
		Reason:      "family function",
		L1OfficerID: officerL1,
	}
}

func (e *env) submit(t *testing.T, typ string, startOffset, length int) leave.Request {
	t.Helper()
	start := today().AddDays(startOffset)
	req, err := e.svc.Submit(context.Background(), submitInput(typ, start, start.AddDays(length-1)))
	require.NoError(t, err)
	return req
}

func approve(id string, actor generic.EntityID) leave.DecideInput {
	return leave.DecideInput{RequestID: id, ActorID: actor, Verdict: leave.VerdictApprove, Remarks: "ok"}
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_HoldsDays(t *testing.T) {
	// GIVEN: 10 days of Casual Leave
	e := newEnv(t, leave.Config{})

	// WHEN: Applying for 3 days starting next week
	req := e.submit(t, "Casual Leave", 7, 3)

	// THEN: Pending, 3 days held
	assert.Equal(t, generic.StatePending, req.Status)
	assert.True(t, req.Days.Equal(generic.Days(3)))
	assert.Equal(t, today(), req.AppliedDate)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 3, 0)

	entries, err := e.audit.Query(context.Background(), generic.AuditFilter{Subject: req.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, generic.AuditRequestSubmitted, entries[0].Action)
}

func TestSubmit_BackdatingWindow(t *testing.T) {
	e := newEnv(t, leave.Config{})

	// today - 11 is just outside the window
	start := today().AddDays(-11)
	_, err := e.svc.Submit(context.Background(), submitInput("Casual Leave", start, start))
	assert.ErrorIs(t, err, generic.ErrValidation)

	// today - 9 is inside
	start = today().AddDays(-9)
	_, err = e.svc.Submit(context.Background(), submitInput("Casual Leave", start, start))
	assert.NoError(t, err)

	// today - 10 is the edge of the window
	start = today().AddDays(-10)
	_, err = e.svc.Submit(context.Background(), submitInput("Earned Leave", start, start))
	assert.NoError(t, err)
}

func TestSubmit_BackdatingOnlyForEligibleTypes(t *testing.T) {
	e := newEnv(t, leave.Config{})
	yesterday := today().AddDays(-1)

	for _, typ := range []string{"Medical Leave", "Compensatory Off", "Optional Holiday"} {
		_, err := e.svc.Submit(context.Background(), submitInput(typ, yesterday, yesterday))
		var vErr *generic.ValidationError
		require.ErrorAs(t, err, &vErr, typ)
		assert.Equal(t, "start_date", vErr.Field)
	}
	for i, typ := range []string{"Half Pay Leave", "Commuted Leave (Half Pay)"} {
		start := yesterday.AddDays(-2 - i)
		_, err := e.svc.Submit(context.Background(), submitInput(typ, start, start))
		assert.NoError(t, err, typ)
	}
}

func TestSubmit_ValidationErrors(t *testing.T) {
	e := newEnv(t, leave.Config{})
	start := today().AddDays(5)

	cases := map[string]func(in *leave.SubmitInput){
		"leave_type":    func(in *leave.SubmitInput) { in.LeaveType = "Sick Leave" },
		"end_date":      func(in *leave.SubmitInput) { in.EndDate = start.AddDays(-1) },
		"reason":        func(in *leave.SubmitInput) { in.Reason = "   " },
		"l1_officer_id": func(in *leave.SubmitInput) { in.L1OfficerID = 0 },
	}
	for field, mutate := range cases {
		in := submitInput("Casual Leave", start, start)
		mutate(&in)
		_, err := e.svc.Submit(context.Background(), in)
		var vErr *generic.ValidationError
		require.ErrorAs(t, err, &vErr, field)
		assert.Equal(t, field, vErr.Field)
	}

	in := submitInput("Casual Leave", start, start)
	in.L1OfficerID = 999
	_, err := e.svc.Submit(context.Background(), in)
	assert.ErrorIs(t, err, generic.ErrValidation, "unknown officer")

	in.L1OfficerID = applicant
	_, err = e.svc.Submit(context.Background(), in)
	assert.ErrorIs(t, err, generic.ErrValidation, "self approval")

	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 0, 0)
}

func TestSubmit_InsufficientBalance(t *testing.T) {
	e := newEnv(t, leave.Config{})

	start := today().AddDays(1)
	_, err := e.svc.Submit(context.Background(), submitInput("Casual Leave", start, start.AddDays(10)))
	assert.ErrorIs(t, err, generic.ErrInsufficientBalance)

	list, err := e.svc.ListByEmployee(context.Background(), applicant)
	require.NoError(t, err)
	assert.Empty(t, list)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 0, 0)
}

func TestSubmit_OverlapRejected(t *testing.T) {
	e := newEnv(t, leave.Config{})
	e.submit(t, "Casual Leave", 5, 3)

	start := today().AddDays(7)
	_, err := e.svc.Submit(context.Background(), submitInput("Earned Leave", start, start))
	assert.ErrorIs(t, err, generic.ErrValidation)

	// Adjacent days are fine
	e.submit(t, "Earned Leave", 8, 1)
}

func TestSubmit_CommutedLabelsShareOneBucket(t *testing.T) {
	e := newEnv(t, leave.Config{})
	e.submit(t, "Commuted Leave (Half Pay)", 3, 2)
	e.submit(t, "commuted leave", 6, 1)

	assertCounters(t, e.balance(t, leave.TypeCommuted), 10, 3, 0)
	assertCounters(t, e.balance(t, leave.TypeHalfPay), 10, 0, 0)
}

// =============================================================================
// DECIDE - SINGLE LEVEL
// =============================================================================

func TestDecide_ApproveCommits(t *testing.T) {
	e := newEnv(t, leave.Config{SecondLevel: singleLevel()})
	req := e.submit(t, "Casual Leave", 5, 3)

	got, err := e.svc.Decide(context.Background(), approve(req.ID, officerL1))

	require.NoError(t, err)
	assert.Equal(t, generic.StateApproved, got.Status)
	require.Len(t, got.Remarks, 1)
	assert.Equal(t, generic.TierL1, got.Remarks[0].Tier)
	assert.Equal(t, "ok", got.Remarks[0].Note)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 0, 3)
}

func TestDecide_DuplicateApproveIsInvalidState(t *testing.T) {
	// GIVEN: An approved request
	e := newEnv(t, leave.Config{SecondLevel: singleLevel()})
	req := e.submit(t, "Casual Leave", 5, 3)
	_, err := e.svc.Decide(context.Background(), approve(req.ID, officerL1))
	require.NoError(t, err)

	// WHEN: Approving again
	_, err = e.svc.Decide(context.Background(), approve(req.ID, officerL1))

	// THEN: InvalidState, balance unchanged
	var stateErr *generic.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, generic.StateApproved, stateErr.From)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 0, 3)
}

func TestDecide_RejectReleases(t *testing.T) {
	e := newEnv(t, leave.Config{SecondLevel: singleLevel()})
	req := e.submit(t, "Earned Leave", 5, 4)

	got, err := e.svc.Decide(context.Background(), leave.DecideInput{
		RequestID: req.ID, ActorID: officerL1, Verdict: leave.VerdictReject, Remarks: "project deadline",
	})

	require.NoError(t, err)
	assert.Equal(t, generic.StateRejected, got.Status)
	assertCounters(t, e.balance(t, leave.TypeEarned), 10, 0, 0)

	_, err = e.svc.Decide(context.Background(), approve(req.ID, officerL1))
	assert.ErrorIs(t, err, generic.ErrInvalidState)
}

func TestDecide_WrongActorNotAuthorized(t *testing.T) {
	e := newEnv(t, leave.Config{SecondLevel: singleLevel()})
	req := e.submit(t, "Casual Leave", 5, 1)

	_, err := e.svc.Decide(context.Background(), approve(req.ID, stranger))

	var authErr *generic.NotAuthorizedError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, officerL1, authErr.Expected)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 1, 0)
}

func TestDecide_UnknownRequest(t *testing.T) {
	e := newEnv(t, leave.Config{})
	_, err := e.svc.Decide(context.Background(), approve("missing", officerL1))
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

// =============================================================================
// DECIDE - TWO LEVELS
// =============================================================================

func TestDecide_SecondLevelRequiresNextOfficer(t *testing.T) {
	e := newEnv(t, leave.Config{})
	req := e.submit(t, "Casual Leave", 5, 2)

	_, err := e.svc.Decide(context.Background(), approve(req.ID, officerL1))

	var vErr *generic.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Next Reporting Officer required", vErr.Message)

	got, err := e.svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, generic.StatePending, got.Status)
}

func TestDecide_TwoLevelApproval(t *testing.T) {
	// GIVEN: Every request needs L2
	e := newEnv(t, leave.Config{})
	req := e.submit(t, "Casual Leave", 5, 2)

	// WHEN: L1 approves naming the L2 officer
	in := approve(req.ID, officerL1)
	in.NextOfficerID = officerL2
	got, err := e.svc.Decide(context.Background(), in)

	// THEN: l1_approved, days still held
	require.NoError(t, err)
	assert.Equal(t, generic.StateL1Approved, got.Status)
	assert.Equal(t, officerL2, got.L2OfficerID)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 2, 0)

	pending, err := e.svc.ListPendingFor(context.Background(), officerL2)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// L1 can no longer act
	_, err = e.svc.Decide(context.Background(), approve(req.ID, officerL1))
	assert.ErrorIs(t, err, generic.ErrNotAuthorized)

	// WHEN: L2 approves
	got, err = e.svc.Decide(context.Background(), approve(req.ID, officerL2))

	// THEN: approved and committed, both remarks kept
	require.NoError(t, err)
	assert.Equal(t, generic.StateApproved, got.Status)
	require.Len(t, got.Remarks, 2)
	assert.Equal(t, generic.TierL2, got.Remarks[1].Tier)
	assert.Equal(t, generic.ActionEscalate, got.Remarks[0].Action)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 0, 2)

	entries, err := e.audit.Query(context.Background(), generic.AuditFilter{
		Subject: req.ID, Actions: []generic.AuditAction{generic.AuditRequestEscalated, generic.AuditRequestApproved},
	})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDecide_NextOfficerMustExist(t *testing.T) {
	e := newEnv(t, leave.Config{})
	req := e.submit(t, "Casual Leave", 5, 2)

	in := approve(req.ID, officerL1)
	in.NextOfficerID = 999
	_, err := e.svc.Decide(context.Background(), in)
	assert.ErrorIs(t, err, generic.ErrValidation)

	in.NextOfficerID = applicant
	_, err = e.svc.Decide(context.Background(), in)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestDecide_SecondLevelRejectReleases(t *testing.T) {
	e := newEnv(t, leave.Config{})
	req := e.submit(t, "Earned Leave", 5, 3)
	in := approve(req.ID, officerL1)
	in.NextOfficerID = officerL2
	_, err := e.svc.Decide(context.Background(), in)
	require.NoError(t, err)

	got, err := e.svc.Decide(context.Background(), leave.DecideInput{
		RequestID: req.ID, ActorID: officerL2, Verdict: leave.VerdictReject,
	})

	require.NoError(t, err)
	assert.Equal(t, generic.StateRejected, got.Status)
	assertCounters(t, e.balance(t, leave.TypeEarned), 10, 0, 0)
}

func TestDecide_MinDaysPolicy(t *testing.T) {
	e := newEnv(t, leave.Config{SecondLevel: leave.MinDaysForSecondLevel(3)})
	short := e.submit(t, "Casual Leave", 5, 2)
	long := e.submit(t, "Earned Leave", 10, 3)

	got, err := e.svc.Decide(context.Background(), approve(short.ID, officerL1))
	require.NoError(t, err)
	assert.Equal(t, generic.StateApproved, got.Status)

	_, err = e.svc.Decide(context.Background(), approve(long.ID, officerL1))
	assert.ErrorIs(t, err, generic.ErrValidation)
}

// =============================================================================
// DECISION WINDOW
// =============================================================================

func TestDecide_WindowClosesOnStartDate(t *testing.T) {
	e := newEnv(t, leave.Config{SecondLevel: singleLevel()})

	tomorrow := e.submit(t, "Casual Leave", 1, 1)
	_, err := e.svc.Decide(context.Background(), approve(tomorrow.ID, officerL1))
	assert.NoError(t, err, "deadline is 23:59:59 today")

	startsToday := e.submit(t, "Earned Leave", 0, 1)
	_, err = e.svc.Decide(context.Background(), approve(startsToday.ID, officerL1))
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestDecide_MedicalLeaveHasNoWindow(t *testing.T) {
	e := newEnv(t, leave.Config{SecondLevel: singleLevel()})
	req := e.submit(t, "Medical Leave", 0, 2)

	got, err := e.svc.Decide(context.Background(), approve(req.ID, officerL1))

	require.NoError(t, err)
	assert.Equal(t, generic.StateApproved, got.Status)
}

func TestDecide_BackdatedRequestCanOnlyBeCancelled(t *testing.T) {
	// GIVEN: Casual Leave backdated three days
	e := newEnv(t, leave.Config{SecondLevel: singleLevel()})
	req := e.submit(t, "Casual Leave", -3, 2)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 2, 0)

	// WHEN: The L1 officer tries to approve
	_, err := e.svc.Decide(context.Background(), approve(req.ID, officerL1))

	// THEN: The window has already closed and the days stay held
	var vErr *generic.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "start_date", vErr.Field)
	got, err := e.svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, generic.StatePending, got.Status)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 2, 0)

	// WHEN: The applicant cancels
	got, err = e.svc.Cancel(context.Background(), req.ID, applicant)

	// THEN: The hold is released
	require.NoError(t, err)
	assert.Equal(t, generic.StateCancelled, got.Status)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 0, 0)
}

func TestDecide_StateCheckedBeforeWindow(t *testing.T) {
	e := newEnv(t, leave.Config{SecondLevel: singleLevel()})
	req := e.submit(t, "Earned Leave", 0, 1)
	_, err := e.svc.Cancel(context.Background(), req.ID, applicant)
	require.NoError(t, err)

	_, err = e.svc.Decide(context.Background(), approve(req.ID, officerL1))
	assert.ErrorIs(t, err, generic.ErrInvalidState)
}

// =============================================================================
// CANCEL
// =============================================================================

func TestCancel_ApprovedUncommits(t *testing.T) {
	// GIVEN: 3 approved days
	e := newEnv(t, leave.Config{SecondLevel: singleLevel()})
	req := e.submit(t, "Casual Leave", 5, 3)
	_, err := e.svc.Decide(context.Background(), approve(req.ID, officerL1))
	require.NoError(t, err)

	// WHEN: The applicant cancels
	got, err := e.svc.Cancel(context.Background(), req.ID, applicant)

	// THEN: Cancelled, committed back to 0, accrued untouched
	require.NoError(t, err)
	assert.Equal(t, generic.StateCancelled, got.Status)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 0, 0)
}

func TestCancel_PendingAndEscalatedRelease(t *testing.T) {
	e := newEnv(t, leave.Config{})
	pending := e.submit(t, "Casual Leave", 5, 2)
	escalated := e.submit(t, "Casual Leave", 10, 3)
	in := approve(escalated.ID, officerL1)
	in.NextOfficerID = officerL2
	_, err := e.svc.Decide(context.Background(), in)
	require.NoError(t, err)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 5, 0)

	_, err = e.svc.Cancel(context.Background(), pending.ID, applicant)
	require.NoError(t, err)
	_, err = e.svc.Cancel(context.Background(), escalated.ID, applicant)
	require.NoError(t, err)

	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 0, 0)
}

func TestCancel_OnlyApplicant(t *testing.T) {
	e := newEnv(t, leave.Config{})
	req := e.submit(t, "Casual Leave", 5, 2)

	_, err := e.svc.Cancel(context.Background(), req.ID, officerL1)
	assert.ErrorIs(t, err, generic.ErrNotAuthorized)
}

func TestCancel_TwiceIsInvalidState(t *testing.T) {
	e := newEnv(t, leave.Config{})
	req := e.submit(t, "Casual Leave", 5, 2)
	_, err := e.svc.Cancel(context.Background(), req.ID, applicant)
	require.NoError(t, err)

	_, err = e.svc.Cancel(context.Background(), req.ID, applicant)
	assert.ErrorIs(t, err, generic.ErrInvalidState)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 0, 0)
}

func TestCancel_DefaultHasNoCutoff(t *testing.T) {
	// Leave that already started can still be cancelled
	e := newEnv(t, leave.Config{SecondLevel: singleLevel()})
	req := e.submit(t, "Casual Leave", -2, 4)

	_, err := e.svc.Cancel(context.Background(), req.ID, applicant)
	assert.NoError(t, err)
}

func TestCancel_DayBeforeCutoff(t *testing.T) {
	e := newEnv(t, leave.Config{CancelCutoff: leave.CancelDayBefore})
	started := e.submit(t, "Casual Leave", 0, 2)
	future := e.submit(t, "Casual Leave", 3, 1)

	_, err := e.svc.Cancel(context.Background(), started.ID, applicant)
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = e.svc.Cancel(context.Background(), future.ID, applicant)
	assert.NoError(t, err)
}

func TestParseCancelCutoff(t *testing.T) {
	c, err := leave.ParseCancelCutoff("")
	require.NoError(t, err)
	assert.Equal(t, leave.CancelAnytime, c)

	c, err = leave.ParseCancelCutoff("DAY_BEFORE")
	require.NoError(t, err)
	assert.Equal(t, leave.CancelDayBefore, c)

	_, err = leave.ParseCancelCutoff("same_day")
	assert.ErrorIs(t, err, generic.ErrInvalidArgument)
}

// =============================================================================
// CONCURRENCY AND COMPENSATION
// =============================================================================

func TestDecide_ConcurrentDuplicatesCommitOnce(t *testing.T) {
	e := newEnv(t, leave.Config{SecondLevel: singleLevel()})
	req := e.submit(t, "Casual Leave", 5, 3)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.Decide(context.Background(), approve(req.ID, officerL1))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, generic.ErrInvalidState)
		}
	}
	assert.Equal(t, 1, succeeded)
	assertCounters(t, e.balance(t, leave.TypeCasual), 10, 0, 3)
}

func TestSubmit_ConcurrentNeverOverdraws(t *testing.T) {
	e := newEnv(t, leave.Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := today().AddDays(1 + i*3)
			_, _ = e.svc.Submit(context.Background(), submitInput("Casual Leave", start, start.AddDays(2)))
		}(i)
	}
	wg.Wait()

	b := e.balance(t, leave.TypeCasual)
	assert.False(t, b.Held.Add(b.Committed).GreaterThan(b.Accrued))
	assertCounters(t, b, 10, 9, 0)
}

type failingRepo struct {
	*leave.MemoryRepository
	failCreate bool
	failUpdate bool
}

var errDisk = errors.New("disk full")

func (f *failingRepo) Create(ctx context.Context, r leave.Request) error {
	if f.failCreate {
		return errDisk
	}
	return f.MemoryRepository.Create(ctx, r)
}

func (f *failingRepo) Update(ctx context.Context, r leave.Request) error {
	if f.failUpdate {
		return errDisk
	}
	return f.MemoryRepository.Update(ctx, r)
}

func TestPersistFailure_ReversesLedger(t *testing.T) {
	base := newEnv(t, leave.Config{})
	repo := &failingRepo{MemoryRepository: leave.NewMemoryRepository()}
	dir := employee.NewMemoryDirectory(
		employee.Employee{ID: applicant}, employee.Employee{ID: officerL1},
	)
	svc := leave.NewService(base.ledger, repo, dir, leave.Config{
		SecondLevel: singleLevel(), Location: ist,
	})
	ctx := context.Background()
	start := today().AddDays(5)

	// Create fails: the hold is reversed
	repo.failCreate = true
	_, err := svc.Submit(ctx, submitInput("Casual Leave", start, start.AddDays(1)))
	assert.ErrorIs(t, err, errDisk)
	assertCounters(t, base.balance(t, leave.TypeCasual), 10, 0, 0)

	// Update fails on approve: the commit is reversed, request stays pending
	repo.failCreate = false
	req, err := svc.Submit(ctx, submitInput("Casual Leave", start, start.AddDays(1)))
	require.NoError(t, err)
	repo.failUpdate = true
	_, err = svc.Decide(ctx, approve(req.ID, officerL1))
	assert.ErrorIs(t, err, errDisk)
	assertCounters(t, base.balance(t, leave.TypeCasual), 10, 2, 0)

	got, err := svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, generic.StatePending, got.Status)
}

// =============================================================================
// LEDGER PROPERTIES THROUGH THE LIFECYCLE
// =============================================================================

func TestLifecycle_NeverExceedsAccrued(t *testing.T) {
	e := newEnv(t, leave.Config{SecondLevel: singleLevel()})
	ctx := context.Background()

	check := func() {
		b := e.balance(t, leave.TypeEarned)
		assert.False(t, b.Held.Add(b.Committed).GreaterThan(b.Accrued))
		assert.False(t, b.Held.IsNegative())
		assert.False(t, b.Committed.IsNegative())
	}

	var ids []string
	for i := 0; i < 6; i++ {
		start := today().AddDays(2 + i*2)
		req, err := e.svc.Submit(ctx, submitInput("Earned Leave", start, start.AddDays(1)))
		if err == nil {
			ids = append(ids, req.ID)
		} else {
			assert.ErrorIs(t, err, generic.ErrInsufficientBalance)
		}
		check()
	}
	require.Len(t, ids, 5)

	_, err := e.svc.Decide(ctx, approve(ids[0], officerL1))
	require.NoError(t, err)
	check()
	_, err = e.svc.Decide(ctx, leave.DecideInput{RequestID: ids[1], ActorID: officerL1, Verdict: leave.VerdictReject})
	require.NoError(t, err)
	check()
	_, err = e.svc.Cancel(ctx, ids[0], applicant)
	require.NoError(t, err)
	check()
	_, err = e.svc.Cancel(ctx, ids[2], applicant)
	require.NoError(t, err)
	check()

	assertCounters(t, e.balance(t, leave.TypeEarned), 10, 4, 0)
}

func TestParseType(t *testing.T) {
	cases := map[string]leave.Type{
		"Casual Leave":              leave.TypeCasual,
		"earned":                    leave.TypeEarned,
		"Half-Pay":                  leave.TypeHalfPay,
		"Commuted Leave (Half Pay)": leave.TypeCommuted,
		"Compensatory-Off":          leave.TypeCompOff,
		"Optional-Holiday":          leave.TypeOptional,
		"MEDICAL LEAVE":             leave.TypeMedical,
	}
	for label, want := range cases {
		got, err := leave.ParseType(label)
		require.NoError(t, err, label)
		assert.Equal(t, want, got, label)
	}

	_, err := leave.ParseType("Sabbatical")
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Equal(t, leave.TypeCasual, generic.LookupResource("Casual Leave"))
}

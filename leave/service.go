/*
service.go - Leave request lifecycle

PURPOSE:
  Submit, Decide and Cancel are the only ways a leave request changes.
  Each one looks up its transition in generic.LeaveMachine, applies the
  ledger effect that transition carries and then persists the request.

SUBMIT:
  1. Validate input (type, dates, reason, L1 officer)
  2. Backdating: only backdatable types, and only inside the window
  3. No overlap with the employee's other active requests
  4. Hold the days, create the request in pending

DECIDE:
  1. State first: a request that can't take the action is InvalidState
  2. Actor must be the officer of the current tier
  3. Decision window: until 23:59:59 of the day before the start date,
     unless the type is exempt
  4. L1 approve escalates when a second level is needed; the next
     reporting officer must then be supplied

CANCEL:
  Only the applicant; pending and l1_approved release the hold, approved
  uncommits. An optional cutoff stops cancellation on the start date.

ORDERING:
  Ledger first, request second. If the request write fails the ledger
  posting is reversed and the error returned.

CONCURRENCY:
  Mutations of one request are serialized by a KeyedMutex. A duplicate
  approve that waited on the lock sees the new state and fails with
  InvalidState instead of committing twice.

SEE ALSO:
  - generic/ledger.go: Hold / Commit / Release / Uncommit
  - generic/workflow.go: Transition table
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lavkush9051/attendance-app/employee"
	"github.com/lavkush9051/attendance-app/generic"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// DefaultBackdateWindowDays is how far back a backdatable leave may start.
const DefaultBackdateWindowDays = 10

// SecondLevelPolicy decides whether a request needs an L2 decision.
type SecondLevelPolicy interface {
	RequiresSecondLevel(r Request) bool
}

// SecondLevelFunc adapts a function to SecondLevelPolicy.
type SecondLevelFunc func(r Request) bool

func (f SecondLevelFunc) RequiresSecondLevel(r Request) bool { return f(r) }

// MinDaysForSecondLevel requires L2 for requests of at least n days.
// n <= 0 sends every request to L2.
func MinDaysForSecondLevel(n int) SecondLevelPolicy {
	return SecondLevelFunc(func(r Request) bool {
		return n <= 0 || !r.Days.LessThan(generic.Days(n))
	})
}

// CancelCutoff controls until when an applicant may cancel.
type CancelCutoff string

const (
	CancelAnytime   CancelCutoff = "none"
	CancelDayBefore CancelCutoff = "day_before"
)

// ParseCancelCutoff accepts "none", "day_before" or empty (none).
func ParseCancelCutoff(s string) (CancelCutoff, error) {
	switch CancelCutoff(strings.ToLower(strings.TrimSpace(s))) {
	case "", CancelAnytime:
		return CancelAnytime, nil
	case CancelDayBefore:
		return CancelDayBefore, nil
	}
	return "", fmt.Errorf("unknown cancel cutoff %q: %w", s, generic.ErrInvalidArgument)
}

type Config struct {
	BackdateWindowDays int
	SecondLevel        SecondLevelPolicy
	CancelCutoff       CancelCutoff
	Location           *time.Location // wall clock for date rules; nil uses the clock's own

	Clock  generic.Clock
	Audit  generic.AuditLog
	Logger *slog.Logger
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	ledger    *generic.BalanceLedger
	repo      Repository
	directory employee.Directory
	machine   *generic.Machine
	cfg       Config
	logger    *slog.Logger

	locks generic.KeyedMutex
}

func NewService(ledger *generic.BalanceLedger, repo Repository, directory employee.Directory, cfg Config) *Service {
	if cfg.BackdateWindowDays <= 0 {
		cfg.BackdateWindowDays = DefaultBackdateWindowDays
	}
	if cfg.SecondLevel == nil {
		cfg.SecondLevel = MinDaysForSecondLevel(0)
	}
	if cfg.CancelCutoff == "" {
		cfg.CancelCutoff = CancelAnytime
	}
	if cfg.Clock == nil {
		cfg.Clock = ledger.Clock
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger:    ledger,
		repo:      repo,
		directory: directory,
		machine:   generic.LeaveMachine(),
		cfg:       cfg,
		logger:    logger.With("component", "leave"),
	}
}

// SubmitInput is a new leave application.
type SubmitInput struct {
	EmployeeID    generic.EntityID
	LeaveType     string
	StartDate     generic.TimePoint
	EndDate       generic.TimePoint
	Reason        string
	L1OfficerID   generic.EntityID
	AttachmentRef string
}

// Verdict is an officer's decision.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictReject  Verdict = "reject"
)

func ParseVerdict(s string) (Verdict, error) {
	switch Verdict(strings.ToLower(strings.TrimSpace(s))) {
	case VerdictApprove:
		return VerdictApprove, nil
	case VerdictReject:
		return VerdictReject, nil
	}
	return "", generic.NewValidationError("action", fmt.Sprintf("unknown action %q", s))
}

// DecideInput is an L1 or L2 decision.
type DecideInput struct {
	RequestID     string
	ActorID       generic.EntityID
	Verdict       Verdict
	Remarks       string
	NextOfficerID generic.EntityID // required on L1 approve when L2 is needed and unassigned
}

// =============================================================================
// SUBMIT
// =============================================================================

func (s *Service) Submit(ctx context.Context, in SubmitInput) (Request, error) {
	typ, err := ParseType(in.LeaveType)
	if err != nil {
		return Request{}, err
	}
	if in.StartDate.IsZero() {
		return Request{}, generic.NewValidationError("start_date", "required")
	}
	if in.EndDate.IsZero() {
		return Request{}, generic.NewValidationError("end_date", "required")
	}
	period := generic.Period{Start: in.StartDate, End: in.EndDate}
	if !period.Valid() {
		return Request{}, generic.NewValidationError("end_date", "must not be before start_date")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return Request{}, generic.NewValidationError("reason", "required")
	}
	if in.L1OfficerID == 0 {
		return Request{}, generic.NewValidationError("l1_officer_id", "Immediate Reporting Officer required")
	}
	if err := s.checkOfficer(ctx, "l1_officer_id", in.L1OfficerID, in.EmployeeID); err != nil {
		return Request{}, err
	}
	if _, err := s.directory.Employee(ctx, in.EmployeeID); err != nil {
		return Request{}, err
	}

	now := s.now()
	today := generic.DateOf(now)
	if err := s.checkBackdating(typ, period.Start, today); err != nil {
		return Request{}, err
	}

	// Overlap check and creation must not interleave for one employee.
	unlock := s.locks.Lock("employee/" + in.EmployeeID.String())
	defer unlock()

	existing, err := s.repo.ListByEmployee(ctx, in.EmployeeID)
	if err != nil {
		return Request{}, fmt.Errorf("failed to load leave requests: %w", err)
	}
	for _, r := range existing {
		if r.IsActive() && r.Period.Overlaps(period) {
			return Request{}, generic.NewValidationError("start_date",
				fmt.Sprintf("overlaps leave request %s %s", r.ID, r.Period))
		}
	}

	req := Request{
		ID:            uuid.NewString(),
		EmployeeID:    in.EmployeeID,
		Type:          typ,
		Period:        period,
		Days:          generic.Days(period.Length()),
		Reason:        reason,
		AppliedDate:   today,
		Status:        generic.StatePending,
		L1OfficerID:   in.L1OfficerID,
		AttachmentRef: in.AttachmentRef,
		UpdatedAt:     now,
	}

	tx, err := s.ledger.Hold(ctx, req.Key(), req.Days, s.posting(req, in.EmployeeID, "leave submitted"))
	if err != nil {
		return Request{}, err
	}
	if err := s.repo.Create(ctx, req); err != nil {
		s.compensate(ctx, req, &tx)
		return Request{}, fmt.Errorf("failed to save leave request: %w", err)
	}

	s.logger.Info("leave request submitted",
		"request_id", req.ID, "emp_id", req.EmployeeID, "type", req.Type, "days", req.Days.Value.String())
	s.audit(ctx, generic.AuditRequestSubmitted, req, in.EmployeeID, map[string]any{
		"type": string(req.Type), "start": req.Period.Start.String(), "end": req.Period.End.String(),
	})
	return req, nil
}

func (s *Service) checkBackdating(typ Type, start, today generic.TimePoint) error {
	if !start.Before(today) {
		return nil
	}
	if !PolicyFor(typ).Backdatable {
		return generic.NewValidationError("start_date", fmt.Sprintf("%s cannot start in the past", typ))
	}
	earliest := today.AddDays(-s.cfg.BackdateWindowDays)
	if start.Before(earliest) {
		return generic.NewValidationError("start_date",
			fmt.Sprintf("cannot start more than %d days in the past", s.cfg.BackdateWindowDays))
	}
	return nil
}

// =============================================================================
// DECIDE
// =============================================================================

func (s *Service) Decide(ctx context.Context, in DecideInput) (Request, error) {
	action := generic.ActionReject
	switch in.Verdict {
	case VerdictApprove:
		action = generic.ActionApprove
	case VerdictReject:
	default:
		return Request{}, generic.NewValidationError("action", fmt.Sprintf("unknown action %q", in.Verdict))
	}

	unlock := s.locks.Lock("request/" + in.RequestID)
	defer unlock()

	req, err := s.repo.Get(ctx, in.RequestID)
	if err != nil {
		return Request{}, err
	}
	if !s.machine.Allows(req.Status, action) {
		return Request{}, &generic.InvalidStateError{From: req.Status, Action: action}
	}

	tier := req.CurrentTier()
	if officer := req.OfficerFor(tier); in.ActorID != officer {
		return Request{}, &generic.NotAuthorizedError{
			ActorID:  in.ActorID,
			Expected: officer,
			Reason:   fmt.Sprintf("not the %s officer of request %s", tier, req.ID),
		}
	}

	now := s.now()
	if !PolicyFor(req.Type).DecisionCutoffExempt {
		deadline := req.Period.Start.AddDays(-1).EndIn(now.Location())
		if now.After(deadline) {
			return Request{}, generic.NewValidationError("start_date",
				fmt.Sprintf("decisions closed at %s", deadline.Format(time.DateTime)))
		}
	}

	updated := req.clone()
	if action == generic.ActionApprove && tier == generic.TierL1 {
		if req.HasSecondLevel() || s.cfg.SecondLevel.RequiresSecondLevel(req) {
			if !req.HasSecondLevel() {
				if in.NextOfficerID == 0 {
					return Request{}, generic.NewValidationError("next_officer_id", "Next Reporting Officer required")
				}
				if in.NextOfficerID == in.ActorID {
					return Request{}, generic.NewValidationError("next_officer_id", "must differ from the L1 officer")
				}
				if err := s.checkOfficer(ctx, "next_officer_id", in.NextOfficerID, req.EmployeeID); err != nil {
					return Request{}, err
				}
				updated.L2OfficerID = in.NextOfficerID
			}
			action = generic.ActionEscalate
		}
	}

	tr, err := s.machine.Next(req.Status, action)
	if err != nil {
		return Request{}, err
	}
	updated.Status = tr.To
	updated.UpdatedAt = now
	updated.Remarks = append(updated.Remarks, generic.Remark{
		Tier: tier, ActorID: in.ActorID, Action: action, Note: strings.TrimSpace(in.Remarks), At: now,
	})

	if err := s.transition(ctx, updated, tr, in.ActorID); err != nil {
		return Request{}, err
	}

	s.logger.Info("leave request decided",
		"request_id", req.ID, "actor", in.ActorID, "tier", tier, "from", tr.From, "to", tr.To)
	auditAction := generic.AuditRequestApproved
	switch tr.Action {
	case generic.ActionEscalate:
		auditAction = generic.AuditRequestEscalated
	case generic.ActionReject:
		auditAction = generic.AuditRequestRejected
	}
	s.audit(ctx, auditAction, updated, in.ActorID, map[string]any{
		"tier": string(tier), "from": string(tr.From), "to": string(tr.To),
	})
	return updated, nil
}

// =============================================================================
// CANCEL
// =============================================================================

func (s *Service) Cancel(ctx context.Context, requestID string, actorID generic.EntityID) (Request, error) {
	unlock := s.locks.Lock("request/" + requestID)
	defer unlock()

	req, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	tr, err := s.machine.Next(req.Status, generic.ActionCancel)
	if err != nil {
		return Request{}, err
	}
	if actorID != req.EmployeeID {
		return Request{}, &generic.NotAuthorizedError{
			ActorID: actorID, Expected: req.EmployeeID, Reason: "only the applicant may cancel",
		}
	}

	now := s.now()
	if s.cfg.CancelCutoff == CancelDayBefore {
		deadline := req.Period.Start.AddDays(-1).EndIn(now.Location())
		if now.After(deadline) {
			return Request{}, generic.NewValidationError("start_date",
				fmt.Sprintf("cancellation closed at %s", deadline.Format(time.DateTime)))
		}
	}

	updated := req.clone()
	updated.Status = tr.To
	updated.UpdatedAt = now
	if err := s.transition(ctx, updated, tr, actorID); err != nil {
		return Request{}, err
	}

	s.logger.Info("leave request cancelled", "request_id", req.ID, "from", tr.From)
	s.audit(ctx, generic.AuditRequestCancelled, updated, actorID, map[string]any{"from": string(tr.From)})
	return updated, nil
}

// =============================================================================
// READS
// =============================================================================

func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByEmployee(ctx context.Context, empID generic.EntityID) ([]Request, error) {
	return s.repo.ListByEmployee(ctx, empID)
}

func (s *Service) ListPendingFor(ctx context.Context, officer generic.EntityID) ([]Request, error) {
	return s.repo.ListPendingFor(ctx, officer)
}

// =============================================================================
// HELPERS
// =============================================================================

// transition applies the ledger effect of tr, then persists updated.
func (s *Service) transition(ctx context.Context, updated Request, tr generic.Transition, actor generic.EntityID) error {
	p := s.posting(updated, actor, fmt.Sprintf("%s: %s -> %s", tr.Action, tr.From, tr.To))

	var (
		tx  generic.Transaction
		err error
	)
	switch tr.Effect {
	case generic.EffectCommit:
		tx, err = s.ledger.Commit(ctx, updated.Key(), updated.Days, p)
	case generic.EffectRelease:
		tx, err = s.ledger.Release(ctx, updated.Key(), updated.Days, p)
	case generic.EffectUncommit:
		tx, err = s.ledger.Uncommit(ctx, updated.Key(), updated.Days, p)
	}
	if err != nil {
		return err
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		if tr.Effect != generic.EffectNone {
			s.compensate(ctx, updated, &tx)
		}
		return fmt.Errorf("failed to save leave request: %w", err)
	}
	return nil
}

func (s *Service) compensate(ctx context.Context, req Request, tx *generic.Transaction) {
	if err := s.ledger.Reverse(ctx, *tx, s.posting(req, 0, "")); err != nil {
		s.logger.Error("failed to reverse ledger posting",
			"request_id", req.ID, "tx_id", tx.ID, "error", err)
	}
}

func (s *Service) checkOfficer(ctx context.Context, field string, officer, applicant generic.EntityID) error {
	if officer == applicant {
		return generic.NewValidationError(field, "an employee cannot approve their own leave")
	}
	if _, err := s.directory.LookupApprover(ctx, officer); err != nil {
		if errors.Is(err, generic.ErrNotFound) {
			return generic.NewValidationError(field, fmt.Sprintf("unknown officer %s", officer))
		}
		return fmt.Errorf("failed to look up officer %s: %w", officer, err)
	}
	return nil
}

func (s *Service) posting(req Request, actor generic.EntityID, reason string) generic.Posting {
	return generic.Posting{ReferenceID: req.ID, ActorID: actor, Reason: reason}
}

func (s *Service) audit(ctx context.Context, action generic.AuditAction, req Request, actor generic.EntityID, payload map[string]any) {
	if s.cfg.Audit == nil {
		return
	}
	entry := generic.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: req.UpdatedAt,
		ActorID:   actor,
		Action:    action,
		EntityID:  req.EmployeeID,
		Subject:   req.ID,
		Payload:   payload,
	}
	if err := s.cfg.Audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit entry", "request_id", req.ID, "action", action, "error", err)
	}
}

func (s *Service) now() time.Time {
	now := s.cfg.Clock.Now()
	if s.cfg.Location != nil {
		now = now.In(s.cfg.Location)
	}
	return now
}

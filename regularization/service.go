package regularization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lavkush9051/attendance-app/attendance"
	"github.com/lavkush9051/attendance-app/employee"
	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/shift"
)

// =============================================================================
// SERVICE
// =============================================================================

type Config struct {
	// Escalation sends every L1 approval on to an L2 officer.
	Escalation bool

	Clock    generic.Clock
	Location *time.Location
	Audit    generic.AuditLog
	Logger   *slog.Logger
}

type Service struct {
	repo      Repository
	directory employee.Directory
	events    attendance.EventStore
	machine   *generic.Machine
	cfg       Config
	logger    *slog.Logger

	locks generic.KeyedMutex
}

func NewService(repo Repository, directory employee.Directory, events attendance.EventStore, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = generic.SystemClock{Location: cfg.Location}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		directory: directory,
		events:    events,
		machine:   generic.RegularizationMachine(),
		cfg:       cfg,
		logger:    logger.With("component", "regularization"),
	}
}

// SubmitInput is a new regularization request. Times are HH:MM.
type SubmitInput struct {
	EmployeeID  generic.EntityID
	Date        generic.TimePoint
	ClockIn     string
	ClockOut    string
	Shift       string
	Type        string
	Reason      string
	L1OfficerID generic.EntityID
}

// DecideInput is an L1 or L2 decision.
type DecideInput struct {
	RequestID     string
	ActorID       generic.EntityID
	Approve       bool
	Remarks       string
	NextOfficerID generic.EntityID
}

// =============================================================================
// SUBMIT
// =============================================================================

func (s *Service) Submit(ctx context.Context, in SubmitInput) (Request, error) {
	now := s.now()
	if in.Date.IsZero() {
		return Request{}, generic.NewValidationError("date", "required")
	}
	if in.Date.After(generic.DateOf(now)) {
		return Request{}, generic.NewValidationError("date", "cannot be in the future")
	}
	typ, err := ParseType(in.Type)
	if err != nil {
		return Request{}, err
	}
	label, err := shift.ParseLabel(in.Shift)
	if err != nil || label == shift.ShiftHoliday {
		return Request{}, generic.NewValidationError("shift", fmt.Sprintf("unknown shift %q", in.Shift))
	}
	if strings.TrimSpace(in.ClockIn) == "" {
		return Request{}, generic.NewValidationError("requested_clock_in", "required")
	}
	clockIn, err := shift.ParseClock(in.ClockIn)
	if err != nil {
		return Request{}, generic.NewValidationError("requested_clock_in", "must be HH:MM")
	}
	var clockOut *shift.ClockOfDay
	if strings.TrimSpace(in.ClockOut) != "" {
		out, err := shift.ParseClock(in.ClockOut)
		if err != nil {
			return Request{}, generic.NewValidationError("requested_clock_out", "must be HH:MM")
		}
		// Only the night window spans midnight.
		if !shift.Window(label).CrossesMidnight() && out.Minutes() <= clockIn.Minutes() {
			return Request{}, generic.NewValidationError("requested_clock_out", "must be after clock-in")
		}
		clockOut = &out
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

	unlock := s.locks.Lock("employee/" + in.EmployeeID.String())
	defer unlock()

	existing, err := s.repo.ListByEmployee(ctx, in.EmployeeID)
	if err != nil {
		return Request{}, fmt.Errorf("failed to load regularizations: %w", err)
	}
	for _, r := range existing {
		if r.IsOpen() && r.Date.Equal(in.Date) {
			return Request{}, generic.NewValidationError("date",
				fmt.Sprintf("request %s for %s is still open", r.ID, r.Date))
		}
	}

	req := Request{
		ID:          uuid.NewString(),
		EmployeeID:  in.EmployeeID,
		Date:        in.Date,
		ClockIn:     clockIn,
		ClockOut:    clockOut,
		Shift:       label,
		Type:        typ,
		Reason:      reason,
		Status:      generic.StatePending,
		L1OfficerID: in.L1OfficerID,
		AppliedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return Request{}, fmt.Errorf("failed to save regularization: %w", err)
	}

	s.logger.Info("regularization submitted", "request_id", req.ID, "emp_id", req.EmployeeID, "date", req.Date)
	s.audit(ctx, generic.AuditRequestSubmitted, req, in.EmployeeID, map[string]any{
		"date": req.Date.String(), "type": string(req.Type),
	})
	return req, nil
}

// =============================================================================
// DECIDE / CANCEL
// =============================================================================

func (s *Service) Decide(ctx context.Context, in DecideInput) (Request, error) {
	action := generic.ActionReject
	if in.Approve {
		action = generic.ActionApprove
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

	updated := req.clone()
	if action == generic.ActionApprove && tier == generic.TierL1 && s.cfg.Escalation {
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
		action = generic.ActionEscalate
	}

	tr, err := s.machine.Next(req.Status, action)
	if err != nil {
		return Request{}, err
	}
	now := s.now()
	updated.Status = tr.To
	updated.UpdatedAt = now
	updated.Remarks = append(updated.Remarks, generic.Remark{
		Tier: tier, ActorID: in.ActorID, Action: action, Note: strings.TrimSpace(in.Remarks), At: now,
	})

	if err := s.repo.Update(ctx, updated); err != nil {
		return Request{}, fmt.Errorf("failed to save regularization: %w", err)
	}
	// The request is saved first; a failed write-back puts it back as it was.
	if tr.To == generic.StateApproved {
		if err := s.applyCorrection(ctx, req); err != nil {
			if rerr := s.repo.Update(ctx, req); rerr != nil {
				s.logger.Error("failed to restore regularization after correction failure",
					"request_id", req.ID, "error", rerr)
			}
			return Request{}, fmt.Errorf("failed to apply correction: %w", err)
		}
	}

	s.logger.Info("regularization decided", "request_id", req.ID, "actor", in.ActorID, "from", tr.From, "to", tr.To)
	auditAction := generic.AuditRequestApproved
	switch tr.Action {
	case generic.ActionEscalate:
		auditAction = generic.AuditRequestEscalated
	case generic.ActionReject:
		auditAction = generic.AuditRequestRejected
	}
	s.audit(ctx, auditAction, updated, in.ActorID, map[string]any{"tier": string(tier), "to": string(tr.To)})
	return updated, nil
}

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

	updated := req.clone()
	updated.Status = tr.To
	updated.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, updated); err != nil {
		return Request{}, fmt.Errorf("failed to save regularization: %w", err)
	}
	s.audit(ctx, generic.AuditRequestCancelled, updated, actorID, map[string]any{"from": string(tr.From)})
	return updated, nil
}

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

// applyCorrection overlays the approved times on the day's recorded event.
func (s *Service) applyCorrection(ctx context.Context, r Request) error {
	existing, err := s.events.ClockEvents(ctx, r.EmployeeID, generic.Period{Start: r.Date, End: r.Date})
	if err != nil {
		return fmt.Errorf("failed to load clock events: %w", err)
	}
	return s.events.PutClockEvent(ctx, r.EmployeeID, correction(r, existing))
}

// correction keeps a recorded clock-out unless the request supplies one.
func correction(r Request, existing []attendance.ClockEvent) attendance.ClockEvent {
	ev := attendance.ClockEvent{Date: r.Date.String()}
	for _, e := range existing {
		if e.Date == ev.Date {
			ev = e
		}
	}
	ev.ClockIn = r.ClockIn.String()
	if r.ClockOut != nil {
		ev.ClockOut = r.ClockOut.String()
	}
	return ev
}

func (s *Service) checkOfficer(ctx context.Context, field string, officer, applicant generic.EntityID) error {
	if officer == applicant {
		return generic.NewValidationError(field, "an employee cannot approve their own request")
	}
	if _, err := s.directory.LookupApprover(ctx, officer); err != nil {
		if errors.Is(err, generic.ErrNotFound) {
			return generic.NewValidationError(field, fmt.Sprintf("unknown officer %s", officer))
		}
		return fmt.Errorf("failed to look up officer %s: %w", officer, err)
	}
	return nil
}

func (s *Service) audit(ctx context.Context, action generic.AuditAction, req Request, actor generic.EntityID, payload map[string]any) {
	if s.cfg.Audit == nil {
		return
	}
	payload["kind"] = "regularization"
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

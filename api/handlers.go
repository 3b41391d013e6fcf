/*
handlers.go - HTTP API handlers for the attendance portal

PURPOSE:
  Exposes the leave ledger, the request workflows and the attendance
  classifier via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the domain services.

ENDPOINTS:
  GET /health, GET /ready (store ping), unauthenticated

  Under /api, bearer token required:
  Leave:
    POST   /leave-requests                  Submit (applicant = caller)
    GET    /leave-requests/{id}             Applicant, officers or admin
    POST   /leave-requests/{id}/decision    L1 or L2 officer decides
    POST   /leave-requests/{id}/cancel      Applicant cancels
    GET    /approvals/pending               Leave + regularizations waiting on caller

  Regularization:
    POST   /regularizations
    GET    /regularizations/{id}
    POST   /regularizations/{id}/decision
    POST   /regularizations/{id}/cancel

  Employee views (self or admin):
    GET    /employees/{id}/leave-requests
    GET    /employees/{id}/regularizations
    GET    /employees/{id}/balance
    PUT    /employees/{id}/balance          Admin accrual import
    GET    /employees/{id}/attendance?year=&month=
    GET    /employees/{id}/approver         Any caller (approver picker)

  Attendance:
    POST   /attendance/clock                Face-verified clock in/out
    GET    /shifts?week_off=&date=          Shift rotation lookup

IDENTITY:
  The caller is the emp_id claim of the verified token. Admin rights come
  from the caller's designation in the directory, never from the token.

ERROR HANDLING:
  Domain errors map to HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing or unusable identity
  - 403: Not authorized
  - 404: Resource not found
  - 409: Invalid state transition, duplicate idempotency key
  - 422: Insufficient balance
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lavkush9051/attendance-app/attendance"
	"github.com/lavkush9051/attendance-app/employee"
	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/leave"
	"github.com/lavkush9051/attendance-app/regularization"
	"github.com/lavkush9051/attendance-app/shift"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Deps are the services the handlers delegate to.
type Deps struct {
	Leave          *leave.Service
	Regularization *regularization.Service
	Attendance     *attendance.Service
	Recorder       *attendance.Recorder
	Ledger         *generic.BalanceLedger
	Directory      employee.Directory
	Audit          generic.AuditLog
	Clock          generic.Clock
	Location       *time.Location
	Logger         *slog.Logger

	// Ready backs GET /ready; nil always reports ready.
	Ready func(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Deps

	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new handler over the given services.
func NewHandler(d Deps) *Handler {
	if d.Clock == nil {
		d.Clock = generic.SystemClock{Location: d.Location}
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{Deps: d, validate: v, logger: logger.With("component", "api")}
}

var errUnauthenticated = errors.New("unauthenticated")

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// SubmitLeave applies for leave on behalf of the caller.
// POST /api/leave-requests
func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req SubmitLeaveRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, err := parseDateField("start_date", req.StartDate)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	end, err := parseDateField("end_date", req.EndDate)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	created, err := h.Leave.Submit(r.Context(), leave.SubmitInput{
		EmployeeID:    actor,
		LeaveType:     req.LeaveType,
		StartDate:     start,
		EndDate:       end,
		Reason:        req.Reason,
		L1OfficerID:   generic.EntityID(req.L1OfficerID),
		AttachmentRef: req.AttachmentRef,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toLeaveDTO(created))
}

// GetLeave returns one leave request.
// GET /api/leave-requests/{id}
func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	req, err := h.Leave.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := h.requireParty(r.Context(), actor, req.EmployeeID, req.L1OfficerID, req.L2OfficerID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLeaveDTO(req))
}

// DecideLeave records the caller's approve or reject decision.
// POST /api/leave-requests/{id}/decision
func (h *Handler) DecideLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req DecisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	verdict, err := leave.ParseVerdict(req.Action)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	updated, err := h.Leave.Decide(r.Context(), leave.DecideInput{
		RequestID:     chi.URLParam(r, "id"),
		ActorID:       actor,
		Verdict:       verdict,
		Remarks:       req.Remarks,
		NextOfficerID: generic.EntityID(req.NextOfficerID),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLeaveDTO(updated))
}

// CancelLeave withdraws the caller's own request.
// POST /api/leave-requests/{id}/cancel
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	updated, err := h.Leave.Cancel(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLeaveDTO(updated))
}

// ListPendingApprovals returns everything waiting on the caller's decision.
// GET /api/approvals/pending
func (h *Handler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	leaves, err := h.Leave.ListPendingFor(r.Context(), actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	regs, err := h.Regularization.ListPendingFor(r.Context(), actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PendingApprovalsResponse{
		LeaveRequests:   toLeaveDTOs(leaves),
		Regularizations: toRegularizationDTOs(regs),
	})
}

// =============================================================================
// REGULARIZATION HANDLERS
// =============================================================================

// SubmitRegularization asks for a past day to be corrected.
// POST /api/regularizations
func (h *Handler) SubmitRegularization(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req SubmitRegularizationRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := parseDateField("date", req.Date)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	created, err := h.Regularization.Submit(r.Context(), regularization.SubmitInput{
		EmployeeID:  actor,
		Date:        date,
		ClockIn:     req.ClockIn,
		ClockOut:    req.ClockOut,
		Shift:       req.Shift,
		Type:        req.Type,
		Reason:      req.Reason,
		L1OfficerID: generic.EntityID(req.L1OfficerID),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRegularizationDTO(created))
}

// GET /api/regularizations/{id}
func (h *Handler) GetRegularization(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	req, err := h.Regularization.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := h.requireParty(r.Context(), actor, req.EmployeeID, req.L1OfficerID, req.L2OfficerID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRegularizationDTO(req))
}

// POST /api/regularizations/{id}/decision
func (h *Handler) DecideRegularization(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req DecisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	verdict, err := leave.ParseVerdict(req.Action)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	updated, err := h.Regularization.Decide(r.Context(), regularization.DecideInput{
		RequestID:     chi.URLParam(r, "id"),
		ActorID:       actor,
		Approve:       verdict == leave.VerdictApprove,
		Remarks:       req.Remarks,
		NextOfficerID: generic.EntityID(req.NextOfficerID),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRegularizationDTO(updated))
}

// POST /api/regularizations/{id}/cancel
func (h *Handler) CancelRegularization(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	updated, err := h.Regularization.Cancel(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRegularizationDTO(updated))
}

// =============================================================================
// EMPLOYEE VIEWS
// =============================================================================

// GET /api/employees/{id}/leave-requests
func (h *Handler) ListEmployeeLeave(w http.ResponseWriter, r *http.Request) {
	empID, ok := h.selfOrAdmin(w, r)
	if !ok {
		return
	}
	reqs, err := h.Leave.ListByEmployee(r.Context(), empID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLeaveDTOs(reqs))
}

// GET /api/employees/{id}/regularizations
func (h *Handler) ListEmployeeRegularizations(w http.ResponseWriter, r *http.Request) {
	empID, ok := h.selfOrAdmin(w, r)
	if !ok {
		return
	}
	reqs, err := h.Regularization.ListByEmployee(r.Context(), empID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRegularizationDTOs(reqs))
}

// GetBalance returns every leave bucket of the employee.
// GET /api/employees/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	empID, ok := h.selfOrAdmin(w, r)
	if !ok {
		return
	}
	snap, err := h.Ledger.Snapshot(r.Context(), empID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(snap))
}

// SetBalance imports accrued figures for the employee. Admin only.
// PUT /api/employees/{id}/balance
func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	empID, err := pathEntityID(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := h.requireAdmin(r.Context(), actor); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if _, err := h.Directory.Employee(r.Context(), empID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	var req AccrualRequest
	if !h.decode(w, r, &req) {
		return
	}

	entries := make([]generic.AccrualEntry, 0, len(req.Entries))
	payload := make(map[string]any, len(req.Entries))
	for _, e := range req.Entries {
		typ, err := leave.ParseType(e.LeaveType)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		accrued, err := generic.ParseAmount(e.Accrued, generic.UnitDays)
		if err != nil {
			h.writeServiceError(w, generic.NewValidationError("accrued", fmt.Sprintf("invalid amount %q", e.Accrued)))
			return
		}
		entries = append(entries, generic.AccrualEntry{
			Key:            generic.BalanceKey{EntityID: empID, Resource: typ},
			Accrued:        accrued,
			IdempotencyKey: e.IdempotencyKey,
		})
		payload[string(typ)] = accrued.Value.String()
	}

	posting := generic.Posting{ReferenceID: "accrual-import", ActorID: actor, Reason: req.Reason}
	if err := h.Ledger.Accrue(r.Context(), entries, posting); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.audit(r.Context(), generic.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: h.now(),
		ActorID:   actor,
		Action:    generic.AuditAccrualSet,
		EntityID:  empID,
		Payload:   payload,
	})

	snap, err := h.Ledger.Snapshot(r.Context(), empID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(snap))
}

// GetAttendance classifies a month of the employee's attendance.
// GET /api/employees/{id}/attendance?year=&month=
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	empID, ok := h.selfOrAdmin(w, r)
	if !ok {
		return
	}
	now := h.now()
	year, month := now.Year(), now.Month()
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeServiceError(w, generic.NewValidationError("year", "must be a number"))
			return
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeServiceError(w, generic.NewValidationError("month", "must be a number"))
			return
		}
		month = time.Month(n)
	}

	m, err := h.Attendance.ClassifyMonth(r.Context(), empID, year, month)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAttendanceDTO(empID, m))
}

// GetApprover resolves an officer ID for the approver picker.
// GET /api/employees/{id}/approver
func (h *Handler) GetApprover(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	id, err := pathEntityID(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	a, err := h.Directory.LookupApprover(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ApproverDTO{ID: int64(a.ID), Name: a.Name})
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// Clock records the caller's clock in or out at the current time.
// POST /api/attendance/clock
func (h *Handler) Clock(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req ClockRequest
	if !h.decode(w, r, &req) {
		return
	}

	ev, err := h.Recorder.Record(r.Context(), attendance.ClockInput{
		EmployeeID: actor,
		Kind:       attendance.ClockKind(req.Kind),
		FacePassed: req.FacePassed,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		At:         h.now(),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ClockEventDTO{Date: ev.Date, ClockIn: ev.ClockIn, ClockOut: ev.ClockOut})
}

// GetShift returns the shift worked on a date for a week-off day.
// GET /api/shifts?week_off=Sunday&date=2025-07-01
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := generic.DateOf(h.now())
	if v := q.Get("date"); v != "" {
		d, err := parseDateField("date", v)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		date = d
	}

	info, err := shift.Compute(q.Get("week_off"), date)
	if err != nil {
		h.writeServiceError(w, generic.NewValidationError("week_off", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, ShiftDTO{Date: date.String(), Shift: string(info.Shift), Window: info.Window.String()})
}

// Readiness reports whether the backing store answers.
// GET /ready
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Service unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// =============================================================================
// IDENTITY & AUTHORIZATION
// =============================================================================

// currentActor reads the emp_id claim of the verified token.
func currentActor(r *http.Request) (generic.EntityID, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return 0, errUnauthenticated
	}

	var id int64
	switch v := claims["emp_id"].(type) {
	case float64:
		id = int64(v)
	case int64:
		id = v
	case int:
		id = int64(v)
	case json.Number:
		id, err = v.Int64()
	case string:
		id, err = strconv.ParseInt(v, 10, 64)
	default:
		return 0, errUnauthenticated
	}
	if err != nil || id <= 0 {
		return 0, errUnauthenticated
	}
	return generic.EntityID(id), nil
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (generic.EntityID, bool) {
	id, err := currentActor(r)
	if err != nil {
		h.writeServiceError(w, err)
		return 0, false
	}
	return id, true
}

// selfOrAdmin resolves the {id} path parameter and checks the caller may
// view that employee.
func (h *Handler) selfOrAdmin(w http.ResponseWriter, r *http.Request) (generic.EntityID, bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return 0, false
	}
	empID, err := pathEntityID(r)
	if err != nil {
		h.writeServiceError(w, err)
		return 0, false
	}
	if actor != empID {
		if err := h.requireAdmin(r.Context(), actor); err != nil {
			h.writeServiceError(w, err)
			return 0, false
		}
	}
	return empID, true
}

// requireParty allows the applicant, an assigned officer, or an admin.
func (h *Handler) requireParty(ctx context.Context, actor generic.EntityID, parties ...generic.EntityID) error {
	for _, p := range parties {
		if p != 0 && p == actor {
			return nil
		}
	}
	return h.requireAdmin(ctx, actor)
}

func (h *Handler) requireAdmin(ctx context.Context, actor generic.EntityID) error {
	emp, err := h.Directory.Employee(ctx, actor)
	if err != nil && !errors.Is(err, generic.ErrNotFound) {
		return err
	}
	if err != nil || !emp.IsAdmin() {
		return &generic.NotAuthorizedError{ActorID: actor, Reason: "admin designation required"}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func pathEntityID(r *http.Request) (generic.EntityID, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, generic.NewValidationError("id", fmt.Sprintf("invalid employee id %q", raw))
	}
	return generic.EntityID(id), nil
}

func parseDateField(field, value string) (generic.TimePoint, error) {
	d, err := generic.ParseDate(value)
	if err != nil {
		return generic.TimePoint{}, generic.NewValidationError(field, "must be YYYY-MM-DD")
	}
	return d, nil
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Field:   fe.Field(),
				Details: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func (h *Handler) audit(ctx context.Context, e generic.AuditEntry) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Append(ctx, e); err != nil {
		h.logger.Warn("failed to write audit entry", "action", e.Action, "error", err)
	}
}

func (h *Handler) now() time.Time {
	now := h.Deps.Clock.Now()
	if h.Location != nil {
		now = now.In(h.Location)
	}
	return now
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, generic.ErrValidation), errors.Is(err, generic.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, generic.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, generic.ErrInvalidState), errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		return http.StatusConflict
	case errors.Is(err, generic.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, generic.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		writeError(w, status, "Internal server error", nil)
		return
	}

	resp := ErrorResponse{Error: http.StatusText(status), Details: err.Error()}
	var vErr *generic.ValidationError
	if errors.As(err, &vErr) {
		resp.Error = "Validation failed"
		resp.Field = vErr.Field
		resp.Details = vErr.Message
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

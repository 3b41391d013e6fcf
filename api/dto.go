/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator tags for shape checks
  (required, oneof). Date formats and business rules are checked by
  the domain services, which return generic.ValidationError.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/lavkush9051/attendance-app/attendance"
	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/leave"
	"github.com/lavkush9051/attendance-app/regularization"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SubmitLeaveRequest is the body of POST /api/leave-requests.
type SubmitLeaveRequest struct {
	LeaveType     string `json:"leave_type" validate:"required"`
	StartDate     string `json:"start_date" validate:"required"`
	EndDate       string `json:"end_date" validate:"required"`
	Reason        string `json:"reason" validate:"required"`
	L1OfficerID   int64  `json:"l1_officer_id" validate:"required"`
	AttachmentRef string `json:"attachment_ref,omitempty"`
}

// DecisionRequest is the body of the decision endpoints.
type DecisionRequest struct {
	Action        string `json:"action" validate:"required,oneof=approve reject"`
	Remarks       string `json:"remarks,omitempty"`
	NextOfficerID int64  `json:"next_officer_id,omitempty"`
}

// SubmitRegularizationRequest is the body of POST /api/regularizations.
type SubmitRegularizationRequest struct {
	Date        string `json:"date" validate:"required"`
	ClockIn     string `json:"requested_clock_in" validate:"required"`
	ClockOut    string `json:"requested_clock_out,omitempty"`
	Shift       string `json:"shift" validate:"required"`
	Type        string `json:"type" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
	L1OfficerID int64  `json:"l1_officer_id" validate:"required"`
}

// ClockRequest is the body of POST /api/attendance/clock.
type ClockRequest struct {
	Kind       string  `json:"kind" validate:"required,oneof=in out"`
	FacePassed bool    `json:"face_passed"`
	Latitude   float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// AccrualRequest is the body of PUT /api/employees/{id}/balance.
type AccrualRequest struct {
	Entries []AccrualEntryRequest `json:"entries" validate:"required,min=1,dive"`
	Reason  string                `json:"reason,omitempty"`
}

type AccrualEntryRequest struct {
	LeaveType      string `json:"leave_type" validate:"required"`
	Accrued        string `json:"accrued" validate:"required"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type RemarkDTO struct {
	Tier    string `json:"tier"`
	ActorID int64  `json:"actor_id"`
	Action  string `json:"action"`
	Note    string `json:"note,omitempty"`
	At      string `json:"at"`
}

type LeaveRequestDTO struct {
	ID            string      `json:"id"`
	EmployeeID    int64       `json:"emp_id"`
	LeaveType     string      `json:"leave_type"`
	StartDate     string      `json:"start_date"`
	EndDate       string      `json:"end_date"`
	Days          string      `json:"days"`
	Reason        string      `json:"reason"`
	AppliedDate   string      `json:"applied_date"`
	Status        string      `json:"status"`
	L1OfficerID   int64       `json:"l1_officer_id"`
	L2OfficerID   int64       `json:"l2_officer_id,omitempty"`
	Remarks       []RemarkDTO `json:"remarks"`
	AttachmentRef string      `json:"attachment_ref,omitempty"`
	UpdatedAt     string      `json:"updated_at"`
}

type RegularizationDTO struct {
	ID          string      `json:"id"`
	EmployeeID  int64       `json:"emp_id"`
	Date        string      `json:"date"`
	ClockIn     string      `json:"requested_clock_in"`
	ClockOut    string      `json:"requested_clock_out,omitempty"`
	Shift       string      `json:"shift"`
	Type        string      `json:"type"`
	Reason      string      `json:"reason"`
	Status      string      `json:"status"`
	L1OfficerID int64       `json:"l1_officer_id"`
	L2OfficerID int64       `json:"l2_officer_id,omitempty"`
	Remarks     []RemarkDTO `json:"remarks"`
	AppliedAt   string      `json:"applied_at"`
}

// PendingApprovalsResponse lists what waits on the caller.
type PendingApprovalsResponse struct {
	LeaveRequests   []LeaveRequestDTO   `json:"leave_requests"`
	Regularizations []RegularizationDTO `json:"regularizations"`
}

type BucketDTO struct {
	LeaveType string `json:"leave_type"`
	Accrued   string `json:"accrued"`
	Held      string `json:"held"`
	Committed string `json:"committed"`
	Available string `json:"available"`
}

type BalanceDTO struct {
	EmployeeID int64       `json:"emp_id"`
	Buckets    []BucketDTO `json:"buckets"`
}

type DayDTO struct {
	Date      string `json:"date"`
	Weekday   string `json:"weekday"`
	Status    string `json:"status"`
	Shift     string `json:"shift,omitempty"`
	ClockIn   string `json:"clock_in,omitempty"`
	ClockOut  string `json:"clock_out,omitempty"`
	LeaveType string `json:"leave_type,omitempty"`
}

type AttendanceDTO struct {
	EmployeeID int64          `json:"emp_id"`
	Year       int            `json:"year"`
	Month      int            `json:"month"`
	Today      int            `json:"today,omitempty"`
	Days       []DayDTO       `json:"days"`
	Summary    map[string]int `json:"summary"`
}

type ApproverDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ClockEventDTO struct {
	Date     string `json:"date"`
	ClockIn  string `json:"clock_in,omitempty"`
	ClockOut string `json:"clock_out,omitempty"`
}

type ShiftDTO struct {
	Date   string `json:"date"`
	Shift  string `json:"shift"`
	Window string `json:"window,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toRemarkDTOs(remarks []generic.Remark) []RemarkDTO {
	out := make([]RemarkDTO, len(remarks))
	for i, r := range remarks {
		out[i] = RemarkDTO{
			Tier:    string(r.Tier),
			ActorID: int64(r.ActorID),
			Action:  string(r.Action),
			Note:    r.Note,
			At:      r.At.Format(time.RFC3339),
		}
	}
	return out
}

func toLeaveDTO(r leave.Request) LeaveRequestDTO {
	return LeaveRequestDTO{
		ID:            r.ID,
		EmployeeID:    int64(r.EmployeeID),
		LeaveType:     string(r.Type),
		StartDate:     r.Period.Start.String(),
		EndDate:       r.Period.End.String(),
		Days:          r.Days.Value.String(),
		Reason:        r.Reason,
		AppliedDate:   r.AppliedDate.String(),
		Status:        string(r.Status),
		L1OfficerID:   int64(r.L1OfficerID),
		L2OfficerID:   int64(r.L2OfficerID),
		Remarks:       toRemarkDTOs(r.Remarks),
		AttachmentRef: r.AttachmentRef,
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
	}
}

func toLeaveDTOs(reqs []leave.Request) []LeaveRequestDTO {
	out := make([]LeaveRequestDTO, len(reqs))
	for i, r := range reqs {
		out[i] = toLeaveDTO(r)
	}
	return out
}

func toRegularizationDTO(r regularization.Request) RegularizationDTO {
	dto := RegularizationDTO{
		ID:          r.ID,
		EmployeeID:  int64(r.EmployeeID),
		Date:        r.Date.String(),
		ClockIn:     r.ClockIn.String(),
		Shift:       string(r.Shift),
		Type:        string(r.Type),
		Reason:      r.Reason,
		Status:      string(r.Status),
		L1OfficerID: int64(r.L1OfficerID),
		L2OfficerID: int64(r.L2OfficerID),
		Remarks:     toRemarkDTOs(r.Remarks),
		AppliedAt:   r.AppliedAt.Format(time.RFC3339),
	}
	if r.ClockOut != nil {
		dto.ClockOut = r.ClockOut.String()
	}
	return dto
}

func toRegularizationDTOs(reqs []regularization.Request) []RegularizationDTO {
	out := make([]RegularizationDTO, len(reqs))
	for i, r := range reqs {
		out[i] = toRegularizationDTO(r)
	}
	return out
}

// toBalanceDTO lists every leave type in display order, zero when the
// bucket has no transactions yet.
func toBalanceDTO(snap generic.BalanceSnapshot) BalanceDTO {
	dto := BalanceDTO{EmployeeID: int64(snap.EntityID), Buckets: make([]BucketDTO, 0, len(leave.AllTypes))}
	zero := generic.ZeroDays().Value.String()
	for _, t := range leave.AllTypes {
		b, ok := snap.Buckets[t.ResourceID()]
		if !ok {
			dto.Buckets = append(dto.Buckets, BucketDTO{
				LeaveType: string(t), Accrued: zero, Held: zero, Committed: zero, Available: zero,
			})
			continue
		}
		dto.Buckets = append(dto.Buckets, BucketDTO{
			LeaveType: string(t),
			Accrued:   b.Accrued.Value.String(),
			Held:      b.Held.Value.String(),
			Committed: b.Committed.Value.String(),
			Available: b.Available.Value.String(),
		})
	}
	return dto
}

func toAttendanceDTO(empID generic.EntityID, m attendance.Month) AttendanceDTO {
	rows := attendance.Rows(m)
	dto := AttendanceDTO{
		EmployeeID: int64(empID),
		Year:       m.Year,
		Month:      int(m.Month),
		Today:      m.Today,
		Days:       make([]DayDTO, len(rows)),
		Summary: map[string]int{
			string(attendance.StatusPresent): m.Count(attendance.StatusPresent),
			string(attendance.StatusAbsent):  m.Count(attendance.StatusAbsent),
			string(attendance.StatusLeave):   m.Count(attendance.StatusLeave),
			string(attendance.StatusHoliday): m.Count(attendance.StatusHoliday),
		},
	}
	for i, r := range rows {
		dto.Days[i] = DayDTO{
			Date:      r.Date,
			Weekday:   r.Weekday,
			Status:    string(r.Status),
			Shift:     string(r.Shift),
			ClockIn:   r.ClockIn,
			ClockOut:  r.ClockOut,
			LeaveType: r.LeaveType,
		}
	}
	return dto
}

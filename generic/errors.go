/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context; the HTTP
  layer maps them to status codes with errors.Is.

ERROR CATEGORIES:
  1. Validation errors - Malformed input, missing officer, date rules
  2. Balance errors - Holds that would overdraw a bucket
  3. State errors - Illegal or duplicate transitions
  4. Authorization errors - Actor is not the assigned approver/applicant
  5. Store errors - Missing rows, duplicate idempotency keys

USAGE:
  if errors.Is(err, generic.ErrInsufficientBalance) {
      // refuse the submission, surface the error
  }

  var stateErr *generic.InvalidStateError
  if errors.As(err, &stateErr) {
      log.Printf("stale action %s on %s", stateErr.Action, stateErr.From)
  }

SEE ALSO:
  - ledger.go: InsufficientBalanceError
  - workflow.go: InvalidStateError
  - api/handlers.go: HTTP status mapping
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or missing input and date-rule violations.
	ErrValidation = errors.New("validation error")

	// ErrInvalidArgument is returned by pure calculators for out-of-domain input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientBalance is returned when a hold exceeds the available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidState is returned for illegal transitions, including duplicates
	// of a transition that already happened.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotAuthorized is returned when the actor may not perform the action.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotFound is returned when a referenced row doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateIdempotencyKey is returned when a transaction with the same
	// idempotency key already exists.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	Key       BalanceKey
	Available Amount
	Requested Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: available %v, requested %v",
		e.Key.Resource.ResourceID(), e.Available.Value, e.Requested.Value)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InvalidStateError reports a transition the table doesn't allow.
type InvalidStateError struct {
	From   State
	Action Action
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s a request in state %s", e.Action, e.From)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// NotAuthorizedError reports who acted and who was expected to.
type NotAuthorizedError struct {
	ActorID  EntityID
	Expected EntityID
	Reason   string
}

func (e *NotAuthorizedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("actor %s not authorized: %s", e.ActorID, e.Reason)
	}
	return fmt.Sprintf("actor %s not authorized: expected %s", e.ActorID, e.Expected)
}

func (e *NotAuthorizedError) Unwrap() error { return ErrNotAuthorized }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the caller's input or a
// stale action, never a server fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrNotAuthorized) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

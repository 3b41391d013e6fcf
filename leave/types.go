/*
Package leave implements leave requests on top of the generic engine.

PURPOSE:
  Leave types are ledger resources; a leave request moves through the
  generic transition table and every transition applies its ledger
  effect (hold on submit, commit on approval, release or uncommit on
  rejection and cancellation).

LEAVE TYPES:
  Casual Leave, Earned Leave, Half Pay Leave, Commuted Leave,
  Compensatory Off, Optional Holiday, Medical Leave.

  Labels are normalized before they reach the ledger. Anything that
  mentions "Commuted" is Commuted Leave, including "Commuted Leave
  (Half Pay)", so one balance is never split across label variants.

POLICY TABLE:
  Per-type rules live in one table:
    Backdatable:            may start in the past (inside the window)
    DecisionCutoffExempt:   may be decided on or after the start date

SEE ALSO:
  - service.go: Submit / Decide / Cancel
  - generic/workflow.go: Transition table
*/
package leave

import (
	"fmt"
	"strings"

	"github.com/lavkush9051/attendance-app/generic"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

type Type string

const (
	TypeCasual   Type = "Casual Leave"
	TypeEarned   Type = "Earned Leave"
	TypeHalfPay  Type = "Half Pay Leave"
	TypeCommuted Type = "Commuted Leave"
	TypeCompOff  Type = "Compensatory Off"
	TypeOptional Type = "Optional Holiday"
	TypeMedical  Type = "Medical Leave"
)

// Domain is the ledger domain of leave buckets.
const Domain = "leave"

func (t Type) ResourceID() string     { return string(t) }
func (t Type) ResourceDomain() string { return Domain }
func (t Type) String() string         { return string(t) }

// AllTypes lists every leave type in display order.
var AllTypes = []Type{
	TypeCasual, TypeEarned, TypeHalfPay, TypeCommuted, TypeCompOff, TypeOptional, TypeMedical,
}

func init() {
	for _, t := range AllTypes {
		generic.RegisterResource(t)
	}
}

// ParseType maps a free-form label to its leave type. Matching is
// case-insensitive and tolerant of "-", "_" and a missing "Leave" suffix.
func ParseType(label string) (Type, error) {
	s := strings.ToLower(label)
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")

	switch {
	case strings.Contains(s, "commuted"):
		return TypeCommuted, nil
	case strings.Contains(s, "half pay"), strings.Contains(s, "halfpay"):
		return TypeHalfPay, nil
	case strings.Contains(s, "casual"):
		return TypeCasual, nil
	case strings.Contains(s, "earned"):
		return TypeEarned, nil
	case strings.Contains(s, "compensatory"), strings.Contains(s, "comp off"):
		return TypeCompOff, nil
	case strings.Contains(s, "optional"):
		return TypeOptional, nil
	case strings.Contains(s, "medical"):
		return TypeMedical, nil
	}
	return "", generic.NewValidationError("leave_type", fmt.Sprintf("unknown leave type %q", label))
}

// =============================================================================
// POLICY TABLE
// =============================================================================

type Policy struct {
	Backdatable          bool
	DecisionCutoffExempt bool
}

var policies = map[Type]Policy{
	TypeCasual:   {Backdatable: true},
	TypeEarned:   {Backdatable: true},
	TypeHalfPay:  {Backdatable: true},
	TypeCommuted: {Backdatable: true},
	TypeCompOff:  {},
	TypeOptional: {},
	TypeMedical:  {DecisionCutoffExempt: true},
}

// PolicyFor returns the rules of a leave type.
func PolicyFor(t Type) Policy {
	return policies[t]
}

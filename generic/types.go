/*
Package generic provides the core accounting and workflow engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms shared by the
  leave and regularization domains: day quantities, the append-only
  transaction log behind the balance ledger, the request state machine
  and the error taxonomy.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 3 days)
  - Transaction: An immutable ledger entry recording a bucket change
  - EntityID / ResourceType: Type-safe ledger keys

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified, only compensated
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing employee/request IDs
  4. Auditability: Every transaction has reason, reference and actor

USAGE:
  tx := generic.Transaction{
      EntityID:     1042,
      ResourceType: leave.TypeCasual,
      Delta:        generic.Days(2),
      Type:         generic.TxHold,
  }

SEE ALSO:
  - balance.go: Bucket totals derived from transactions
  - ledger.go: Hold / Release / Commit / Uncommit
  - workflow.go: Transition table for requests
*/
package generic

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays  Unit = "days"
	UnitHours Unit = "hours"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// Days is shorthand for a whole number of days.
func Days(n int) Amount { return NewAmountFromInt(n, UnitDays) }

// ZeroDays is an empty day quantity.
func ZeroDays() Amount { return Amount{Value: decimal.Zero, Unit: UnitDays} }

func ParseAmount(value string, unit Unit) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: d, Unit: unit}, nil
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) String() string               { return a.Value.String() + " " + string(a.Unit) }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// FloorZero clamps negative amounts to zero.
func (a Amount) FloorZero() Amount {
	if a.IsNegative() {
		return a.Zero()
	}
	return a
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EntityID identifies the owner of a balance (an employee).
type EntityID int64

func (id EntityID) String() string { return strconv.FormatInt(int64(id), 10) }

type TransactionID string

// ResourceType identifies which balance bucket is being tracked.
// Domain packages define their own concrete types:
//
//	// In leave/types.go
//	type Type string
//	func (t Type) ResourceID() string     { return string(t) }
//	func (t Type) ResourceDomain() string { return "leave" }
type ResourceType interface {
	// ResourceID returns the unique identifier for this resource type.
	ResourceID() string

	// ResourceDomain returns which domain this resource belongs to.
	ResourceDomain() string
}

// BalanceKey addresses a single ledger bucket.
type BalanceKey struct {
	EntityID EntityID
	Resource ResourceType
}

func (k BalanceKey) String() string {
	return k.EntityID.String() + "/" + k.Resource.ResourceID()
}

// =============================================================================
// TRANSACTION - Atomic change to a balance bucket
// =============================================================================

type TransactionType string

const (
	TxAccrual  TransactionType = "accrual"  // accrued += delta (signed, set by HR/payroll)
	TxHold     TransactionType = "hold"     // held += delta
	TxRelease  TransactionType = "release"  // held -= delta
	TxCommit   TransactionType = "commit"   // held -= delta, committed += delta
	TxUncommit TransactionType = "uncommit" // committed -= delta
)

// Transaction is one immutable ledger row. Delta is always the amount that
// was actually applied, so replaying the log reproduces the counters
// exactly even when an operation was floored.
type Transaction struct {
	ID             TransactionID
	EntityID       EntityID
	ResourceType   ResourceType
	Type           TransactionType
	Delta          Amount
	ReferenceID    string
	Reason         string
	IdempotencyKey string

	// Audit fields
	CreatedBy string
	CreatedAt time.Time
}

func (tx Transaction) Key() BalanceKey {
	return BalanceKey{EntityID: tx.EntityID, Resource: tx.ResourceType}
}

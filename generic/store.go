/*
store.go - Persistence interface for ledger transactions and audit entries

PURPOSE:
  Defines the interface between the ledger and the database. The Store
  handles persistence while maintaining append-only semantics. Different
  implementations use SQLite or in-memory storage.

KEY INTERFACES:
  Store:    Transaction persistence (append, load, exists)
  AuditLog: Who did what when, also append-only

APPEND-ONLY CONTRACT:
  - Append(): Single transaction write
  - AppendBatch(): Atomic multi-transaction write
  - NO Update() or Delete() methods exist

IDEMPOTENCY:
  A write may carry an idempotency key. If the key already exists the
  write is rejected with ErrDuplicateIdempotencyKey, so a replayed
  accrual import is never counted twice.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: BalanceLedger built on Store
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Interface for transaction persistence (append-only)
// =============================================================================

// Store handles persistence of transactions.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// Append persists a transaction. Returns error if idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch persists multiple transactions atomically.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Load returns all transactions of one bucket in insertion order.
	Load(ctx context.Context, key BalanceKey) ([]Transaction, error)

	// LoadByEntity returns all transactions of an entity across buckets.
	LoadByEntity(ctx context.Context, entityID EntityID) ([]Transaction, error)

	// Exists checks if idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// AUDIT LOG - Separate from ledger, tracks who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	ActorID   EntityID
	Action    AuditAction
	EntityID  EntityID // whose request
	Subject   string   // request ID
	Payload   map[string]any
}

type AuditAction string

const (
	AuditRequestSubmitted AuditAction = "request_submitted"
	AuditRequestEscalated AuditAction = "request_escalated"
	AuditRequestApproved  AuditAction = "request_approved"
	AuditRequestRejected  AuditAction = "request_rejected"
	AuditRequestCancelled AuditAction = "request_cancelled"
	AuditAccrualSet       AuditAction = "accrual_set"
)

// AuditLog stores audit entries. Also append-only.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	EntityID *EntityID
	ActorID  *EntityID
	Subject  string
	Actions  []AuditAction
}

// Matches reports whether the entry passes the filter.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.EntityID != nil && e.EntityID != *f.EntityID {
		return false
	}
	if f.ActorID != nil && e.ActorID != *f.ActorID {
		return false
	}
	if f.Subject != "" && e.Subject != f.Subject {
		return false
	}
	if len(f.Actions) > 0 {
		for _, a := range f.Actions {
			if a == e.Action {
				return true
			}
		}
		return false
	}
	return true
}

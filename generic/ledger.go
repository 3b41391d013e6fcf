/*
ledger.go - Balance ledger over an append-only transaction log

PURPOSE:
  The BalanceLedger is the single writer of leave balances. Every hold,
  release, commit, uncommit and accrual change is recorded as a
  transaction; counters are always the replay of the log.

OPERATIONS:
  Hold(key, days):     held += days        requires available >= days
  Release(key, days):  held -= days        floored at 0
  Commit(key, days):   held -= days, committed += days    (one row)
  Uncommit(key, days): committed -= days   floored at 0
  SetAccrued / Accrue: external HR/payroll sets the accrued figure
  Snapshot(entity):    read-only view of every bucket

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. held >= 0 and committed >= 0 after every operation.
  3. Hold never lets held + committed exceed accrued.
  4. Commit is a single transaction, so no reader ever sees the days
     counted in both held and committed.

CONCURRENCY:
  All mutations of one (entity, resource) bucket are serialized by a
  KeyedMutex, so two concurrent holds cannot both pass the balance check.

CORRECTIONS:
  Reverse() appends the same transaction type with the opposite sign.
  Request services use it to compensate a posting whose request update
  failed to persist.

SEE ALSO:
  - balance.go: Replay rules
  - store.go: Persistence interface
*/
package generic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// BALANCE LEDGER
// =============================================================================

type BalanceLedger struct {
	Store Store
	Clock Clock

	locks KeyedMutex
}

func NewBalanceLedger(store Store, clock Clock) *BalanceLedger {
	if clock == nil {
		clock = SystemClock{}
	}
	return &BalanceLedger{Store: store, Clock: clock}
}

// Posting describes who moved days and why.
type Posting struct {
	ReferenceID string
	ActorID     EntityID
	Reason      string
}

// Balance returns the counters of one bucket.
func (l *BalanceLedger) Balance(ctx context.Context, key BalanceKey) (Balance, error) {
	txs, err := l.Store.Load(ctx, key)
	if err != nil {
		return Balance{}, fmt.Errorf("failed to load ledger %s: %w", key, err)
	}
	return Tally(key, txs), nil
}

// Snapshot returns every bucket of the entity.
func (l *BalanceLedger) Snapshot(ctx context.Context, entityID EntityID) (BalanceSnapshot, error) {
	txs, err := l.Store.LoadByEntity(ctx, entityID)
	if err != nil {
		return BalanceSnapshot{}, fmt.Errorf("failed to load ledger for %s: %w", entityID, err)
	}

	balances := make(map[string]Balance)
	for _, tx := range txs {
		id := tx.ResourceType.ResourceID()
		b, ok := balances[id]
		if !ok {
			b = EmptyBalance(tx.Key())
		}
		balances[id] = b.Apply(tx)
	}

	snap := BalanceSnapshot{EntityID: entityID, Buckets: make(map[string]BucketView, len(balances))}
	for id, b := range balances {
		snap.Buckets[id] = b.View()
	}
	return snap, nil
}

// Hold reserves days for a not-yet-decided request.
func (l *BalanceLedger) Hold(ctx context.Context, key BalanceKey, days Amount, p Posting) (Transaction, error) {
	if err := requirePositive(days); err != nil {
		return Transaction{}, err
	}
	unlock := l.locks.Lock(key.String())
	defer unlock()

	b, err := l.Balance(ctx, key)
	if err != nil {
		return Transaction{}, err
	}
	if !b.CanHold(days) {
		return Transaction{}, &InsufficientBalanceError{Key: key, Available: b.Available(), Requested: days}
	}
	return l.append(ctx, key, TxHold, days, p)
}

// Release returns held days, floored at zero.
func (l *BalanceLedger) Release(ctx context.Context, key BalanceKey, days Amount, p Posting) (Transaction, error) {
	if err := requirePositive(days); err != nil {
		return Transaction{}, err
	}
	unlock := l.locks.Lock(key.String())
	defer unlock()

	b, err := l.Balance(ctx, key)
	if err != nil {
		return Transaction{}, err
	}
	return l.append(ctx, key, TxRelease, days.Min(b.Held).FloorZero(), p)
}

// Commit converts held days into committed days in one transaction.
func (l *BalanceLedger) Commit(ctx context.Context, key BalanceKey, days Amount, p Posting) (Transaction, error) {
	if err := requirePositive(days); err != nil {
		return Transaction{}, err
	}
	unlock := l.locks.Lock(key.String())
	defer unlock()

	b, err := l.Balance(ctx, key)
	if err != nil {
		return Transaction{}, err
	}
	if days.GreaterThan(b.Held) {
		return Transaction{}, fmt.Errorf("commit of %v exceeds held %v for %s: %w",
			days.Value, b.Held.Value, key, ErrInvalidState)
	}
	return l.append(ctx, key, TxCommit, days, p)
}

// Uncommit returns committed days, floored at zero.
func (l *BalanceLedger) Uncommit(ctx context.Context, key BalanceKey, days Amount, p Posting) (Transaction, error) {
	if err := requirePositive(days); err != nil {
		return Transaction{}, err
	}
	unlock := l.locks.Lock(key.String())
	defer unlock()

	b, err := l.Balance(ctx, key)
	if err != nil {
		return Transaction{}, err
	}
	return l.append(ctx, key, TxUncommit, days.Min(b.Committed).FloorZero(), p)
}

// Reverse appends the opposite of tx without balance checks.
func (l *BalanceLedger) Reverse(ctx context.Context, tx Transaction, p Posting) error {
	if tx.Delta.IsZero() {
		return nil
	}
	unlock := l.locks.Lock(tx.Key().String())
	defer unlock()

	if p.Reason == "" {
		p.Reason = "reversal of " + string(tx.ID)
	}
	_, err := l.append(ctx, tx.Key(), tx.Type, tx.Delta.Neg(), p)
	return err
}

// =============================================================================
// ACCRUALS - Written by the external HR/payroll process
// =============================================================================

// AccrualEntry sets the accrued figure of one bucket.
type AccrualEntry struct {
	Key            BalanceKey
	Accrued        Amount
	IdempotencyKey string
}

// SetAccrued sets the accrued figure of one bucket.
func (l *BalanceLedger) SetAccrued(ctx context.Context, key BalanceKey, accrued Amount, p Posting) error {
	return l.Accrue(ctx, []AccrualEntry{{Key: key, Accrued: accrued}}, p)
}

// Accrue applies several accrual entries atomically. Buckets are locked in
// key order so concurrent imports cannot deadlock.
func (l *BalanceLedger) Accrue(ctx context.Context, entries []AccrualEntry, p Posting) error {
	keys := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Accrued.IsNegative() {
			return NewValidationError("accrued", "must not be negative")
		}
		k := e.Key.String()
		if seen[k] {
			return NewValidationError("accrued", "duplicate bucket "+k)
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		unlock := l.locks.Lock(k)
		defer unlock()
	}

	// A replayed import key is rejected even when its figures are unchanged.
	for _, e := range entries {
		if e.IdempotencyKey == "" {
			continue
		}
		exists, err := l.Store.Exists(ctx, e.IdempotencyKey)
		if err != nil {
			return fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if exists {
			return fmt.Errorf("idempotency key %q: %w", e.IdempotencyKey, ErrDuplicateIdempotencyKey)
		}
	}

	var txs []Transaction
	for _, e := range entries {
		b, err := l.Balance(ctx, e.Key)
		if err != nil {
			return err
		}
		delta := e.Accrued.Sub(b.Accrued)
		if delta.IsZero() {
			continue
		}
		tx := l.newTx(e.Key, TxAccrual, delta, p)
		tx.IdempotencyKey = e.IdempotencyKey
		txs = append(txs, tx)
	}
	if len(txs) == 0 {
		return nil
	}
	if err := l.Store.AppendBatch(ctx, txs); err != nil {
		return fmt.Errorf("failed to record accruals: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (l *BalanceLedger) append(ctx context.Context, key BalanceKey, typ TransactionType, delta Amount, p Posting) (Transaction, error) {
	tx := l.newTx(key, typ, delta, p)
	if err := l.Store.Append(ctx, tx); err != nil {
		return Transaction{}, fmt.Errorf("failed to record %s: %w", typ, err)
	}
	return tx, nil
}

func (l *BalanceLedger) newTx(key BalanceKey, typ TransactionType, delta Amount, p Posting) Transaction {
	return Transaction{
		ID:           TransactionID(uuid.NewString()),
		EntityID:     key.EntityID,
		ResourceType: key.Resource,
		Type:         typ,
		Delta:        delta,
		ReferenceID:  p.ReferenceID,
		Reason:       p.Reason,
		CreatedBy:    p.ActorID.String(),
		CreatedAt:    l.Clock.Now().UTC().Truncate(time.Second),
	}
}

func requirePositive(days Amount) error {
	if !days.IsPositive() {
		return NewValidationError("days", "must be positive")
	}
	return nil
}

/*
balance.go - Bucket totals derived from the transaction log

PURPOSE:
  Computes accrued / held / committed for one ledger bucket by replaying
  its transactions. There is no separate balance row that could drift
  from the log.

BALANCE COMPONENTS:
  Accrued:   Set by the external HR/payroll process (TxAccrual)
  Held:      Days of pending or first-level-approved requests
  Committed: Days of approved requests

AVAILABILITY:
  Available()        = Accrued - Held - Committed   (may be negative after
                       a downward accrual correction)
  DisplayAvailable() = max(0, Available())          (presentation only)

SEE ALSO:
  - ledger.go: The only writer of these transactions
*/
package generic

// =============================================================================
// BALANCE - Counters of one bucket
// =============================================================================

type Balance struct {
	Key       BalanceKey
	Accrued   Amount
	Held      Amount
	Committed Amount
}

// EmptyBalance returns a zero balance for key.
func EmptyBalance(key BalanceKey) Balance {
	return Balance{Key: key, Accrued: ZeroDays(), Held: ZeroDays(), Committed: ZeroDays()}
}

// Available is the raw, unclamped figure.
func (b Balance) Available() Amount {
	return b.Accrued.Sub(b.Held).Sub(b.Committed)
}

// DisplayAvailable is never negative.
func (b Balance) DisplayAvailable() Amount {
	return b.Available().FloorZero()
}

// CanHold checks whether days can be reserved without overdrawing.
func (b Balance) CanHold(days Amount) bool {
	return !b.Available().Sub(days).IsNegative()
}

// Apply folds one transaction into the counters.
func (b Balance) Apply(tx Transaction) Balance {
	switch tx.Type {
	case TxAccrual:
		b.Accrued = b.Accrued.Add(tx.Delta)
	case TxHold:
		b.Held = b.Held.Add(tx.Delta)
	case TxRelease:
		b.Held = b.Held.Sub(tx.Delta)
	case TxCommit:
		b.Held = b.Held.Sub(tx.Delta)
		b.Committed = b.Committed.Add(tx.Delta)
	case TxUncommit:
		b.Committed = b.Committed.Sub(tx.Delta)
	}
	return b
}

// Tally replays txs for key.
func Tally(key BalanceKey, txs []Transaction) Balance {
	b := EmptyBalance(key)
	for _, tx := range txs {
		b = b.Apply(tx)
	}
	return b
}

// =============================================================================
// SNAPSHOT - What the employee sees
// =============================================================================

// BucketView is the display form of one bucket.
type BucketView struct {
	Resource  ResourceType
	Accrued   Amount
	Held      Amount
	Committed Amount
	Available Amount // clamped at zero
}

// BalanceSnapshot is a read-only view of every bucket of an entity.
type BalanceSnapshot struct {
	EntityID EntityID
	Buckets  map[string]BucketView // keyed by ResourceID
}

func (b Balance) View() BucketView {
	return BucketView{
		Resource:  b.Key.Resource,
		Accrued:   b.Accrued,
		Held:      b.Held,
		Committed: b.Committed,
		Available: b.DisplayAvailable(),
	}
}

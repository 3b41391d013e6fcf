// Package store provides in-memory Store and AuditLog implementations.
package store

import (
	"context"
	"sync"

	"github.com/lavkush9051/attendance-app/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions map[string][]generic.Transaction // keyed by BalanceKey.String()
	byEntity     map[generic.EntityID][]generic.Transaction
	idempotency  map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[string][]generic.Transaction),
		byEntity:     make(map[generic.EntityID][]generic.Transaction),
		idempotency:  make(map[string]bool),
	}
}

// Append adds a single transaction. Append-only.
func (m *Memory) Append(_ context.Context, tx generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.IdempotencyKey != "" && m.idempotency[tx.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}
	m.appendLocked(tx)
	return nil
}

// AppendBatch adds multiple transactions atomically.
func (m *Memory) AppendBatch(_ context.Context, txs []generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all idempotency keys first, including within the batch
	seen := make(map[string]bool)
	for _, tx := range txs {
		if tx.IdempotencyKey == "" {
			continue
		}
		if m.idempotency[tx.IdempotencyKey] || seen[tx.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		seen[tx.IdempotencyKey] = true
	}

	for _, tx := range txs {
		m.appendLocked(tx)
	}
	return nil
}

func (m *Memory) appendLocked(tx generic.Transaction) {
	k := tx.Key().String()
	m.transactions[k] = append(m.transactions[k], tx)
	m.byEntity[tx.EntityID] = append(m.byEntity[tx.EntityID], tx)
	if tx.IdempotencyKey != "" {
		m.idempotency[tx.IdempotencyKey] = true
	}
}

func (m *Memory) Load(_ context.Context, key generic.BalanceKey) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txs := m.transactions[key.String()]
	result := make([]generic.Transaction, len(txs))
	copy(result, txs)
	return result, nil
}

func (m *Memory) LoadByEntity(_ context.Context, entityID generic.EntityID) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txs := m.byEntity[entityID]
	result := make([]generic.Transaction, len(txs))
	copy(result, txs)
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// =============================================================================
// MEMORY AUDIT LOG
// =============================================================================

type MemoryAudit struct {
	mu      sync.RWMutex
	entries []generic.AuditEntry
}

func NewMemoryAudit() *MemoryAudit {
	return &MemoryAudit{}
}

func (a *MemoryAudit) Append(_ context.Context, entry generic.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *MemoryAudit) Query(_ context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []generic.AuditEntry
	for _, e := range a.entries {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

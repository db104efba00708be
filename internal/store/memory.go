package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tally-dev/tally/internal/model"
)

// Memory is an in-memory Store. It backs dry-run imports and tests.
type Memory struct {
	mu   sync.Mutex
	rows map[string][]model.Transaction // keyed by user id
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rows: make(map[string][]model.Transaction)}
}

// Begin opens a buffered transaction over the in-memory state.
func (m *Memory) Begin(_ context.Context) (Tx, error) {
	return &memTx{store: m}, nil
}

// Transactions returns a copy of the persisted rows for a user.
func (m *Memory) Transactions(userID string) []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Transaction, len(m.rows[userID]))
	copy(out, m.rows[userID])
	return out
}

type memTx struct {
	store   *Memory
	pending map[string][]model.Transaction
	done    bool
}

func (t *memTx) ExistingFingerprints(_ context.Context, userID string, from, to time.Time) (map[string]struct{}, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	fps := make(map[string]struct{})
	for _, txn := range t.store.rows[userID] {
		if txn.TransactionDate.Before(from) || txn.TransactionDate.After(to) {
			continue
		}
		fps[txn.Fingerprint] = struct{}{}
	}
	return fps, nil
}

func (t *memTx) InsertTransactions(_ context.Context, userID string, txns []model.Transaction) (int, error) {
	if t.pending == nil {
		t.pending = make(map[string][]model.Transaction)
	}
	for _, txn := range txns {
		txn.ID = uuid.NewString()
		t.pending[userID] = append(t.pending[userID], txn)
	}
	return len(txns), nil
}

func (t *memTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for userID, txns := range t.pending {
		t.store.rows[userID] = append(t.store.rows[userID], txns...)
	}
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	t.pending = nil
	return nil
}

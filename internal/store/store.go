// Package store defines durable transaction persistence for the ingestion
// pipeline.
package store

import (
	"context"
	"time"

	"github.com/tally-dev/tally/internal/model"
)

// Store opens transactional import scopes.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one transactional import scope. The dedup existence check and the
// batch insert run inside the same Tx, so concurrent uploads of the same
// statement cannot both pass dedup and both commit. The uniqueness
// constraint on (user, fingerprint) backs this up.
type Tx interface {
	// ExistingFingerprints returns the fingerprints already persisted for
	// the user with transaction dates in [from, to].
	ExistingFingerprints(ctx context.Context, userID string, from, to time.Time) (map[string]struct{}, error)

	// InsertTransactions persists all candidates and returns the count
	// actually written. On error nothing is visible after Rollback.
	InsertTransactions(ctx context.Context, userID string, txns []model.Transaction) (int, error)

	Commit() error
	Rollback() error
}

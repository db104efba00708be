// Package dedup computes stable transaction fingerprints and filters
// candidates that already exist for a user.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/tally-dev/tally/internal/model"
)

// Fingerprint returns the stable dedup key for a candidate. It is derived
// from a canonical ordering of the identity-relevant fields, so the same
// real-world charge always produces the same key. The assigned month keeps
// installment and halves children of one purchase distinct from each other.
func Fingerprint(t model.Transaction) string {
	parts := []string{
		"date:" + t.TransactionDate.Format("2006-01-02"),
		"amount:" + t.Amount.StringFixed(2),
		"merchant:" + canonicalMerchant(t.MerchantName),
		"card:" + t.CardNumber,
		"ref:" + strings.TrimSpace(t.ReferenceNumber),
		"source:" + strings.ToLower(t.Source),
		"month:" + t.AssignedMonthDate.Format("2006-01"),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func canonicalMerchant(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Engine filters duplicate candidates against the store's known
// fingerprints and within the current batch. First occurrence wins.
type Engine struct {
	existing map[string]struct{}
	seen     map[string]struct{}
}

// NewEngine creates an Engine seeded with the fingerprints already persisted
// for the user in the relevant date range.
func NewEngine(existing map[string]struct{}) *Engine {
	if existing == nil {
		existing = make(map[string]struct{})
	}
	return &Engine{
		existing: existing,
		seen:     make(map[string]struct{}),
	}
}

// IsDuplicate reports whether the fingerprint was already persisted or
// already seen earlier in this batch, and records it either way.
func (e *Engine) IsDuplicate(fp string) bool {
	if _, ok := e.existing[fp]; ok {
		return true
	}
	if _, ok := e.seen[fp]; ok {
		return true
	}
	e.seen[fp] = struct{}{}
	return false
}

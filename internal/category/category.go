// Package category resolves merchant text to category ids.
package category

import (
	"context"
	"strings"
	"sync"

	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/model"
)

// Resolver maps merchant text and transaction type to a category id.
// An empty id with a nil error means uncategorized.
type Resolver interface {
	Resolve(ctx context.Context, merchant string, txType model.TxType) (string, error)
}

// RuleResolver resolves categories from keyword rules with per-type
// fallbacks. Rules match case-insensitively as substrings, first rule wins.
type RuleResolver struct {
	rules    []config.CategoryRule
	fallback map[model.TxType]string
}

// NewRuleResolver creates a RuleResolver from configuration.
func NewRuleResolver(cfg config.CategoriesConfig) *RuleResolver {
	return &RuleResolver{
		rules: cfg.Rules,
		fallback: map[model.TxType]string{
			model.TypeExpense: cfg.FallbackExpense,
			model.TypeIncome:  cfg.FallbackIncome,
		},
	}
}

// Resolve returns the category id for a merchant, or the type fallback.
func (r *RuleResolver) Resolve(_ context.Context, merchant string, txType model.TxType) (string, error) {
	m := strings.ToLower(merchant)
	for _, rule := range r.rules {
		if rule.Type != "" && rule.Type != string(txType) {
			continue
		}
		if strings.Contains(m, strings.ToLower(rule.Keyword)) {
			return rule.CategoryID, nil
		}
	}
	return r.fallback[txType], nil
}

// Cached is a read-through cache around a Resolver, scoped to one batch so
// repeated merchants in a statement hit the inner resolver once. It is not a
// process-wide singleton: each upload gets its own instance.
type Cached struct {
	inner Resolver

	mu  sync.Mutex
	ids map[cacheKey]string
}

type cacheKey struct {
	merchant string
	txType   model.TxType
}

// NewCached wraps a Resolver with a batch-scoped cache.
func NewCached(inner Resolver) *Cached {
	return &Cached{inner: inner, ids: make(map[cacheKey]string)}
}

// Resolve returns the cached category id, consulting the inner resolver on
// first sight of a merchant/type pair.
func (c *Cached) Resolve(ctx context.Context, merchant string, txType model.TxType) (string, error) {
	key := cacheKey{merchant: strings.ToLower(merchant), txType: txType}

	c.mu.Lock()
	if id, ok := c.ids[key]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	id, err := c.inner.Resolve(ctx, merchant, txType)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.ids[key] = id
	c.mu.Unlock()
	return id, nil
}

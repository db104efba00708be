// Package split expands installment purchases and halved charges into
// per-period transaction candidates.
package split

import (
	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/period"
)

var two = decimal.NewFromInt(2)

// Expand applies the installment and halves rules to a candidate. The result
// is one or more candidates whose amounts sum exactly to the original.
// A candidate flagged for both rules is model.ErrConflictingSplitRule.
func Expand(t model.Transaction) ([]model.Transaction, error) {
	if t.Installments > 1 && t.IsHalves {
		return nil, model.ErrConflictingSplitRule
	}
	if t.IsHalves {
		return halve(t), nil
	}
	// InstallmentIndex > 0 means expansion already happened; never re-expand.
	if t.Installments > 1 && t.InstallmentIndex == 0 {
		return installments(t), nil
	}
	return []model.Transaction{t}, nil
}

// installments splits the amount into N consecutive monthly charges. Each
// child gets the integer-cent share; the remainder from non-exact division
// goes to the first child so the sum stays exact.
func installments(t model.Transaction) []model.Transaction {
	n := t.Installments
	share := t.Amount.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	first := t.Amount.Sub(share.Mul(decimal.NewFromInt(int64(n - 1))))

	children := make([]model.Transaction, n)
	for i := 0; i < n; i++ {
		c := t
		c.Amount = share
		if i == 0 {
			c.Amount = first
		}
		c.InstallmentIndex = i + 1
		c.AssignedMonthDate = t.AssignedMonthDate.AddDate(0, i, 0)
		children[i] = c
	}
	return children
}

// halve splits the amount into two charges on adjacent months. An odd cent
// goes to the first half.
func halve(t model.Transaction) []model.Transaction {
	second := t.Amount.Div(two).RoundDown(2)
	first := t.Amount.Sub(second)

	a := t
	a.Amount = first
	b := t
	b.Amount = second
	b.AssignedMonthDate = period.NextMonth(t.AssignedMonthDate)

	return []model.Transaction{a, b}
}

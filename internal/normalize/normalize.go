// Package normalize converts RawEntries into canonical Transaction
// candidates: fixed-point amounts, inferred type, cleaned merchant text,
// parsed dates.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/model"
)

// Normalizer converts RawEntries of one detected format.
type Normalizer struct {
	cfg             config.FormatConfig
	defaultCurrency string
	noise           map[string]bool
	halves          map[string]bool
}

// defaultHalvesMarkers flag a row as halved when the format declares none.
var defaultHalvesMarkers = []string{"yes", "y", "true", "1", "half"}

// New creates a Normalizer for a format.
func New(cfg config.FormatConfig, defaultCurrency string) *Normalizer {
	noise := make(map[string]bool, len(cfg.NoiseTokens))
	for _, t := range cfg.NoiseTokens {
		noise[strings.ToUpper(t)] = true
	}

	markers := cfg.HalvesMarkers
	if len(markers) == 0 {
		markers = defaultHalvesMarkers
	}
	halves := make(map[string]bool, len(markers))
	for _, m := range markers {
		halves[strings.ToLower(m)] = true
	}

	return &Normalizer{
		cfg:             cfg,
		defaultCurrency: defaultCurrency,
		noise:           noise,
		halves:          halves,
	}
}

// Normalize converts a RawEntry into a Transaction candidate. Failures are
// *model.NormalizationError: per-row, non-fatal to the batch.
func (n *Normalizer) Normalize(e model.RawEntry) (model.Transaction, error) {
	txDate, err := time.Parse(n.cfg.DateLayout, e.Value(model.FieldTransactionDate))
	if err != nil {
		return model.Transaction{}, &model.NormalizationError{Row: e.Row, Field: model.FieldTransactionDate, Err: err}
	}

	billDate := txDate
	if raw := e.Value(model.FieldBillingDate); raw != "" {
		billDate, err = time.Parse(n.cfg.DateLayout, raw)
		if err != nil {
			return model.Transaction{}, &model.NormalizationError{Row: e.Row, Field: model.FieldBillingDate, Err: err}
		}
	}

	amount, txType, err := n.amount(e)
	if err != nil {
		return model.Transaction{}, err
	}

	installments := 0
	if raw := e.Value(model.FieldInstallments); raw != "" {
		installments, err = strconv.Atoi(raw)
		if err != nil || installments < 0 {
			return model.Transaction{}, &model.NormalizationError{
				Row: e.Row, Field: model.FieldInstallments,
				Err: fmt.Errorf("invalid count %q", raw),
			}
		}
	}

	isHalves := n.halves[strings.ToLower(e.Value(model.FieldHalves))]

	currency := strings.ToUpper(e.Value(model.FieldCurrency))
	if currency == "" {
		currency = strings.ToUpper(n.cfg.Currency)
	}
	if currency == "" {
		currency = strings.ToUpper(n.defaultCurrency)
	}

	return model.Transaction{
		TransactionDate: txDate,
		BillingDate:     billDate,
		Amount:          amount,
		Type:            txType,
		MerchantName:    n.cleanMerchant(e.Value(model.FieldMerchant)),
		ReferenceNumber: e.Value(model.FieldReference),
		CardNumber:      cardLastFour(e.Value(model.FieldCard)),
		Currency:        currency,
		Installments:    installments,
		IsHalves:        isHalves,
		Source:          n.cfg.SourceName(),
		Notes:           e.Value(model.FieldNotes),
		Branch:          e.Value(model.FieldBranch),
	}, nil
}

// amount parses the monetary value and infers the transaction type from the
// format's sign convention. The returned amount is signed by type: income
// positive, expense negative.
func (n *Normalizer) amount(e model.RawEntry) (decimal.Decimal, model.TxType, error) {
	if n.cfg.Sign == config.SignDebitCredit {
		if raw := e.Value(model.FieldDebit); raw != "" {
			v, err := n.parseDecimal(raw)
			if err != nil {
				return decimal.Zero, "", &model.NormalizationError{Row: e.Row, Field: model.FieldDebit, Err: err}
			}
			return v.Abs().Neg(), model.TypeExpense, nil
		}
		raw := e.Value(model.FieldCredit)
		v, err := n.parseDecimal(raw)
		if err != nil {
			return decimal.Zero, "", &model.NormalizationError{Row: e.Row, Field: model.FieldCredit, Err: err}
		}
		return v.Abs(), model.TypeIncome, nil
	}

	v, err := n.parseDecimal(e.Value(model.FieldAmount))
	if err != nil {
		return decimal.Zero, "", &model.NormalizationError{Row: e.Row, Field: model.FieldAmount, Err: err}
	}
	if n.cfg.Sign == config.SignPositiveExpense {
		v = v.Neg()
	}
	if v.IsNegative() {
		return v, model.TypeExpense, nil
	}
	return v, model.TypeIncome, nil
}

// parseDecimal reads a monetary string into a fixed-point decimal. Currency
// symbols, spaces, and thousands separators are stripped; formats using a
// decimal comma are converted first.
func (n *Normalizer) parseDecimal(raw string) (decimal.Decimal, error) {
	s := raw
	if n.cfg.DecimalComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == '.' || r == '-' || r == '+' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("no numeric value in %q", raw)
	}

	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", raw, err)
	}
	return v, nil
}

// cleanMerchant trims, strips the format's noise tokens, collapses
// whitespace, and title-cases the merchant text.
func (n *Normalizer) cleanMerchant(raw string) string {
	words := strings.Fields(raw)
	kept := words[:0]
	for _, w := range words {
		if n.noise[strings.ToUpper(w)] {
			continue
		}
		kept = append(kept, titleCase(w))
	}
	return strings.Join(kept, " ")
}

func titleCase(w string) string {
	runes := []rune(strings.ToLower(w))
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	return string(runes)
}

// cardLastFour reduces a card field to its last 4 digits. Anything shorter
// is dropped: a full PAN is never stored, and fewer than 4 digits is not a
// usable card hint.
func cardLastFour(raw string) string {
	var digits []rune
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return ""
	}
	return string(digits[len(digits)-4:])
}

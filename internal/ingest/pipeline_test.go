package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/category"
	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/store"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Categories = config.CategoriesConfig{
		FallbackExpense: "misc-expense",
		FallbackIncome:  "misc-income",
		Rules: []config.CategoryRule{
			{Keyword: "coffee", CategoryID: "dining", Type: "expense"},
		},
	}
	return cfg
}

func newTestPipeline(t *testing.T, st store.Store) *Pipeline {
	t.Helper()
	cfg := testConfig()
	p, err := New(cfg, st, category.NewRuleResolver(cfg.Categories), zerolog.Nop())
	require.NoError(t, err)
	return p
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func runFile(t *testing.T, p *Pipeline, user, content, name string) (*model.Result, *model.ImportBatch) {
	t.Helper()
	result, batch, err := p.Run(context.Background(), user, strings.NewReader(content), name, "")
	require.NoError(t, err)
	return result, batch
}

func TestRun_CardBillingStatement(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, m)

	result, batch := runFile(t, p, "u1", fixture(t, "card_billing.csv"), "card_billing.csv")

	assert.True(t, result.Success)
	assert.Equal(t, 4, result.TotalParsed)
	// 1 plain + 3 installments + 2 halves + 1 refund.
	assert.Equal(t, 7, result.TotalCreated)
	assert.Equal(t, "card-billing", batch.Format)
	assert.Empty(t, batch.RowErrors())

	rows := m.Transactions("u1")
	require.Len(t, rows, 7)

	sum := decimal.Zero
	for _, txn := range rows {
		sum = sum.Add(txn.Amount)
		assert.Equal(t, 1, txn.AssignedMonthDate.Day(), "assigned month must be first-of-month")
		assert.NotEmpty(t, txn.Fingerprint)
	}
	// 50 - 18.50 - 300 - 90.01: split amounts preserve the file total.
	assert.Equal(t, "-358.51", sum.StringFixed(2))
}

func TestRun_InstallmentExpansion(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, m)

	runFile(t, p, "u1", fixture(t, "card_billing.csv"), "card_billing.csv")

	var children []model.Transaction
	for _, txn := range m.Transactions("u1") {
		if txn.MerchantName == "Tech Store" {
			children = append(children, txn)
		}
	}
	require.Len(t, children, 3)

	months := make(map[string]bool)
	sum := decimal.Zero
	for _, c := range children {
		sum = sum.Add(c.Amount)
		months[c.AssignedMonthDate.Format("2006-01")] = true
		assert.Equal(t, 3, c.Installments)
		assert.Contains(t, []int{1, 2, 3}, c.InstallmentIndex)
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("-300")))
	assert.Equal(t, map[string]bool{"2025-01": true, "2025-02": true, "2025-03": true}, months)
}

func TestRun_HalvesSplit(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, m)

	runFile(t, p, "u1", fixture(t, "card_billing.csv"), "card_billing.csv")

	var halves []model.Transaction
	for _, txn := range m.Transactions("u1") {
		if txn.MerchantName == "Supermarket Fresh" {
			halves = append(halves, txn)
		}
	}
	require.Len(t, halves, 2)

	sum := halves[0].Amount.Add(halves[1].Amount)
	assert.True(t, sum.Equal(decimal.RequireFromString("-90.01")))

	months := []string{
		halves[0].AssignedMonthDate.Format("2006-01"),
		halves[1].AssignedMonthDate.Format("2006-01"),
	}
	assert.ElementsMatch(t, []string{"2025-01", "2025-02"}, months)
}

func TestRun_BillingCutoffRollsForward(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, m)

	runFile(t, p, "u1", fixture(t, "card_billing.csv"), "card_billing.csv")

	// The refund bills on 31/01, at/after the default cutoff of 28: it
	// counts against February.
	for _, txn := range m.Transactions("u1") {
		if txn.MerchantName == "Shoe Shop Return" {
			assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), txn.AssignedMonthDate)
			assert.Equal(t, model.TypeIncome, txn.Type)
			return
		}
	}
	t.Fatal("refund row not persisted")
}

func TestRun_CategoriesAssigned(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, m)

	runFile(t, p, "u1", fixture(t, "card_billing.csv"), "card_billing.csv")

	for _, txn := range m.Transactions("u1") {
		switch txn.MerchantName {
		case "Coffee Corner":
			assert.Equal(t, "dining", txn.CategoryID)
		case "Shoe Shop Return":
			assert.Equal(t, "misc-income", txn.CategoryID)
		default:
			assert.Equal(t, "misc-expense", txn.CategoryID)
		}
	}
}

func TestRun_ReuploadIsIdempotent(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, m)

	first, _ := runFile(t, p, "u1", fixture(t, "card_billing.csv"), "card_billing.csv")
	require.Equal(t, 7, first.TotalCreated)

	second, batch := runFile(t, p, "u1", fixture(t, "card_billing.csv"), "card_billing.csv")
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.TotalCreated)
	assert.Equal(t, 4, second.TotalParsed)
	assert.Empty(t, batch.RowErrors())

	// No duplicate rows in the store.
	assert.Len(t, m.Transactions("u1"), 7)
}

func TestRun_DedupScopedPerUser(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, m)

	runFile(t, p, "u1", fixture(t, "card_billing.csv"), "card_billing.csv")
	result, _ := runFile(t, p, "u2", fixture(t, "card_billing.csv"), "card_billing.csv")

	assert.Equal(t, 7, result.TotalCreated)
}

func TestRun_DuplicateRowsWithinBatchKeepFirst(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, m)

	content := "Date,Description,Amount,Reference,Branch\n" +
		"01/15/2025,GITHUB,-4.00,R100,main\n" +
		"01/15/2025,GITHUB,-4.00,R100,main\n"

	result, _ := runFile(t, p, "u1", content, "bank.csv")
	assert.Equal(t, 2, result.TotalParsed)
	assert.Equal(t, 1, result.TotalCreated)
	assert.Len(t, m.Transactions("u1"), 1)
}

func TestRun_MalformedRowsAreSkippedNotFatal(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, m)

	var b strings.Builder
	b.WriteString("Date,Description,Amount,Reference,Branch\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "01/%02d/2025,SHOP %d,-%d.00,R%d,main\n", i+1, i, i+1, i)
	}
	b.WriteString("NOTADATE,BAD DATE ROW,-5.00,R90,main\n")
	b.WriteString("01/20/2025,BAD AMOUNT ROW,NOTANUMBER,R91,main\n")

	result, batch := runFile(t, p, "u1", b.String(), "bank.csv")

	assert.True(t, result.Success)
	assert.Equal(t, 10, result.TotalParsed)
	assert.Equal(t, 10, result.TotalCreated)
	assert.Len(t, batch.RowErrors(), 2)
	assert.Len(t, m.Transactions("u1"), 10)
}

func TestRun_ConflictingSplitRuleIsPerRow(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, m)

	content := "Transaction Date,Billing Date,Merchant,Amount,Currency,Card No.,Voucher,Installments,Halved,Notes\n" +
		"15/01/2025,17/01/2025,GOOD SHOP,10.00,USD,1234,V1,,,\n" +
		"16/01/2025,18/01/2025,CONFLICTED SHOP,20.00,USD,1234,V2,3,yes,\n"

	result, batch := runFile(t, p, "u1", content, "card.csv")

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.TotalParsed)
	assert.Equal(t, 1, result.TotalCreated)
	require.Len(t, batch.RowErrors(), 1)
	assert.Contains(t, batch.RowErrors()[0].Reason, "conflicting split rule")
}

func TestRun_UnrecognizedFormatIsFatal(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, m)

	content := "Weird,Header,Shape\n1,2,3\n"
	result, _, err := p.Run(context.Background(), "u1", strings.NewReader(content), "weird.csv", "")

	assert.ErrorIs(t, err, model.ErrUnrecognizedFormat)
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.TotalCreated)
	assert.Empty(t, m.Transactions("u1"))
}

func TestRun_EmptyFileIsUnrecognized(t *testing.T) {
	p := newTestPipeline(t, store.NewMemory())

	result, _, err := p.Run(context.Background(), "u1", strings.NewReader(""), "empty.csv", "")
	assert.ErrorIs(t, err, model.ErrUnrecognizedFormat)
	assert.False(t, result.Success)
}

func TestRun_FormatHint(t *testing.T) {
	p := newTestPipeline(t, store.NewMemory())

	result, batch, err := p.Run(context.Background(), "u1",
		strings.NewReader(fixture(t, "bank_checking.csv")), "bank.csv", "bank-checking")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "bank-checking", batch.Format)
}

// failingStore injects a commit-time failure under valid candidates.
type failingStore struct {
	inner store.Store
}

func (f *failingStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := f.inner.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{Tx: tx}, nil
}

type failingTx struct {
	store.Tx
}

func (t *failingTx) InsertTransactions(context.Context, string, []model.Transaction) (int, error) {
	return 0, &model.StoreError{Op: "insert transaction", Err: errors.New("connection reset")}
}

func TestRun_StoreFailureLeavesNothingPersisted(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, &failingStore{inner: m})

	result, _, err := p.Run(context.Background(), "u1",
		strings.NewReader(fixture(t, "card_billing.csv")), "card_billing.csv", "")

	require.Error(t, err)
	var serr *model.StoreError
	assert.ErrorAs(t, err, &serr)
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.TotalCreated)
	assert.Empty(t, m.Transactions("u1"))
}

func TestRun_AmountsSurviveExactly(t *testing.T) {
	m := store.NewMemory()
	p := newTestPipeline(t, m)

	content := "Date,Description,Amount,Reference,Branch\n" +
		"01/15/2025,PENNY SHOP,-0.01,R1,main\n" +
		"01/16/2025,ODD SHOP,-123.45,R2,main\n"

	runFile(t, p, "u1", content, "bank.csv")

	rows := m.Transactions("u1")
	require.Len(t, rows, 2)
	got := map[string]bool{}
	for _, txn := range rows {
		got[txn.Amount.StringFixed(2)] = true
	}
	assert.True(t, got["-0.01"])
	assert.True(t, got["-123.45"])
}

package importer

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/model"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDetector(config.Default().Formats)
	require.NoError(t, err)
	return d
}

func readFixture(t *testing.T, name string) ([]string, [][]string) {
	t.Helper()
	f, err := os.Open("../../testdata/" + name)
	require.NoError(t, err)
	defer f.Close()

	header, rows, err := ReadRecords(f)
	require.NoError(t, err)
	return header, rows
}

func TestDetect_CardBilling(t *testing.T) {
	d := newTestDetector(t)
	header, _ := readFixture(t, "card_billing.csv")

	p, err := d.Detect(header, "")
	require.NoError(t, err)
	assert.Equal(t, "card-billing", p.Format())
}

func TestDetect_BankChecking(t *testing.T) {
	d := newTestDetector(t)
	header, _ := readFixture(t, "bank_checking.csv")

	p, err := d.Detect(header, "")
	require.NoError(t, err)
	assert.Equal(t, "bank-checking", p.Format())
}

func TestDetect_DebitCredit(t *testing.T) {
	d := newTestDetector(t)
	header, _ := readFixture(t, "card_debit_credit.csv")

	p, err := d.Detect(header, "")
	require.NoError(t, err)
	assert.Equal(t, "card-debit-credit", p.Format())
}

func TestDetect_Deterministic(t *testing.T) {
	d := newTestDetector(t)
	header, _ := readFixture(t, "card_billing.csv")

	first, err := d.Detect(header, "")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		p, err := d.Detect(header, "")
		require.NoError(t, err)
		assert.Equal(t, first.Format(), p.Format())
	}
}

func TestDetect_UnrecognizedHeader(t *testing.T) {
	d := newTestDetector(t)

	_, err := d.Detect([]string{"Foo", "Bar", "Baz"}, "")
	assert.ErrorIs(t, err, model.ErrUnrecognizedFormat)
}

func TestDetect_HeaderCaseInsensitive(t *testing.T) {
	d := newTestDetector(t)

	p, err := d.Detect([]string{" date ", "DESCRIPTION", "Amount", "reference", "Branch"}, "")
	require.NoError(t, err)
	assert.Equal(t, "bank-checking", p.Format())
}

func TestDetect_HintRestrictsMatch(t *testing.T) {
	d := newTestDetector(t)
	header, _ := readFixture(t, "card_billing.csv")

	p, err := d.Detect(header, "card-billing")
	require.NoError(t, err)
	assert.Equal(t, "card-billing", p.Format())

	// A hint for a format whose signature does not match fails.
	_, err = d.Detect(header, "bank-checking")
	assert.ErrorIs(t, err, model.ErrUnrecognizedFormat)
}

func TestNewDetector_RejectsDuplicates(t *testing.T) {
	cfgs := config.Default().Formats
	cfgs = append(cfgs, cfgs[0])
	_, err := NewDetector(cfgs)
	assert.Error(t, err)
}

func TestParseRow_CardBilling(t *testing.T) {
	d := newTestDetector(t)
	header, rows := readFixture(t, "card_billing.csv")

	p, err := d.Detect(header, "")
	require.NoError(t, err)

	entry, err := p.ParseRow(rows[0], 2)
	require.NoError(t, err)
	assert.Equal(t, "card-billing", entry.Format)
	assert.Equal(t, 2, entry.Row)
	assert.Equal(t, "15/01/2025", entry.Value(model.FieldTransactionDate))
	assert.Equal(t, "17/01/2025", entry.Value(model.FieldBillingDate))
	assert.Equal(t, "COFFEE CORNER AUTH", entry.Value(model.FieldMerchant))
	assert.Equal(t, "18.50", entry.Value(model.FieldAmount))
	assert.Equal(t, "xxxx-1234", entry.Value(model.FieldCard))
	assert.Equal(t, "V1001", entry.Value(model.FieldReference))
	assert.Equal(t, "morning", entry.Value(model.FieldNotes))
}

func TestParseRow_OptionalFieldsAbsent(t *testing.T) {
	d := newTestDetector(t)
	header, rows := readFixture(t, "card_billing.csv")

	p, err := d.Detect(header, "")
	require.NoError(t, err)

	entry, err := p.ParseRow(rows[0], 2)
	require.NoError(t, err)
	assert.Equal(t, "", entry.Value(model.FieldInstallments))
	assert.Equal(t, "", entry.Value(model.FieldHalves))
}

func TestParseRow_ShortRecord(t *testing.T) {
	d := newTestDetector(t)
	header, _ := readFixture(t, "card_billing.csv")

	p, err := d.Detect(header, "")
	require.NoError(t, err)

	_, err = p.ParseRow([]string{"15/01/2025", "17/01/2025"}, 3)
	var rerr *model.RowError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 3, rerr.Row)
}

func TestParseRow_BlankRow(t *testing.T) {
	d := newTestDetector(t)
	header, _ := readFixture(t, "bank_checking.csv")

	p, err := d.Detect(header, "")
	require.NoError(t, err)

	_, err = p.ParseRow([]string{"", "", "", "", ""}, 4)
	var rerr *model.RowError
	assert.ErrorAs(t, err, &rerr)
}

func TestParseRow_EmptyRequiredField(t *testing.T) {
	d := newTestDetector(t)
	header, _ := readFixture(t, "bank_checking.csv")

	p, err := d.Detect(header, "")
	require.NoError(t, err)

	_, err = p.ParseRow([]string{"01/15/2025", "GITHUB", "", "R1", "main"}, 2)
	var rerr *model.RowError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Reason, "amount")
}

func TestParseRow_DebitCreditNeedsOne(t *testing.T) {
	d := newTestDetector(t)
	header, _ := readFixture(t, "card_debit_credit.csv")

	p, err := d.Detect(header, "")
	require.NoError(t, err)

	_, err = p.ParseRow([]string{"2025-01-10", "2025-01-12", "5678", "SHOP", "", ""}, 2)
	var rerr *model.RowError
	assert.ErrorAs(t, err, &rerr)
}

func TestReadRecords_EmptyInput(t *testing.T) {
	header, rows, err := ReadRecords(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, header)
	assert.Nil(t, rows)
}

func TestReadRecords_VariableFieldCounts(t *testing.T) {
	header, rows, err := ReadRecords(strings.NewReader("A,B,C\n1,2,3\n1,2\n"))
	require.NoError(t, err)
	assert.Len(t, header, 3)
	assert.Len(t, rows, 2)
}

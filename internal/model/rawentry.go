package model

// Field names a canonical statement column. Format configuration binds
// these to the column titles each bank export actually uses.
type Field string

const (
	FieldTransactionDate Field = "transaction_date"
	FieldBillingDate     Field = "billing_date"
	FieldMerchant        Field = "merchant"
	FieldAmount          Field = "amount"
	FieldDebit           Field = "debit"
	FieldCredit          Field = "credit"
	FieldCurrency        Field = "currency"
	FieldReference       Field = "reference"
	FieldCard            Field = "card"
	FieldInstallments    Field = "installments"
	FieldHalves          Field = "halves"
	FieldNotes           Field = "notes"
	FieldBranch          Field = "branch"
)

// RawEntry is one statement row in source-format shape: field values exactly
// as they appeared in the file. Discarded after normalization.
type RawEntry struct {
	Format string
	Row    int // 1-based row number in the source file, header included
	Fields map[Field]string
}

// Value returns the raw text for a field, or "" when the format does not
// carry that column.
func (e RawEntry) Value(f Field) string {
	return e.Fields[f]
}

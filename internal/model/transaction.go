package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType classifies a transaction as money in or money out.
type TxType string

const (
	TypeIncome  TxType = "income"
	TypeExpense TxType = "expense"
)

// Transaction is the canonical record produced by the ingestion pipeline.
// Amounts are signed: income positive, expense negative.
type Transaction struct {
	ID                string    // assigned by the store on commit
	TransactionDate   time.Time // date of purchase
	BillingDate       time.Time // date the charge posts; defaults to TransactionDate
	AssignedMonthDate time.Time // reporting month, always the first of a calendar month
	Amount            decimal.Decimal
	Type              TxType
	MerchantName      string
	ReferenceNumber   string // issuer voucher/reference, may be empty
	CardNumber        string // last 4 digits only, never the full PAN
	Currency          string
	Installments      int // >1 = part of an installment purchase
	InstallmentIndex  int // 1-based position after expansion, 0 = not expanded
	CategoryID        string
	Source            string // statement format the row came from
	Notes             string
	Branch            string
	IsHalves          bool
	Fingerprint       string
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tally-dev/tally/internal/model"
)

// SignConvention declares how a format encodes expense vs income.
type SignConvention string

const (
	// SignNegativeExpense: one signed amount column, negative = expense.
	SignNegativeExpense SignConvention = "negative_expense"
	// SignPositiveExpense: card exports where a positive amount is a charge.
	SignPositiveExpense SignConvention = "positive_expense"
	// SignDebitCredit: separate debit and credit columns.
	SignDebitCredit SignConvention = "debit_credit"
)

// Config represents the top-level tally.yaml configuration.
type Config struct {
	DefaultCurrency string           `yaml:"default_currency"`
	Billing         BillingConfig    `yaml:"billing"`
	Formats         []FormatConfig   `yaml:"formats"`
	Categories      CategoriesConfig `yaml:"categories"`
}

// BillingConfig holds the reporting-period convention.
type BillingConfig struct {
	// CutoffDay rolls a billing date to the next reporting month when its
	// day-of-month is on or after this value. Range 1-31.
	CutoffDay int `yaml:"cutoff_day"`
}

// FormatConfig declares one supported statement export format. Column
// signatures and parsing quirks are configuration data, not code.
type FormatConfig struct {
	Name          string            `yaml:"name"`
	Source        string            `yaml:"source,omitempty"` // defaults to Name
	DateLayout    string            `yaml:"date_layout"`
	DecimalComma  bool              `yaml:"decimal_comma,omitempty"`
	Sign          SignConvention    `yaml:"sign"`
	Currency      string            `yaml:"currency,omitempty"`
	Columns       map[string]string `yaml:"columns"` // canonical field -> column title
	NoiseTokens   []string          `yaml:"noise_tokens,omitempty"`
	HalvesMarkers []string          `yaml:"halves_markers,omitempty"`
}

// SourceName returns the source tag recorded on transactions from this format.
func (f FormatConfig) SourceName() string {
	if f.Source != "" {
		return f.Source
	}
	return f.Name
}

// CategoriesConfig holds keyword rules for the built-in category resolver.
type CategoriesConfig struct {
	FallbackExpense string         `yaml:"fallback_expense,omitempty"`
	FallbackIncome  string         `yaml:"fallback_income,omitempty"`
	Rules           []CategoryRule `yaml:"rules,omitempty"`
}

// CategoryRule maps a merchant keyword to a category id.
type CategoryRule struct {
	Keyword    string `yaml:"keyword"`
	CategoryID string `yaml:"category_id"`
	Type       string `yaml:"type,omitempty"` // "income", "expense", or empty for both
}

// knownFields are the canonical fields a format may bind columns to.
var knownFields = map[model.Field]bool{
	model.FieldTransactionDate: true,
	model.FieldBillingDate:     true,
	model.FieldMerchant:        true,
	model.FieldAmount:          true,
	model.FieldDebit:           true,
	model.FieldCredit:          true,
	model.FieldCurrency:        true,
	model.FieldReference:       true,
	model.FieldCard:            true,
	model.FieldInstallments:    true,
	model.FieldHalves:          true,
	model.FieldNotes:           true,
	model.FieldBranch:          true,
}

// Load reads a tally.yaml file from disk and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Billing.CutoffDay < 1 || c.Billing.CutoffDay > 31 {
		return fmt.Errorf("billing cutoff_day %d out of range 1-31", c.Billing.CutoffDay)
	}
	if len(c.Formats) == 0 {
		return fmt.Errorf("no statement formats configured")
	}

	seen := make(map[string]bool, len(c.Formats))
	for _, f := range c.Formats {
		if f.Name == "" {
			return fmt.Errorf("format with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate format name %q", f.Name)
		}
		seen[f.Name] = true

		if err := f.validate(); err != nil {
			return fmt.Errorf("format %q: %w", f.Name, err)
		}
	}
	return nil
}

func (f FormatConfig) validate() error {
	if f.DateLayout == "" {
		return fmt.Errorf("missing date_layout")
	}

	switch f.Sign {
	case SignNegativeExpense, SignPositiveExpense, SignDebitCredit:
	default:
		return fmt.Errorf("unknown sign convention %q", f.Sign)
	}

	for field := range f.Columns {
		if !knownFields[model.Field(field)] {
			return fmt.Errorf("unknown column field %q", field)
		}
	}

	if f.Columns[string(model.FieldTransactionDate)] == "" {
		return fmt.Errorf("missing %s column", model.FieldTransactionDate)
	}
	if f.Columns[string(model.FieldMerchant)] == "" {
		return fmt.Errorf("missing %s column", model.FieldMerchant)
	}

	if f.Sign == SignDebitCredit {
		if f.Columns[string(model.FieldDebit)] == "" || f.Columns[string(model.FieldCredit)] == "" {
			return fmt.Errorf("debit_credit formats need debit and credit columns")
		}
	} else if f.Columns[string(model.FieldAmount)] == "" {
		return fmt.Errorf("missing %s column", model.FieldAmount)
	}
	return nil
}

// Column returns the configured column title for a canonical field, or "".
func (f FormatConfig) Column(field model.Field) string {
	return f.Columns[string(field)]
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		DefaultCurrency: "USD",
		Billing:         BillingConfig{CutoffDay: 28},
		Formats: []FormatConfig{
			{
				Name:       "bank-checking",
				DateLayout: "01/02/2006",
				Sign:       SignNegativeExpense,
				Columns: map[string]string{
					string(model.FieldTransactionDate): "Date",
					string(model.FieldMerchant):        "Description",
					string(model.FieldAmount):          "Amount",
					string(model.FieldReference):       "Reference",
					string(model.FieldBranch):          "Branch",
				},
			},
			{
				Name:       "card-billing",
				DateLayout: "02/01/2006",
				Sign:       SignPositiveExpense,
				Columns: map[string]string{
					string(model.FieldTransactionDate): "Transaction Date",
					string(model.FieldBillingDate):     "Billing Date",
					string(model.FieldMerchant):        "Merchant",
					string(model.FieldAmount):          "Amount",
					string(model.FieldCurrency):        "Currency",
					string(model.FieldCard):            "Card No.",
					string(model.FieldReference):       "Voucher",
					string(model.FieldInstallments):    "Installments",
					string(model.FieldHalves):          "Halved",
					string(model.FieldNotes):           "Notes",
				},
				NoiseTokens:   []string{"AUTH", "PENDING"},
				HalvesMarkers: []string{"yes", "y", "half"},
			},
			{
				Name:       "card-debit-credit",
				DateLayout: "2006-01-02",
				Sign:       SignDebitCredit,
				Columns: map[string]string{
					string(model.FieldTransactionDate): "Transaction Date",
					string(model.FieldBillingDate):     "Posted Date",
					string(model.FieldCard):            "Card No.",
					string(model.FieldMerchant):        "Description",
					string(model.FieldDebit):           "Debit",
					string(model.FieldCredit):          "Credit",
				},
			},
		},
		Categories: CategoriesConfig{
			Rules: []CategoryRule{},
		},
	}
}

package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/model"
)

// RowParser turns raw statement rows of one detected format into RawEntries.
type RowParser struct {
	cfg     config.FormatConfig
	columns map[model.Field]int
}

// Format returns the parser's format name.
func (p *RowParser) Format() string { return p.cfg.Name }

// Config returns the format configuration the parser was built from.
func (p *RowParser) Config() config.FormatConfig { return p.cfg }

// ParseRow converts one record into a RawEntry. row is the 1-based row
// number in the source file. Failures are *model.RowError: recorded by the
// caller and skipped, never fatal to the batch.
func (p *RowParser) ParseRow(rec []string, row int) (model.RawEntry, error) {
	if isBlank(rec) {
		return model.RawEntry{}, &model.RowError{Row: row, Reason: "blank row"}
	}

	fields := make(map[model.Field]string, len(p.columns))
	for field, i := range p.columns {
		if i >= len(rec) {
			return model.RawEntry{}, &model.RowError{
				Row:    row,
				Reason: fmt.Sprintf("missing column %d (%s)", i+1, field),
			}
		}
		if v := strings.TrimSpace(rec[i]); v != "" {
			fields[field] = v
		}
	}

	if fields[model.FieldTransactionDate] == "" {
		return model.RawEntry{}, &model.RowError{Row: row, Reason: "empty transaction date"}
	}
	if fields[model.FieldMerchant] == "" {
		return model.RawEntry{}, &model.RowError{Row: row, Reason: "empty merchant"}
	}
	if p.cfg.Sign == config.SignDebitCredit {
		if fields[model.FieldDebit] == "" && fields[model.FieldCredit] == "" {
			return model.RawEntry{}, &model.RowError{Row: row, Reason: "neither debit nor credit present"}
		}
	} else if fields[model.FieldAmount] == "" {
		return model.RawEntry{}, &model.RowError{Row: row, Reason: "empty amount"}
	}

	return model.RawEntry{Format: p.cfg.Name, Row: row, Fields: fields}, nil
}

// ReadRecords reads a statement file into its header row and data records.
// Records may have varying field counts; per-row shape problems surface
// later as row errors rather than aborting the read.
func ReadRecords(r io.Reader) (header []string, rows [][]string, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading statement: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

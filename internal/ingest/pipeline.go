// Package ingest runs one statement upload end to end: detect, parse,
// normalize, assign months, split, dedup, categorize, commit.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tally-dev/tally/internal/category"
	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/dedup"
	"github.com/tally-dev/tally/internal/importer"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/normalize"
	"github.com/tally-dev/tally/internal/period"
	"github.com/tally-dev/tally/internal/split"
	"github.com/tally-dev/tally/internal/store"
)

// Pipeline processes statement uploads for the active user.
type Pipeline struct {
	cfg        *config.Config
	detector   *importer.Detector
	store      store.Store
	categories category.Resolver
	log        zerolog.Logger
}

// New creates a Pipeline from configuration and its collaborators.
func New(cfg *config.Config, st store.Store, categories category.Resolver, log zerolog.Logger) (*Pipeline, error) {
	detector, err := importer.NewDetector(cfg.Formats)
	if err != nil {
		return nil, fmt.Errorf("building detector: %w", err)
	}
	return &Pipeline{
		cfg:        cfg,
		detector:   detector,
		store:      st,
		categories: categories,
		log:        log,
	}, nil
}

// candidate is one transaction awaiting dedup and commit, tied back to the
// source row outcome it came from.
type candidate struct {
	outcome int // index into batch.Outcomes
	txn     model.Transaction
}

// Run processes one uploaded statement file. Per-row failures are recorded
// in the batch and skipped; only format detection and store failures abort
// the whole upload, in which case no rows are persisted.
func (p *Pipeline) Run(ctx context.Context, userID string, r io.Reader, fileName, formatHint string) (*model.Result, *model.ImportBatch, error) {
	start := time.Now()
	batch := &model.ImportBatch{
		ID:        uuid.NewString(),
		FileName:  fileName,
		StartedAt: start,
	}

	header, rows, err := importer.ReadRecords(r)
	if err != nil {
		return failed(batch, err), batch, err
	}
	if len(header) == 0 {
		err = fmt.Errorf("empty file: %w", model.ErrUnrecognizedFormat)
		return failed(batch, err), batch, err
	}

	parser, err := p.detector.Detect(header, formatHint)
	if err != nil {
		return failed(batch, err), batch, err
	}
	batch.Format = parser.Format()

	cands, from, to := p.collect(batch, parser, rows)

	created, err := p.commit(ctx, userID, batch, cands, from, to)
	if err != nil {
		return failed(batch, err), batch, err
	}
	batch.TotalCreated = created
	finalizeOutcomes(batch)

	p.log.Info().
		Str("batch", batch.ID).
		Str("format", batch.Format).
		Int("rows", len(rows)).
		Int("parsed", batch.TotalParsed).
		Int("created", batch.TotalCreated).
		Int("errors", len(batch.RowErrors())).
		Dur("elapsed", time.Since(start)).
		Msg("statement imported")

	return &model.Result{
		Success:      true,
		Message:      summarize(batch),
		TotalCreated: batch.TotalCreated,
		TotalParsed:  batch.TotalParsed,
	}, batch, nil
}

// collect parses, normalizes, month-assigns, splits, and fingerprints every
// row, recording per-row outcomes. Returns the candidates plus the
// transaction-date range they span.
func (p *Pipeline) collect(batch *model.ImportBatch, parser *importer.RowParser, rows [][]string) (cands []candidate, from, to time.Time) {
	norm := normalize.New(parser.Config(), p.cfg.DefaultCurrency)

	for i, rec := range rows {
		rowNum := i + 2 // 1-based, after the header row
		outcome := model.RowOutcome{Row: rowNum}

		entry, err := parser.ParseRow(rec, rowNum)
		if err != nil {
			p.recordError(batch, outcome, err)
			continue
		}

		txn, err := norm.Normalize(entry)
		if err != nil {
			p.recordError(batch, outcome, err)
			continue
		}
		txn.AssignedMonthDate = period.AssignMonth(txn.BillingDate, p.cfg.Billing.CutoffDay)

		children, err := split.Expand(txn)
		if err != nil {
			if errors.Is(err, model.ErrConflictingSplitRule) {
				err = &model.RowError{Row: rowNum, Reason: "conflicting split rule", Err: err}
			}
			p.recordError(batch, outcome, err)
			continue
		}

		outcome.Candidates = len(children)
		batch.TotalParsed++
		idx := len(batch.Outcomes)
		batch.Outcomes = append(batch.Outcomes, outcome)

		for _, c := range children {
			c.Fingerprint = dedup.Fingerprint(c)
			cands = append(cands, candidate{outcome: idx, txn: c})
			if from.IsZero() || c.TransactionDate.Before(from) {
				from = c.TransactionDate
			}
			if to.IsZero() || c.TransactionDate.After(to) {
				to = c.TransactionDate
			}
		}
	}
	return cands, from, to
}

// commit runs dedup and persistence inside one store transaction: either
// every surviving candidate is visible afterwards, or none are.
func (p *Pipeline) commit(ctx context.Context, userID string, batch *model.ImportBatch, cands []candidate, from, to time.Time) (int, error) {
	if len(cands) == 0 {
		return 0, nil
	}

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return 0, err
	}

	existing, err := tx.ExistingFingerprints(ctx, userID, from, to)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	engine := dedup.NewEngine(existing)
	resolver := category.NewCached(p.categories)

	var survivors []model.Transaction
	for _, c := range cands {
		if engine.IsDuplicate(c.txn.Fingerprint) {
			batch.Outcomes[c.outcome].Duplicates++
			continue
		}

		id, err := resolver.Resolve(ctx, c.txn.MerchantName, c.txn.Type)
		if err != nil {
			// Categorization is best-effort: an unreachable resolver
			// leaves the transaction uncategorized, it does not lose it.
			p.log.Warn().Err(err).Str("merchant", c.txn.MerchantName).Msg("category resolution failed")
		} else {
			c.txn.CategoryID = id
		}

		batch.Outcomes[c.outcome].Created++
		survivors = append(survivors, c.txn)
	}

	created := 0
	if len(survivors) > 0 {
		created, err = tx.InsertTransactions(ctx, userID, survivors)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}

func (p *Pipeline) recordError(batch *model.ImportBatch, outcome model.RowOutcome, err error) {
	outcome.Status = model.OutcomeFailed
	outcome.Reason = err.Error()
	batch.Outcomes = append(batch.Outcomes, outcome)
	p.log.Debug().Int("row", outcome.Row).Err(err).Msg("row skipped")
}

// finalizeOutcomes stamps the status of rows that made it past parsing.
func finalizeOutcomes(batch *model.ImportBatch) {
	for i := range batch.Outcomes {
		o := &batch.Outcomes[i]
		if o.Status == model.OutcomeFailed {
			continue
		}
		if o.Created > 0 {
			o.Status = model.OutcomeCreated
		} else {
			o.Status = model.OutcomeDuplicate
		}
	}
}

func summarize(batch *model.ImportBatch) string {
	dups := 0
	for _, o := range batch.Outcomes {
		dups += o.Duplicates
	}
	return fmt.Sprintf("created %d transactions from %d parsed rows (%d duplicates skipped, %d row errors)",
		batch.TotalCreated, batch.TotalParsed, dups, len(batch.RowErrors()))
}

// failed builds the caller-facing result for a whole-batch failure. Counts
// reflect what was actually persisted: nothing.
func failed(batch *model.ImportBatch, err error) *model.Result {
	return &model.Result{
		Success:      false,
		Message:      err.Error(),
		TotalCreated: 0,
		TotalParsed:  batch.TotalParsed,
	}
}

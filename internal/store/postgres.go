package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/tally-dev/tally/internal/model"
)

// Postgres is the production Store backed by a transactions table with a
// uniqueness constraint on (user_id, fingerprint).
type Postgres struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string, log zerolog.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	log.Debug().Msg("connected to database")
	return &Postgres{db: db, log: log}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Begin opens a database transaction for one import.
func (p *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &model.StoreError{Op: "begin", Err: err}
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) ExistingFingerprints(ctx context.Context, userID string, from, to time.Time) (map[string]struct{}, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT fingerprint
		FROM transactions
		WHERE user_id = $1 AND transaction_date BETWEEN $2 AND $3
	`, userID, from, to)
	if err != nil {
		return nil, &model.StoreError{Op: "query fingerprints", Err: err}
	}
	defer rows.Close()

	fps := make(map[string]struct{})
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, &model.StoreError{Op: "scan fingerprint", Err: err}
		}
		fps[fp] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StoreError{Op: "read fingerprints", Err: err}
	}
	return fps, nil
}

func (t *pgTx) InsertTransactions(ctx context.Context, userID string, txns []model.Transaction) (int, error) {
	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			user_id, fingerprint, transaction_date, billing_date, assigned_month,
			amount, type, merchant, reference, card_number, currency,
			installments, installment_index, category_id, source, notes, branch, is_halves
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`)
	if err != nil {
		return 0, &model.StoreError{Op: "prepare insert", Err: err}
	}
	defer stmt.Close()

	for _, txn := range txns {
		_, err := stmt.ExecContext(ctx,
			userID, txn.Fingerprint, txn.TransactionDate, txn.BillingDate, txn.AssignedMonthDate,
			txn.Amount.StringFixed(2), string(txn.Type), txn.MerchantName,
			nullable(txn.ReferenceNumber), nullable(txn.CardNumber), txn.Currency,
			txn.Installments, txn.InstallmentIndex, nullable(txn.CategoryID),
			txn.Source, nullable(txn.Notes), nullable(txn.Branch), txn.IsHalves,
		)
		if err != nil {
			return 0, &model.StoreError{Op: "insert transaction", Err: err}
		}
	}
	return len(txns), nil
}

func (t *pgTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return &model.StoreError{Op: "commit", Err: err}
	}
	return nil
}

func (t *pgTx) Rollback() error {
	return t.tx.Rollback()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

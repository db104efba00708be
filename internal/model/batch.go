package model

import "time"

// OutcomeStatus is the fate of one source row.
type OutcomeStatus string

const (
	OutcomeCreated   OutcomeStatus = "created"
	OutcomeDuplicate OutcomeStatus = "duplicate"
	OutcomeFailed    OutcomeStatus = "error"
)

// RowOutcome records what happened to one statement row.
type RowOutcome struct {
	Row        int
	Status     OutcomeStatus
	Candidates int    // transactions produced after splitting
	Created    int    // candidates that survived dedup
	Duplicates int    // candidates skipped as already known
	Reason     string // failure reason, for error outcomes
}

// ImportBatch groups the processing of one uploaded statement file. It lives
// only for the duration of the upload call; the durable record is the set of
// committed Transactions.
type ImportBatch struct {
	ID           string
	FileName     string
	Format       string
	StartedAt    time.Time
	Outcomes     []RowOutcome
	TotalParsed  int // rows that produced at least one candidate, pre-dedup
	TotalCreated int // transactions the store confirmed persisted
}

// RowErrors returns the outcomes that recorded a row-level failure.
func (b *ImportBatch) RowErrors() []RowOutcome {
	var errs []RowOutcome
	for _, o := range b.Outcomes {
		if o.Status == OutcomeFailed {
			errs = append(errs, o)
		}
	}
	return errs
}

// Result is the caller-facing summary of one upload. This exact shape is
// rendered directly to the end user.
type Result struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	TotalCreated int    `json:"totalCreated"`
	TotalParsed  int    `json:"totalParsed"`
}

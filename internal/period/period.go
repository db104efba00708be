// Package period computes the reporting month a transaction counts against.
package period

import "time"

// AssignMonth returns the first day of the reporting month for a billing
// date. Billing days on or after cutoffDay roll to the following month: a
// charge posted late in a month counts against the next reporting period.
// The rule is a reporting convention, applied identically for every format.
func AssignMonth(billing time.Time, cutoffDay int) time.Time {
	month := time.Date(billing.Year(), billing.Month(), 1, 0, 0, 0, 0, time.UTC)
	if billing.Day() >= cutoffDay {
		month = month.AddDate(0, 1, 0)
	}
	return month
}

// NextMonth returns the first day of the month after a first-of-month date.
func NextMonth(month time.Time) time.Time {
	return month.AddDate(0, 1, 0)
}

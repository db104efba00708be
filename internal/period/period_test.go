package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAssignMonth_BeforeCutoff(t *testing.T) {
	// One day before the cutoff stays in the billing month.
	got := AssignMonth(date(2025, time.March, 27), 28)
	assert.Equal(t, date(2025, time.March, 1), got)
}

func TestAssignMonth_AtCutoff(t *testing.T) {
	// The cutoff day itself rolls to the next month.
	got := AssignMonth(date(2025, time.March, 28), 28)
	assert.Equal(t, date(2025, time.April, 1), got)
}

func TestAssignMonth_AfterCutoff(t *testing.T) {
	got := AssignMonth(date(2025, time.March, 30), 28)
	assert.Equal(t, date(2025, time.April, 1), got)
}

func TestAssignMonth_DecemberRollsToJanuary(t *testing.T) {
	got := AssignMonth(date(2024, time.December, 29), 28)
	assert.Equal(t, date(2025, time.January, 1), got)
}

func TestAssignMonth_AlwaysFirstOfMonth(t *testing.T) {
	for day := 1; day <= 28; day++ {
		got := AssignMonth(date(2025, time.February, day), 15)
		assert.Equal(t, 1, got.Day(), "day %d", day)
	}
}

func TestNextMonth(t *testing.T) {
	assert.Equal(t, date(2025, time.February, 1), NextMonth(date(2025, time.January, 1)))
	assert.Equal(t, date(2026, time.January, 1), NextMonth(date(2025, time.December, 1)))
}

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandWeekdays(t *testing.T) {
	rangeStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	dayStart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	occurrences := ExpandWeekdays(rangeStart, rangeEnd, []time.Weekday{time.Monday, time.Wednesday}, dayStart, dayEnd, 0)

	// Jan 2024: Mondays 1st and 8th, Wednesdays 3rd and 10th fall in range.
	require.Len(t, occurrences, 4)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), occurrences[0].Start)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), occurrences[0].End)
	assert.Equal(t, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), occurrences[1].Start)
	assert.Equal(t, time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC), occurrences[2].Start)
	assert.Equal(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), occurrences[3].Start)

	for i := 1; i < len(occurrences); i++ {
		assert.True(t, occurrences[i].Start.After(occurrences[i-1].Start))
	}
}

func TestExpandWeekdaysEmptySet(t *testing.T) {
	rangeStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	occurrences := ExpandWeekdays(rangeStart, rangeEnd, nil, rangeStart, rangeStart.Add(time.Hour), 0)
	assert.Empty(t, occurrences)
}

func TestExpandWeekdaysInvertedRange(t *testing.T) {
	rangeStart := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	occurrences := ExpandWeekdays(rangeStart, rangeEnd, []time.Weekday{time.Monday}, rangeStart, rangeStart.Add(time.Hour), 0)
	assert.Empty(t, occurrences)
}

func TestExpandWeekdaysRejectsOvernightClock(t *testing.T) {
	rangeStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	dayStart := time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC)

	// The end clock precedes the start clock, so every emitted interval
	// would be inverted; the expansion yields nothing instead.
	occurrences := ExpandWeekdays(rangeStart, rangeEnd, []time.Weekday{time.Monday}, dayStart, dayEnd, 0)
	assert.Empty(t, occurrences)
}

func TestExpandWeekdaysTruncatesAtCap(t *testing.T) {
	rangeStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	occurrences := ExpandWeekdays(rangeStart, rangeEnd, []time.Weekday{time.Monday, time.Tuesday}, rangeStart, rangeStart.Add(time.Hour), 10)
	assert.Len(t, occurrences, 10)
}

func TestExpandPatternWeekly(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	occurrences := ExpandPattern(start, end, FrequencyWeekly, 3, nil)

	require.Len(t, occurrences, 3)
	assert.Equal(t, start, occurrences[0].Start)
	assert.Equal(t, start.AddDate(0, 0, 7), occurrences[1].Start)
	assert.Equal(t, start.AddDate(0, 0, 14), occurrences[2].Start)
	for _, occ := range occurrences {
		assert.Equal(t, 30*time.Minute, occ.End.Sub(occ.Start))
	}
}

func TestExpandPatternDailyUntil(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	until := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

	occurrences := ExpandPattern(start, end, FrequencyDaily, 100, &until)

	// March 1 through 4 inclusive, the until bound wins over count.
	require.Len(t, occurrences, 4)
	assert.Equal(t, until, occurrences[3].Start)
}

func TestExpandPatternMonthlyNormalises(t *testing.T) {
	start := time.Date(2024, 1, 31, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	occurrences := ExpandPattern(start, end, FrequencyMonthly, 2, nil)

	require.Len(t, occurrences, 2)
	// AddDate pushes Jan 31 + 1 month into early March on a leap year.
	assert.Equal(t, time.Date(2024, 3, 2, 14, 0, 0, 0, time.UTC), occurrences[1].Start)
}

func TestExpandPatternRejectsInvalid(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	assert.Empty(t, ExpandPattern(start, start, FrequencyDaily, 5, nil))
	assert.Empty(t, ExpandPattern(start, start.Add(time.Hour), RecurrenceFrequency("hourly"), 5, nil))
}

func TestIntervalBounds(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	occurrences := ExpandPattern(start, start.Add(time.Hour), FrequencyWeekly, 3, nil)

	minStart, maxEnd := IntervalBounds(occurrences)
	assert.Equal(t, start, minStart)
	assert.Equal(t, start.AddDate(0, 0, 14).Add(time.Hour), maxEnd)
}

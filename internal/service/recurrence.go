package service

import (
	"time"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
)

// Occurrence caps protect bulk generation from runaway input. Weekday
// expansion truncates silently at its cap; pattern expansion clamps the
// requested count.
const (
	MaxWeekdayOccurrences = 5000
	MaxPatternOccurrences = 1000
)

// RecurrenceFrequency enumerates supported repeat patterns.
type RecurrenceFrequency string

const (
	FrequencyDaily   RecurrenceFrequency = "daily"
	FrequencyWeekly  RecurrenceFrequency = "weekly"
	FrequencyMonthly RecurrenceFrequency = "monthly"
)

// Valid reports whether the frequency is a supported value.
func (f RecurrenceFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// ExpandWeekdays walks every calendar day from rangeStart through
// rangeEnd inclusive and emits one interval per day whose weekday is in
// the set, using the clock times of dayStart and dayEnd. The result is
// chronological. An empty weekday set, an inverted range, or a day-end
// clock at or before the day-start clock yields no occurrences, and
// output is truncated at MaxWeekdayOccurrences.
func ExpandWeekdays(rangeStart, rangeEnd time.Time, weekdays []time.Weekday, dayStart, dayEnd time.Time, maxOccurrences int) []models.Interval {
	if maxOccurrences <= 0 || maxOccurrences > MaxWeekdayOccurrences {
		maxOccurrences = MaxWeekdayOccurrences
	}
	if len(weekdays) == 0 {
		return nil
	}

	wanted := make(map[time.Weekday]bool, len(weekdays))
	for _, day := range weekdays {
		wanted[day] = true
	}

	startHour, startMin, startSec := dayStart.Clock()
	endHour, endMin, endSec := dayEnd.Clock()

	// Only the clock components are reused per day, so an end clock that
	// does not trail the start clock would invert every interval.
	if secondsOfDay(endHour, endMin, endSec) <= secondsOfDay(startHour, startMin, startSec) {
		return nil
	}

	var occurrences []models.Interval
	day := time.Date(rangeStart.Year(), rangeStart.Month(), rangeStart.Day(), 0, 0, 0, 0, rangeStart.Location())
	last := time.Date(rangeEnd.Year(), rangeEnd.Month(), rangeEnd.Day(), 0, 0, 0, 0, rangeEnd.Location())

	for !day.After(last) {
		if wanted[day.Weekday()] {
			occurrences = append(occurrences, models.Interval{
				Start: time.Date(day.Year(), day.Month(), day.Day(), startHour, startMin, startSec, 0, day.Location()),
				End:   time.Date(day.Year(), day.Month(), day.Day(), endHour, endMin, endSec, 0, day.Location()),
			})
			if len(occurrences) >= maxOccurrences {
				break
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return occurrences
}

// ExpandPattern generates intervals by stepping the start forward per
// the frequency. The first occurrence is the seed itself. Generation
// stops after count occurrences, or when a start would pass until (when
// until is set), whichever comes first. Monthly steps follow AddDate
// semantics, so Jan 31 plus one month normalises into early March.
func ExpandPattern(start, end time.Time, freq RecurrenceFrequency, count int, until *time.Time) []models.Interval {
	if !freq.Valid() || !end.After(start) {
		return nil
	}
	if count <= 0 || count > MaxPatternOccurrences {
		count = MaxPatternOccurrences
	}

	duration := end.Sub(start)
	var occurrences []models.Interval

	cursor := start
	for len(occurrences) < count {
		if until != nil && cursor.After(*until) {
			break
		}
		occurrences = append(occurrences, models.Interval{Start: cursor, End: cursor.Add(duration)})

		switch freq {
		case FrequencyDaily:
			cursor = cursor.AddDate(0, 0, 1)
		case FrequencyWeekly:
			cursor = cursor.AddDate(0, 0, 7)
		case FrequencyMonthly:
			cursor = cursor.AddDate(0, 1, 0)
		}
	}
	return occurrences
}

// IntervalBounds returns the min start and max end across occurrences.
// Callers use it to fetch every potentially conflicting schedule in one
// range query.
func IntervalBounds(occurrences []models.Interval) (time.Time, time.Time) {
	var minStart, maxEnd time.Time
	for i, occ := range occurrences {
		if i == 0 || occ.Start.Before(minStart) {
			minStart = occ.Start
		}
		if i == 0 || occ.End.After(maxEnd) {
			maxEnd = occ.End
		}
	}
	return minStart, maxEnd
}

func secondsOfDay(hour, min, sec int) int {
	return hour*3600 + min*60 + sec
}

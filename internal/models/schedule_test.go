package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleStatusTransitions(t *testing.T) {
	cases := []struct {
		from    ScheduleStatus
		to      ScheduleStatus
		allowed bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusExpired, false},
		{StatusPending, StatusCompleted, false},
		{StatusApproved, StatusExpired, true},
		{StatusApproved, StatusCompleted, true},
		{StatusApproved, StatusCancelled, true},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
		{StatusCancelled, StatusPending, false},
		{StatusExpired, StatusApproved, false},
		{StatusCompleted, StatusCancelled, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestScheduleStatusIsLive(t *testing.T) {
	assert.True(t, StatusPending.IsLive())
	assert.True(t, StatusApproved.IsLive())
	assert.False(t, StatusRejected.IsLive())
	assert.False(t, StatusCancelled.IsLive())
	assert.False(t, StatusExpired.IsLive())
	assert.False(t, StatusCompleted.IsLive())
}

func TestIntervalOverlapsHalfOpen(t *testing.T) {
	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)
	interval := Interval{Start: start, End: start.Add(time.Hour)}

	assert.True(t, interval.Overlaps(start.Add(30*time.Minute), start.Add(90*time.Minute)))
	assert.True(t, interval.Overlaps(start.Add(-30*time.Minute), start.Add(30*time.Minute)))
	assert.True(t, interval.Overlaps(start.Add(15*time.Minute), start.Add(45*time.Minute)))

	// A shared edge is not an overlap.
	assert.False(t, interval.Overlaps(start.Add(time.Hour), start.Add(2*time.Hour)))
	assert.False(t, interval.Overlaps(start.Add(-time.Hour), start))
}

func TestKeyVerificationTime(t *testing.T) {
	start := time.Date(2026, 2, 17, 18, 0, 0, 0, time.UTC)
	schedule := Schedule{StartTime: start, EndTime: start.Add(50 * time.Minute)}

	assert.Equal(t, start.Add(20*time.Minute), schedule.KeyVerificationTime())

	// Fractional seconds truncate toward the start.
	schedule.EndTime = start.Add(71 * time.Second)
	assert.Equal(t, start.Add(28*time.Second), schedule.KeyVerificationTime())
}

func TestInstructorInitials(t *testing.T) {
	assert.Equal(t, "J.D. Cruz", InstructorInitials("Juan Dela Cruz"))
	assert.Equal(t, "M. Garcia", InstructorInitials("Maria Garcia"))
	assert.Equal(t, "Garcia", InstructorInitials("Garcia"))
	assert.Equal(t, "", InstructorInitials("   "))
}

func TestEventTitle(t *testing.T) {
	section := "BSCS 3-A"
	instructor := "Juan Dela Cruz"
	schedule := Schedule{Subject: "Operating Systems", ProgramYearSection: &section, Instructor: &instructor}

	assert.Equal(t, "Operating Systems (BSCS 3-A) - J.D. Cruz", schedule.EventTitle())

	schedule.ProgramYearSection = nil
	schedule.Instructor = nil
	assert.Equal(t, "Operating Systems", schedule.EventTitle())
}

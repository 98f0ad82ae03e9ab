package models

import "time"

// ScheduleSearch is the compiled form of a free-text search query: the
// text words (every word must match at least one searchable field) plus
// an optional time constraint derived from a date-like fragment.
type ScheduleSearch struct {
	Words []string

	// Instant constrains to schedules covering this exact moment.
	Instant *time.Time
	// RangeStart/RangeEnd constrain to schedules overlapping the span
	// (whole day or whole month for bare dates).
	RangeStart *time.Time
	RangeEnd   *time.Time

	Limit int
}

// HasDateConstraint reports whether any time constraint was parsed.
func (s ScheduleSearch) HasDateConstraint() bool {
	return s.Instant != nil || (s.RangeStart != nil && s.RangeEnd != nil)
}

// ScheduleSearchResult is a schedule joined with the display names used
// for matching and presentation.
type ScheduleSearchResult struct {
	Schedule
	RoomNumber    *string `db:"room_number" json:"room_number,omitempty"`
	RequesterName *string `db:"requester_name" json:"requester_name,omitempty"`
	ApproverName  *string `db:"approver_name" json:"approver_name,omitempty"`
}

// Summary renders the one-line search result:
// "Feb 17, 2026 6:30 PM – 8:30 PM · Methods (BSIT 3-1) - J. Garcia".
func (r ScheduleSearchResult) Summary() string {
	title := r.EventTitle()
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return title
	}
	return FormatTimeRange(r.StartTime, r.EndTime) + " · " + title
}

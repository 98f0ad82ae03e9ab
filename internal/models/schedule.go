package models

import (
	"fmt"
	"strings"
	"time"
)

// ScheduleStatus enumerates the lifecycle states of a reservation.
type ScheduleStatus string

const (
	StatusPending   ScheduleStatus = "PENDING"
	StatusApproved  ScheduleStatus = "APPROVED"
	StatusRejected  ScheduleStatus = "REJECTED"
	StatusCancelled ScheduleStatus = "CANCELLED"
	StatusCompleted ScheduleStatus = "COMPLETED"
	StatusExpired   ScheduleStatus = "EXPIRED"
)

// LiveStatuses are the statuses that occupy a room slot and therefore
// participate in overlap checks.
var LiveStatuses = []ScheduleStatus{StatusPending, StatusApproved}

// AllScheduleStatuses lists every valid status value.
var AllScheduleStatuses = []ScheduleStatus{
	StatusPending, StatusApproved, StatusRejected,
	StatusCancelled, StatusCompleted, StatusExpired,
}

// Valid reports whether the value is a known status.
func (s ScheduleStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// IsLive reports whether the status occupies a room slot.
func (s ScheduleStatus) IsLive() bool {
	return s == StatusPending || s == StatusApproved
}

// IsTerminal reports whether the status admits no further transitions.
func (s ScheduleStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// CanTransitionTo encodes the lifecycle state machine. Pending moves to
// Approved, Rejected or Cancelled; Approved moves to Expired, Completed
// or Cancelled; terminal states admit nothing.
func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	switch s {
	case StatusPending:
		switch next {
		case StatusApproved, StatusRejected, StatusCancelled:
			return true
		}
		return false
	case StatusApproved:
		switch next {
		case StatusExpired, StatusCompleted, StatusCancelled:
			return true
		}
		return false
	case StatusRejected, StatusCancelled, StatusCompleted, StatusExpired:
		return false
	}
	return false
}

// ScheduleType distinguishes one-off bookings from recurring templates.
type ScheduleType string

const (
	// TypeRequest is a concrete booking: a one-off reservation or a
	// priority override of a template slot.
	TypeRequest ScheduleType = "REQUEST"
	// TypeTemplate is a recurring baseline slot that a priority request
	// may override.
	TypeTemplate ScheduleType = "TEMPLATE"
)

// Valid reports whether the value is a known type.
func (t ScheduleType) Valid() bool {
	return t == TypeRequest || t == TypeTemplate
}

// Schedule is a room reservation. RoomID stays nil on request-type
// schedules until an admin assigns the final room at approval time.
// TemplateID is only set on request schedules created as overrides of a
// template slot.
type Schedule struct {
	ID                 string         `db:"id" json:"id"`
	RoomID             *string        `db:"room_id" json:"room_id,omitempty"`
	RequesterID        *string        `db:"requester_id" json:"requester_id,omitempty"`
	ApproverID         *string        `db:"approver_id" json:"approver_id,omitempty"`
	TemplateID         *string        `db:"template_id" json:"template_id,omitempty"`
	IsPriority         bool           `db:"is_priority" json:"is_priority"`
	Subject            string         `db:"subject" json:"subject"`
	ProgramYearSection *string        `db:"program_year_section" json:"program_year_section,omitempty"`
	Instructor         *string        `db:"instructor" json:"instructor,omitempty"`
	Status             ScheduleStatus `db:"status" json:"status"`
	Type               ScheduleType   `db:"type" json:"type"`
	StartTime          time.Time      `db:"start_time" json:"start_time"`
	EndTime            time.Time      `db:"end_time" json:"end_time"`
	Remarks            *string        `db:"remarks" json:"remarks,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Duration returns the booked length of the slot.
func (s *Schedule) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// KeyVerificationTime is the moment 40% of the slot duration has elapsed
// from the start, truncated to whole seconds. The key-usage verifier
// fires at this point.
func (s *Schedule) KeyVerificationTime() time.Time {
	delay := time.Duration(int64(float64(s.EndTime.Sub(s.StartTime).Seconds())*0.4)) * time.Second
	return s.StartTime.Add(delay)
}

// EventTitle renders the calendar label: "subject (section) - initials".
func (s *Schedule) EventTitle() string {
	title := s.Subject
	if s.ProgramYearSection != nil && *s.ProgramYearSection != "" {
		title += " (" + *s.ProgramYearSection + ")"
	}
	if s.Instructor != nil && *s.Instructor != "" {
		title += " - " + InstructorInitials(*s.Instructor)
	}
	return title
}

// InstructorInitials shortens "Juan Dela Cruz" to "J.D. Cruz". A single
// name is returned as-is.
func InstructorInitials(name string) string {
	parts := strings.Fields(strings.TrimSpace(name))
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	last := parts[len(parts)-1]
	var initials strings.Builder
	for _, part := range parts[:len(parts)-1] {
		initials.WriteString(strings.ToUpper(part[:1]))
		initials.WriteString(".")
	}
	return initials.String() + " " + last
}

// Interval is a half-open candidate time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect. Touching
// edges do not overlap, so back-to-back bookings are legal.
func (i Interval) Overlaps(start, end time.Time) bool {
	return i.Start.Before(end) && i.End.After(start)
}

// Key returns the canonical map key for batch conflict results.
func (i Interval) Key() string {
	return i.Start.Format(time.RFC3339) + "-" + i.End.Format(time.RFC3339)
}

// ScheduleConflict summarises an existing schedule that blocks a
// candidate interval.
type ScheduleConflict struct {
	ScheduleID         string    `db:"schedule_id" json:"schedule_id"`
	StartTime          time.Time `db:"start_time" json:"start_time"`
	EndTime            time.Time `db:"end_time" json:"end_time"`
	Subject            string    `db:"subject" json:"subject"`
	ProgramYearSection *string   `db:"program_year_section" json:"program_year_section,omitempty"`
	Instructor         *string   `db:"instructor" json:"instructor,omitempty"`
}

// Label renders a human-readable "conflicts with ..." description.
func (c ScheduleConflict) Label() string {
	parts := []string{c.Subject}
	if c.ProgramYearSection != nil && *c.ProgramYearSection != "" {
		parts = append(parts, "("+*c.ProgramYearSection+")")
	}
	if c.Instructor != nil && *c.Instructor != "" {
		parts = append(parts, "- "+*c.Instructor)
	}
	label := strings.Join(parts, " ")
	if strings.TrimSpace(label) == "" {
		return "Existing Schedule"
	}
	return label
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	RoomID      string
	RequesterID string
	Statuses    []ScheduleStatus
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// CalendarEvent is a schedule shaped for calendar rendering.
type CalendarEvent struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Color      string    `json:"color"`
	Pending    bool      `json:"pending"`
	Template   bool      `json:"template"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// FormatTimeRange renders "Feb 17, 2026 6:30 PM – 8:30 PM" for search
// result summaries and conflict messages.
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s – %s", start.Format("Jan 2, 2006 3:04 PM"), end.Format("3:04 PM"))
}

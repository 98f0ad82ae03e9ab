package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
	appErrors "github.com/noah-isme/classroom-reservation-api/pkg/errors"
)

type bulkScheduleRepository interface {
	ListOverlappingRange(ctx context.Context, roomID string, statuses []models.ScheduleStatus, minStart, maxEnd time.Time) ([]models.ScheduleConflict, error)
	BulkCreate(ctx context.Context, schedules []models.Schedule) error
}

// defaultSlotMinutes is assumed when a bulk request carries neither an
// explicit end nor a duration.
const defaultSlotMinutes = 60

// BulkWeekdayRequest generates recurring template slots on selected
// weekdays across a date range, e.g. a semester timetable. DayEnd may
// be omitted in favour of a duration in minutes.
type BulkWeekdayRequest struct {
	RoomID             string    `json:"room_id" validate:"required"`
	Subject            string    `json:"subject" validate:"required,max=255"`
	ProgramYearSection *string   `json:"program_year_section" validate:"omitempty,max=100"`
	Instructor         *string   `json:"instructor" validate:"omitempty,max=255"`
	RangeStart         time.Time `json:"range_start" validate:"required"`
	RangeEnd           time.Time `json:"range_end" validate:"required"`
	DayStart           time.Time `json:"day_start" validate:"required"`
	DayEnd             time.Time `json:"day_end"`
	DurationMinutes    int       `json:"duration_minutes" validate:"omitempty,min=1"`
	Weekdays           []string  `json:"weekdays" validate:"required,min=1,dive,oneof=sunday monday tuesday wednesday thursday friday saturday"`
}

// BulkPatternRequest generates template slots by repeating a seed slot
// at a fixed frequency. EndTime may be omitted in favour of a duration
// in minutes.
type BulkPatternRequest struct {
	RoomID             string     `json:"room_id" validate:"required"`
	Subject            string     `json:"subject" validate:"required,max=255"`
	ProgramYearSection *string    `json:"program_year_section" validate:"omitempty,max=100"`
	Instructor         *string    `json:"instructor" validate:"omitempty,max=255"`
	StartTime          time.Time  `json:"start_time" validate:"required"`
	EndTime            time.Time  `json:"end_time"`
	DurationMinutes    int        `json:"duration_minutes" validate:"omitempty,min=1"`
	Frequency          string     `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Count              int        `json:"count" validate:"omitempty,min=1"`
	Until              *time.Time `json:"until"`
}

// BulkScheduleService expands recurrence requests into concrete slots
// and commits them atomically.
type BulkScheduleService struct {
	repo      bulkScheduleRepository
	rooms     roomFinder
	calendar  calendarInvalidator
	validator *validator.Validate
	logger    *zap.Logger

	maxWeekdayOccurrences int
	maxPatternOccurrences int
}

// NewBulkScheduleService constructs a BulkScheduleService.
func NewBulkScheduleService(repo bulkScheduleRepository, rooms roomFinder, calendar calendarInvalidator, validate *validator.Validate, logger *zap.Logger, maxWeekday, maxPattern int) *BulkScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxWeekday <= 0 {
		maxWeekday = MaxWeekdayOccurrences
	}
	if maxPattern <= 0 {
		maxPattern = MaxPatternOccurrences
	}
	return &BulkScheduleService{
		repo:                  repo,
		rooms:                 rooms,
		calendar:              calendar,
		validator:             validate,
		logger:                logger,
		maxWeekdayOccurrences: maxWeekday,
		maxPatternOccurrences: maxPattern,
	}
}

// GenerateWeekdays expands and commits a weekday timetable. Any
// conflict aborts the whole batch; the error details carry every
// conflicting occurrence keyed by its interval.
func (s *BulkScheduleService) GenerateWeekdays(ctx context.Context, approverID string, req BulkWeekdayRequest) ([]models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk schedule payload")
	}
	req.DayEnd = resolveBulkEnd(req.DayStart, req.DayEnd, req.DurationMinutes)

	// Only the clock components repeat per day; an end clock at or
	// before the start clock would invert every generated interval.
	sh, sm, ss := req.DayStart.Clock()
	eh, em, es := req.DayEnd.Clock()
	if secondsOfDay(eh, em, es) <= secondsOfDay(sh, sm, ss) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "day end must fall after day start within the same day")
	}

	weekdays := make([]time.Weekday, 0, len(req.Weekdays))
	for _, name := range req.Weekdays {
		day, ok := parseWeekday(name)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown weekday: "+name)
		}
		weekdays = append(weekdays, day)
	}

	occurrences := ExpandWeekdays(req.RangeStart, req.RangeEnd, weekdays, req.DayStart, req.DayEnd, s.maxWeekdayOccurrences)
	return s.commit(ctx, approverID, req.RoomID, req.Subject, req.ProgramYearSection, req.Instructor, occurrences)
}

// GeneratePattern expands and commits a fixed-frequency recurrence.
func (s *BulkScheduleService) GeneratePattern(ctx context.Context, approverID string, req BulkPatternRequest) ([]models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk schedule payload")
	}
	req.EndTime = resolveBulkEnd(req.StartTime, req.EndTime, req.DurationMinutes)
	if !req.EndTime.After(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	count := req.Count
	if count <= 0 || count > s.maxPatternOccurrences {
		count = s.maxPatternOccurrences
	}
	occurrences := ExpandPattern(req.StartTime, req.EndTime, RecurrenceFrequency(req.Frequency), count, req.Until)
	return s.commit(ctx, approverID, req.RoomID, req.Subject, req.ProgramYearSection, req.Instructor, occurrences)
}

// CheckConflicts matches candidate occurrences against existing live
// schedules of the room. One bounded range query feeds an in-memory
// scan; the result maps each conflicting interval to the schedules
// blocking it. An empty map means the whole batch is clear.
func (s *BulkScheduleService) CheckConflicts(ctx context.Context, roomID string, occurrences []models.Interval) (map[string][]models.ScheduleConflict, error) {
	if len(occurrences) == 0 {
		return map[string][]models.ScheduleConflict{}, nil
	}

	minStart, maxEnd := IntervalBounds(occurrences)
	existing, err := s.repo.ListOverlappingRange(ctx, roomID, models.LiveStatuses, minStart, maxEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check batch conflicts")
	}
	return matchConflicts(occurrences, existing), nil
}

func (s *BulkScheduleService) commit(ctx context.Context, approverID, roomID, subject string, section, instructor *string, occurrences []models.Interval) ([]models.Schedule, error) {
	if len(occurrences) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recurrence produced no occurrences")
	}

	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	conflicts, err := s.CheckConflicts(ctx, roomID, occurrences)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrScheduleConflict, "batch conflicts with existing schedules"),
			conflicts)
	}

	schedules := make([]models.Schedule, len(occurrences))
	for i, occ := range occurrences {
		rid := roomID
		aid := approverID
		schedules[i] = models.Schedule{
			RoomID:             &rid,
			ApproverID:         &aid,
			Subject:            subject,
			ProgramYearSection: normalizeOptional(section),
			Instructor:         normalizeOptional(instructor),
			Status:             models.StatusApproved,
			Type:               models.TypeTemplate,
			StartTime:          occ.Start.UTC(),
			EndTime:            occ.End.UTC(),
		}
	}

	if err := s.repo.BulkCreate(ctx, schedules); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert generated schedules")
	}

	s.logger.Info("bulk schedules created",
		zap.String("room_id", roomID),
		zap.Int("count", len(schedules)))

	if s.calendar != nil {
		if err := s.calendar.InvalidateCalendar(ctx); err != nil {
			s.logger.Warn("failed to invalidate calendar cache", zap.Error(err))
		}
	}
	return schedules, nil
}

// matchConflicts pairs each candidate interval with every existing
// schedule it overlaps. Pure so it can be tested without a database.
func matchConflicts(occurrences []models.Interval, existing []models.ScheduleConflict) map[string][]models.ScheduleConflict {
	conflicts := make(map[string][]models.ScheduleConflict)
	for _, occ := range occurrences {
		for _, sched := range existing {
			if occ.Overlaps(sched.StartTime, sched.EndTime) {
				conflicts[occ.Key()] = append(conflicts[occ.Key()], sched)
			}
		}
	}
	return conflicts
}

// resolveBulkEnd settles a bulk slot end: an explicit end wins, then a
// duration in minutes, then the default slot length.
func resolveBulkEnd(start, end time.Time, durationMinutes int) time.Time {
	if !end.IsZero() {
		return end
	}
	if durationMinutes <= 0 {
		durationMinutes = defaultSlotMinutes
	}
	return start.Add(time.Duration(durationMinutes) * time.Minute)
}

func parseWeekday(name string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	}
	return time.Sunday, false
}

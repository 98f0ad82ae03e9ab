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

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	HasOverlap(ctx context.Context, roomID string, start, end time.Time, statuses []models.ScheduleStatus, excludeIDs []string) (bool, error)
	ListOverlappingRange(ctx context.Context, roomID string, statuses []models.ScheduleStatus, minStart, maxEnd time.Time) ([]models.ScheduleConflict, error)
	ListPendingForSlot(ctx context.Context, roomID string, start, end time.Time) ([]models.Schedule, error)
	HasOverrideForRequester(ctx context.Context, templateID, requesterID string) (bool, error)
	FindOverrideInWindow(ctx context.Context, templateID string, start, end time.Time) (*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error
	UpdateDecision(ctx context.Context, id string, status models.ScheduleStatus, roomID *string, approverID string, remarks *string) error
}

type roomFinder interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type verifierScheduler interface {
	ScheduleVerification(ctx context.Context, schedule *models.Schedule) error
}

type calendarInvalidator interface {
	InvalidateCalendar(ctx context.Context) error
}

// CreateScheduleRequest represents payload for reserving a slot. The
// room may be left open on a request; the admin then assigns the final
// room at approval time. Either an explicit end time or a duration in
// minutes must be supplied.
type CreateScheduleRequest struct {
	RoomID             *string   `json:"room_id"`
	Subject            string    `json:"subject" validate:"required,max=255"`
	ProgramYearSection *string   `json:"program_year_section" validate:"omitempty,max=100"`
	Instructor         *string   `json:"instructor" validate:"omitempty,max=255"`
	StartTime          time.Time `json:"start_time" validate:"required"`
	EndTime            time.Time `json:"end_time"`
	DurationMinutes    int       `json:"duration_minutes" validate:"omitempty,min=1"`
	Remarks            *string   `json:"remarks" validate:"omitempty,max=1000"`
}

// ApproveScheduleRequest represents an admin approval decision. RoomID
// lets the admin move a room-less request into a final room.
type ApproveScheduleRequest struct {
	RoomID  *string `json:"room_id"`
	Remarks *string `json:"remarks" validate:"omitempty,max=1000"`
}

// RejectScheduleRequest represents an admin rejection. Remarks are
// required so the requester always gets a reason.
type RejectScheduleRequest struct {
	Remarks string `json:"remarks" validate:"required,max=1000"`
}

// OverrideScheduleRequest represents a one-off claim against a
// recurring template slot.
type OverrideScheduleRequest struct {
	Subject            string    `json:"subject" validate:"required,max=255"`
	ProgramYearSection *string   `json:"program_year_section" validate:"omitempty,max=100"`
	Instructor         *string   `json:"instructor" validate:"omitempty,max=255"`
	StartTime          time.Time `json:"start_time" validate:"required"`
	EndTime            time.Time `json:"end_time" validate:"required"`
	Remarks            *string   `json:"remarks" validate:"omitempty,max=1000"`
}

// ScheduleService orchestrates reservation lifecycle operations.
type ScheduleService struct {
	repo      scheduleRepository
	rooms     roomFinder
	verifier  verifierScheduler
	calendar  calendarInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(repo scheduleRepository, rooms roomFinder, verifier verifierScheduler, calendar calendarInvalidator, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, rooms: rooms, verifier: verifier, calendar: calendar, validator: validate, logger: logger}
}

// List returns schedules plus pagination data.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return schedules, pagination, nil
}

// Get returns a schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// ListPendingForSlot returns pending requests competing for the exact
// same room and window, oldest first.
func (s *ScheduleService) ListPendingForSlot(ctx context.Context, roomID string, start, end time.Time) ([]models.Schedule, error) {
	schedules, err := s.repo.ListPendingForSlot(ctx, roomID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending requests")
	}
	return schedules, nil
}

// CreateRequest files a reservation request. The slot must be free of
// pending and approved schedules in the same room.
func (s *ScheduleService) CreateRequest(ctx context.Context, requesterID string, req CreateScheduleRequest) (*models.Schedule, error) {
	schedule, err := s.buildSchedule(ctx, req, &requesterID, nil, models.StatusPending)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule request")
	}
	s.logger.Info("schedule request created",
		zap.String("schedule_id", schedule.ID),
		zap.Stringp("room_id", schedule.RoomID),
		zap.Time("start_time", schedule.StartTime))
	s.invalidateCalendar(ctx)
	return schedule, nil
}

// CreateApproved lets an admin book a slot directly, skipping the
// request step. The same overlap rules apply.
func (s *ScheduleService) CreateApproved(ctx context.Context, approverID string, req CreateScheduleRequest) (*models.Schedule, error) {
	schedule, err := s.buildSchedule(ctx, req, nil, &approverID, models.StatusApproved)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.logger.Info("schedule created as approved",
		zap.String("schedule_id", schedule.ID),
		zap.String("approver_id", approverID))
	s.scheduleKeyVerification(ctx, schedule)
	s.invalidateCalendar(ctx)
	return schedule, nil
}

// Approve moves a pending schedule to approved. The final room must be
// known, either already on the schedule or supplied in the decision,
// and must still be free at approval time.
func (s *ScheduleService) Approve(ctx context.Context, id, approverID string, req ApproveScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}

	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !schedule.Status.CanTransitionTo(models.StatusApproved) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only pending schedules can be approved")
	}

	roomID := schedule.RoomID
	if req.RoomID != nil && *req.RoomID != "" {
		roomID = req.RoomID
	}
	if roomID == nil || *roomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a room must be assigned before approval")
	}

	excludeIDs := []string{schedule.ID}
	if schedule.TemplateID != nil {
		excludeIDs = append(excludeIDs, *schedule.TemplateID)
	}
	if err := s.ensureSlotFree(ctx, *roomID, schedule.StartTime, schedule.EndTime, excludeIDs); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateDecision(ctx, id, models.StatusApproved, roomID, approverID, req.Remarks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve schedule")
	}

	schedule.Status = models.StatusApproved
	schedule.RoomID = roomID
	schedule.ApproverID = &approverID
	if req.Remarks != nil {
		schedule.Remarks = req.Remarks
	}

	s.logger.Info("schedule approved",
		zap.String("schedule_id", id),
		zap.String("approver_id", approverID),
		zap.String("room_id", *roomID))
	s.scheduleKeyVerification(ctx, schedule)
	s.invalidateCalendar(ctx)
	return schedule, nil
}

// Reject declines a pending schedule with a mandatory reason.
func (s *ScheduleService) Reject(ctx context.Context, id, approverID string, req RejectScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection remarks are required")
	}

	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !schedule.Status.CanTransitionTo(models.StatusRejected) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only pending schedules can be rejected")
	}

	remarks := req.Remarks
	if err := s.repo.UpdateDecision(ctx, id, models.StatusRejected, nil, approverID, &remarks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject schedule")
	}

	schedule.Status = models.StatusRejected
	schedule.ApproverID = &approverID
	schedule.Remarks = &remarks

	s.logger.Info("schedule rejected", zap.String("schedule_id", id), zap.String("approver_id", approverID))
	s.invalidateCalendar(ctx)
	return schedule, nil
}

// Cancel withdraws a schedule. Requesters may only cancel their own
// pending requests; admins may cancel pending or approved schedules.
func (s *ScheduleService) Cancel(ctx context.Context, id, userID string, isAdmin bool) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !schedule.Status.CanTransitionTo(models.StatusCancelled) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "schedule can no longer be cancelled")
	}
	if !isAdmin {
		if schedule.Status != models.StatusPending {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only pending requests can be cancelled by the requester")
		}
		if schedule.RequesterID == nil || *schedule.RequesterID != userID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "schedule belongs to another requester")
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, models.StatusCancelled); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel schedule")
	}

	schedule.Status = models.StatusCancelled
	s.logger.Info("schedule cancelled", zap.String("schedule_id", id), zap.String("user_id", userID))
	s.invalidateCalendar(ctx)
	return schedule, nil
}

// Complete marks an approved schedule as finished.
func (s *ScheduleService) Complete(ctx context.Context, id string) (*models.Schedule, error) {
	return s.transition(ctx, id, models.StatusCompleted, "only approved schedules can be completed")
}

// Expire marks an approved schedule as unused. The key-usage verifier
// calls this when the room key was never taken.
func (s *ScheduleService) Expire(ctx context.Context, id string) (*models.Schedule, error) {
	return s.transition(ctx, id, models.StatusExpired, "only approved schedules can expire")
}

// RequestOverride files a priority claim against one occurrence of a
// recurring template. The template stays in place; an approved override
// simply hides it for that window.
func (s *ScheduleService) RequestOverride(ctx context.Context, templateID, requesterID string, req OverrideScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	template, err := s.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if template.Type != models.TypeTemplate {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule is not a recurring template")
	}
	if template.RoomID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "template has no room assigned")
	}

	taken, err := s.repo.HasOverrideForRequester(ctx, templateID, requesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing overrides")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrScheduleConflict, "you already have an override request for this template")
	}

	blocking, err := s.repo.FindOverrideInWindow(ctx, templateID, req.StartTime, req.EndTime)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing overrides")
	}
	if blocking != nil {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrScheduleConflict, "another override already claims this slot"),
			models.ScheduleConflict{
				ScheduleID:         blocking.ID,
				StartTime:          blocking.StartTime,
				EndTime:            blocking.EndTime,
				Subject:            blocking.Subject,
				ProgramYearSection: blocking.ProgramYearSection,
				Instructor:         blocking.Instructor,
			})
	}

	// The template itself always occupies the slot; exclude it so the
	// override is only blocked by other live schedules.
	if err := s.ensureSlotFree(ctx, *template.RoomID, req.StartTime, req.EndTime, []string{templateID}); err != nil {
		return nil, err
	}

	override := &models.Schedule{
		RoomID:             template.RoomID,
		RequesterID:        &requesterID,
		TemplateID:         &template.ID,
		IsPriority:         true,
		Subject:            req.Subject,
		ProgramYearSection: normalizeOptional(req.ProgramYearSection),
		Instructor:         normalizeOptional(req.Instructor),
		Status:             models.StatusPending,
		Type:               models.TypeRequest,
		StartTime:          req.StartTime.UTC(),
		EndTime:            req.EndTime.UTC(),
		Remarks:            normalizeOptional(req.Remarks),
	}
	if err := s.repo.Create(ctx, override); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create override request")
	}

	s.logger.Info("override requested",
		zap.String("schedule_id", override.ID),
		zap.String("template_id", templateID),
		zap.String("requester_id", requesterID))
	s.invalidateCalendar(ctx)
	return override, nil
}

func (s *ScheduleService) transition(ctx context.Context, id string, next models.ScheduleStatus, message string) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !schedule.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, message)
	}
	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule status")
	}
	schedule.Status = next
	s.logger.Info("schedule status changed", zap.String("schedule_id", id), zap.String("status", string(next)))
	s.invalidateCalendar(ctx)
	return schedule, nil
}

func (s *ScheduleService) buildSchedule(ctx context.Context, req CreateScheduleRequest, requesterID, approverID *string, status models.ScheduleStatus) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	endTime, err := resolveEndTime(req.StartTime, req.EndTime, req.DurationMinutes)
	if err != nil {
		return nil, err
	}
	req.EndTime = endTime

	roomID := normalizeOptional(req.RoomID)
	if roomID == nil && status == models.StatusApproved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a room is required to book a slot directly")
	}

	// A room-less request carries no slot claim yet; the overlap check
	// waits until a room is assigned.
	if roomID != nil {
		if _, err := s.rooms.FindByID(ctx, *roomID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
		}
		if err := s.ensureSlotFree(ctx, *roomID, req.StartTime, req.EndTime, nil); err != nil {
			return nil, err
		}
	}

	return &models.Schedule{
		RoomID:             roomID,
		RequesterID:        requesterID,
		ApproverID:         approverID,
		Subject:            req.Subject,
		ProgramYearSection: normalizeOptional(req.ProgramYearSection),
		Instructor:         normalizeOptional(req.Instructor),
		Status:             status,
		Type:               models.TypeRequest,
		StartTime:          req.StartTime.UTC(),
		EndTime:            req.EndTime.UTC(),
		Remarks:            normalizeOptional(req.Remarks),
	}, nil
}

func (s *ScheduleService) ensureSlotFree(ctx context.Context, roomID string, start, end time.Time, excludeIDs []string) error {
	conflict, err := s.repo.HasOverlap(ctx, roomID, start, end, models.LiveStatuses, excludeIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot availability")
	}
	if conflict {
		return appErrors.Clone(appErrors.ErrScheduleConflict, "the room is already reserved for this time")
	}
	return nil
}

// scheduleKeyVerification queues the delayed key-usage check. A missing
// or disabled key, or a queue error, never fails the approval itself.
func (s *ScheduleService) scheduleKeyVerification(ctx context.Context, schedule *models.Schedule) {
	if s.verifier == nil {
		return
	}
	if err := s.verifier.ScheduleVerification(ctx, schedule); err != nil {
		s.logger.Warn("failed to schedule key verification",
			zap.String("schedule_id", schedule.ID),
			zap.Error(err))
	}
}

func (s *ScheduleService) invalidateCalendar(ctx context.Context) {
	if s.calendar == nil {
		return
	}
	if err := s.calendar.InvalidateCalendar(ctx); err != nil {
		s.logger.Warn("failed to invalidate calendar cache", zap.Error(err))
	}
}

// resolveEndTime settles the slot end: an explicit end time wins, a
// duration in minutes derives one from the start, and supplying neither
// is an error.
func resolveEndTime(start, end time.Time, durationMinutes int) (time.Time, error) {
	if end.IsZero() {
		if durationMinutes <= 0 {
			return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "either end_time or duration_minutes is required")
		}
		return start.Add(time.Duration(durationMinutes) * time.Minute), nil
	}
	if !end.After(start) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	return end, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

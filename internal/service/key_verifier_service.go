package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
	"github.com/noah-isme/classroom-reservation-api/pkg/jobs"
)

// JobTypeVerifyKeyUsage identifies delayed key-usage checks in the queue.
const JobTypeVerifyKeyUsage = "verify_key_usage"

type verifierScheduleRepository interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error
}

type verifierRoomRepository interface {
	FindKeyByRoom(ctx context.Context, roomID string) (*models.Key, error)
}

type delayedEnqueuer interface {
	Enqueue(ctx context.Context, job jobs.Job, runAt time.Time) error
}

// KeyVerifierService expires approved reservations whose room key was
// never picked up. Each approval queues a durable check that fires once
// 40% of the slot has elapsed; at fire time the schedule is reloaded so
// cancellations and rejections in between simply turn the job into a
// no-op.
type KeyVerifierService struct {
	schedules verifierScheduleRepository
	rooms     verifierRoomRepository
	queue     delayedEnqueuer
	calendar  calendarInvalidator
	logger    *zap.Logger
}

// NewKeyVerifierService constructs a KeyVerifierService.
func NewKeyVerifierService(schedules verifierScheduleRepository, rooms verifierRoomRepository, queue delayedEnqueuer, calendar calendarInvalidator, logger *zap.Logger) *KeyVerifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyVerifierService{schedules: schedules, rooms: rooms, queue: queue, calendar: calendar, logger: logger}
}

// ScheduleVerification queues the delayed check for an approved
// schedule. Schedules without a room, without a key, or with a disabled
// key are skipped: there is nothing to verify.
func (s *KeyVerifierService) ScheduleVerification(ctx context.Context, schedule *models.Schedule) error {
	if schedule.RoomID == nil {
		return nil
	}

	key, err := s.rooms.FindKeyByRoom(ctx, *schedule.RoomID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}
	if key.Status == models.KeyDisabled {
		return nil
	}

	fireAt := schedule.KeyVerificationTime()
	job := jobs.Job{Type: JobTypeVerifyKeyUsage, Payload: schedule.ID}
	if err := s.queue.Enqueue(ctx, job, fireAt); err != nil {
		return err
	}

	s.logger.Info("key verification scheduled",
		zap.String("schedule_id", schedule.ID),
		zap.Time("fire_at", fireAt))
	return nil
}

// HandleVerifyKeyUsage runs when a queued check comes due. The schedule
// is loaded fresh; only a still-approved schedule whose key sits in the
// cabinet gets expired.
func (s *KeyVerifierService) HandleVerifyKeyUsage(ctx context.Context, job jobs.Job) error {
	schedule, err := s.schedules.FindByID(ctx, job.Payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}

	if schedule.Status != models.StatusApproved {
		s.logger.Debug("key verification skipped",
			zap.String("schedule_id", schedule.ID),
			zap.String("status", string(schedule.Status)))
		return nil
	}
	if schedule.RoomID == nil {
		return nil
	}

	key, err := s.rooms.FindKeyByRoom(ctx, *schedule.RoomID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}

	if key.Status != models.KeyStored {
		return nil
	}

	if err := s.schedules.UpdateStatus(ctx, schedule.ID, models.StatusExpired); err != nil {
		return err
	}

	s.logger.Info("schedule expired, key never used",
		zap.String("schedule_id", schedule.ID),
		zap.String("room_id", *schedule.RoomID))

	if s.calendar != nil {
		if err := s.calendar.InvalidateCalendar(ctx); err != nil {
			s.logger.Warn("failed to invalidate calendar cache", zap.Error(err))
		}
	}
	return nil
}

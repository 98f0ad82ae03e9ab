package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
	appErrors "github.com/noah-isme/classroom-reservation-api/pkg/errors"
)

type keyRoomRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindKeyBySlot(ctx context.Context, slotNumber int) (*models.Key, error)
	UpdateKeyStatus(ctx context.Context, keyID string, status models.KeyStatus) error
}

// KeyStatusUpdate is the payload the key cabinet reports when a key is
// taken or returned. Slots are identified by number because the cabinet
// firmware knows nothing about room ids.
type KeyStatusUpdate struct {
	SlotNumber int    `json:"slot_number" validate:"required,min=1"`
	Status     string `json:"status" validate:"required,oneof=USED STORED DISABLED"`
}

// KeyService handles room listings and key cabinet status ingestion.
type KeyService struct {
	rooms     keyRoomRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewKeyService constructs a KeyService.
func NewKeyService(rooms keyRoomRepository, validate *validator.Validate, logger *zap.Logger) *KeyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyService{rooms: rooms, validator: validate, logger: logger}
}

// ListRooms returns rooms with their keys, optionally active only.
func (s *KeyService) ListRooms(ctx context.Context, activeOnly bool) ([]models.Room, error) {
	rooms, err := s.rooms.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// GetRoom returns a room with its key.
func (s *KeyService) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// ApplyStatusUpdate records a key state reported by the cabinet. An
// unknown slot number is a 404 so misconfigured hardware shows up in
// the cabinet's own logs.
func (s *KeyService) ApplyStatusUpdate(ctx context.Context, update KeyStatusUpdate) (*models.Key, error) {
	if err := s.validator.Struct(update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid key status payload")
	}

	status := models.KeyStatus(update.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown key status: "+update.Status)
	}

	key, err := s.rooms.FindKeyBySlot(ctx, update.SlotNumber)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no key registered for slot")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load key")
	}

	if err := s.rooms.UpdateKeyStatus(ctx, key.ID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update key status")
	}

	key.Status = status
	s.logger.Info("key status updated",
		zap.Int("slot_number", update.SlotNumber),
		zap.String("status", update.Status))
	return key, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
)

const roomColumns = "id, room_number, name, type, capacity, active, created_at, updated_at"
const keyColumns = "id, room_id, slot_number, status, created_at, updated_at"

// RoomRepository provides persistence for rooms and their physical keys.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// List returns rooms, optionally restricted to active ones.
func (r *RoomRepository) List(ctx context.Context, activeOnly bool) ([]models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms", roomColumns)
	if activeOnly {
		query += " WHERE active = TRUE"
	}
	query += " ORDER BY room_number ASC"

	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// FindByID fetches a room together with its key, when one is assigned.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE id = $1", roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}

	keyQuery := fmt.Sprintf("SELECT %s FROM keys WHERE room_id = $1", keyColumns)
	var key models.Key
	if err := r.db.GetContext(ctx, &key, keyQuery, id); err != nil {
		if err == sql.ErrNoRows {
			return &room, nil
		}
		return nil, fmt.Errorf("find room key: %w", err)
	}
	room.Key = &key
	return &room, nil
}

// FindKeyByRoom fetches the key assigned to the room.
func (r *RoomRepository) FindKeyByRoom(ctx context.Context, roomID string) (*models.Key, error) {
	query := fmt.Sprintf("SELECT %s FROM keys WHERE room_id = $1", keyColumns)
	var key models.Key
	if err := r.db.GetContext(ctx, &key, query, roomID); err != nil {
		return nil, err
	}
	return &key, nil
}

// FindKeyBySlot fetches a key by its cabinet slot number. Slot numbers
// are what the key cabinet hardware reports.
func (r *RoomRepository) FindKeyBySlot(ctx context.Context, slotNumber int) (*models.Key, error) {
	query := fmt.Sprintf("SELECT %s FROM keys WHERE slot_number = $1", keyColumns)
	var key models.Key
	if err := r.db.GetContext(ctx, &key, query, slotNumber); err != nil {
		return nil, err
	}
	return &key, nil
}

// UpdateKeyStatus records the latest state reported for a key.
func (r *RoomRepository) UpdateKeyStatus(ctx context.Context, keyID string, status models.KeyStatus) error {
	const query = `UPDATE keys SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), keyID)
	if err != nil {
		return fmt.Errorf("update key status: %w", err)
	}
	return requireRowAffected(res, "update key status")
}

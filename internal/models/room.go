package models

import "time"

// RoomType categorises a room for display and filtering.
type RoomType string

const (
	RoomTypeClassroom   RoomType = "CLASSROOM"
	RoomTypeLaboratory  RoomType = "LABORATORY"
	RoomTypeLectureHall RoomType = "LECTURE_HALL"
	RoomTypeAVRoom      RoomType = "AV_ROOM"
)

// Room is a reservable classroom. A room owns at most one physical key
// slot in the department key cabinet.
type Room struct {
	ID         string    `db:"id" json:"id"`
	RoomNumber string    `db:"room_number" json:"room_number"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	Capacity   int       `db:"capacity" json:"capacity"`
	RoomType   RoomType  `db:"room_type" json:"room_type"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	Key *Key `db:"-" json:"key,omitempty"`
}

// KeyStatus tracks the physical key slot reported by the cabinet sensor.
type KeyStatus string

const (
	// KeyUsed means the key has been taken out of the cabinet.
	KeyUsed KeyStatus = "USED"
	// KeyStored means the key is sitting in its slot.
	KeyStored KeyStatus = "STORED"
	// KeyDisabled means the slot sensor is out of service; schedules for
	// the room skip key-usage verification.
	KeyDisabled KeyStatus = "DISABLED"
)

// Valid reports whether the value is a known key status.
func (s KeyStatus) Valid() bool {
	switch s {
	case KeyUsed, KeyStored, KeyDisabled:
		return true
	}
	return false
}

// Key is a physical key-slot tracker owned by a room.
type Key struct {
	ID         string    `db:"id" json:"id"`
	RoomID     string    `db:"room_id" json:"room_id"`
	SlotNumber int       `db:"slot_number" json:"slot_number"`
	Status     KeyStatus `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

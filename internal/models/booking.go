package models

import "time"

// Booking is one requested stay for a family over a half-open date range
// [CheckIn, CheckOut). ForcedRoom, when set, pins the booking to exactly
// that room.
type Booking struct {
	ID         string    `db:"id" json:"id"`
	Family     string    `db:"family" json:"family"`
	RoomType   string    `db:"room_type" json:"room_type"`
	CheckIn    time.Time `db:"check_in" json:"check_in"`
	CheckOut   time.Time `db:"check_out" json:"check_out"`
	ForcedRoom string    `db:"forced_room" json:"forced_room,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

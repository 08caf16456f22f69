package models

import "time"

// Room is one assignable unit. The ID is the room label; labels carrying a
// number (e.g. "12", "WC03") participate in rank-based preferences.
type Room struct {
	ID        string    `db:"id" json:"id"`
	RoomType  string    `db:"room_type" json:"room_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

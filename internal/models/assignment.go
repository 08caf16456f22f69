package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AssignmentRun records one persisted solver execution.
type AssignmentRun struct {
	ID              string         `db:"id" json:"id"`
	RequestedAt     time.Time      `db:"requested_at" json:"requested_at"`
	AssignedCount   int            `db:"assigned_count" json:"assigned_count"`
	UnassignedCount int            `db:"unassigned_count" json:"unassigned_count"`
	Complete        bool           `db:"complete" json:"complete"`
	Meta            types.JSONText `db:"meta" json:"meta,omitempty"`
}

// Assignment is one booking-to-room placement within a run.
type Assignment struct {
	ID        string    `db:"id" json:"id"`
	RunID     string    `db:"run_id" json:"run_id"`
	BookingID string    `db:"booking_id" json:"booking_id"`
	RoomID    string    `db:"room_id" json:"room_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yuvalweil/RoomAssignmentSolver/internal/models"
)

// BookingRepository persists booking rows.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// List returns all bookings in insertion order.
func (r *BookingRepository) List(ctx context.Context) ([]models.Booking, error) {
	const query = `SELECT id, family, room_type, check_in, check_out, forced_room, created_at, updated_at FROM bookings ORDER BY created_at, id`
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// FindByID returns a single booking.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	const query = `SELECT id, family, room_type, check_in, check_out, forced_room, created_at, updated_at FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// Create inserts a booking, generating an ID when absent.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, family, room_type, check_in, check_out, forced_room, created_at, updated_at)
		VALUES (:id, :family, :room_type, :check_in, :check_out, :forced_room, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// UpdateForcedRoom pins or unpins a booking to a room.
func (r *BookingRepository) UpdateForcedRoom(ctx context.Context, id, forcedRoom string) error {
	const query = `UPDATE bookings SET forced_room = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, forcedRoom, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update forced room: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("booking %s not found", id)
	}
	return nil
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuvalweil/RoomAssignmentSolver/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestBookingRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	checkIn := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	checkOut := time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "family", "room_type", "check_in", "check_out", "forced_room", "created_at", "updated_at"}).
		AddRow("bk-1", "Levi", "field", checkIn, checkOut, "", checkIn, checkIn).
		AddRow("bk-2", "Mizrahi", "cabin", checkIn, checkOut, "WC03", checkIn, checkIn)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, family, room_type, check_in, check_out, forced_room, created_at, updated_at FROM bookings")).
		WillReturnRows(rows)

	bookings, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "bk-1", bookings[0].ID)
	assert.Equal(t, "field", bookings[0].RoomType)
	assert.Equal(t, "WC03", bookings[1].ForcedRoom)
}

func TestBookingRepositoryCreateGeneratesID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	booking := &models.Booking{
		Family:   "Levi",
		RoomType: "field",
		CheckIn:  time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC),
	}
	err := repo.Create(context.Background(), booking)
	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
	assert.False(t, booking.UpdatedAt.IsZero())
}

func TestBookingRepositoryUpdateForcedRoomMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET forced_room")).
		WithArgs("12", sqlmock.AnyArg(), "bk-99").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateForcedRoom(context.Background(), "bk-99", "12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

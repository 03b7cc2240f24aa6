package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/model"
)

const (
	markPaidSQL      = `UPDATE bookings SET is_paid = 1, paid_at = ? WHERE id = ? AND is_paid = 0`
	bookingExistsSQL = `SELECT 1 FROM bookings WHERE id = ?`
	releaseSeatsSQL  = `DELETE FROM show_occupied_seats WHERE show_id = ? AND booking_id = ?`
	deleteBookingSQL = `DELETE FROM bookings WHERE id = ? AND is_paid = 0`
)

func TestMarkPaid_FlipsPending(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(markPaidSQL).WithArgs(at, 5).WillReturnResult(sqlmock.NewResult(0, 1))

	flipped, err := NewBookingRepo(db).MarkPaid(context.Background(), 5, at)
	require.NoError(t, err)
	assert.True(t, flipped)
}

func TestMarkPaid_AlreadyPaid(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(markPaidSQL).WithArgs(at, 5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(bookingExistsSQL).WithArgs(5).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	flipped, err := NewBookingRepo(db).MarkPaid(context.Background(), 5, at)
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestMarkPaid_Missing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(markPaidSQL).WithArgs(at, 6).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(bookingExistsSQL).WithArgs(6).WillReturnRows(sqlmock.NewRows([]string{"1"}))

	flipped, err := NewBookingRepo(db).MarkPaid(context.Background(), 6, at)
	require.ErrorIs(t, err, model.ErrBookingNotFound)
	assert.False(t, flipped)
}

func TestReleaseBooking(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(releaseSeatsSQL).WithArgs(3, 5).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(deleteBookingSQL).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := NewBookingRepo(db).ReleaseBooking(context.Background(), model.Booking{ID: 5, ShowID: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReleaseBooking_PaidOrGone(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(releaseSeatsSQL).WithArgs(3, 5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(deleteBookingSQL).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := NewBookingRepo(db).ReleaseBooking(context.Background(), model.Booking{ID: 5, ShowID: 3})
	require.ErrorIs(t, err, model.ErrBookingNotFound)
	assert.Zero(t, n)
}

func TestReleaseBooking_SeatDeleteFails(t *testing.T) {
	db, mock := newMock(t)
	boom := errors.New("connection reset")
	mock.ExpectExec(releaseSeatsSQL).WithArgs(3, 5).WillReturnError(boom)

	_, err := NewBookingRepo(db).ReleaseBooking(context.Background(), model.Booking{ID: 5, ShowID: 3})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "release seats")
}

func TestSetPaymentLink_Missing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE bookings SET payment_link = ? WHERE id = ?`).
		WithArgs("https://pay.test/cs_1", 8).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(bookingExistsSQL).WithArgs(8).WillReturnRows(sqlmock.NewRows([]string{"1"}))

	err := NewBookingRepo(db).SetPaymentLink(context.Background(), 8, "https://pay.test/cs_1")
	require.ErrorIs(t, err, model.ErrBookingNotFound)
}

func TestCreateBooking_AssignsID(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO bookings (user_id, show_id, booked_seats, amount_cents, is_paid, payment_link, created_at)
	           VALUES (?, ?, ?, ?, 0, ?, ?)`).
		WithArgs("u1", 3, []byte(`["A1","A2"]`), 2400, "", at).
		WillReturnResult(sqlmock.NewResult(41, 1))

	b := model.Booking{UserID: "u1", ShowID: 3, BookedSeats: []string{"A1", "A2"}, AmountCents: 2400, CreatedAt: at}
	require.NoError(t, NewBookingRepo(db).CreateBooking(context.Background(), &b))
	assert.Equal(t, uint64(41), b.ID)
	assert.False(t, b.IsPaid)
}

func TestBookingStats(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT(*), COALESCE(SUM(amount_cents), 0), COUNT(DISTINCT user_id) FROM bookings WHERE is_paid = 1`).
		WillReturnRows(sqlmock.NewRows([]string{"c", "r", "u"}).AddRow(3, 3600, 2))

	count, revenue, users, err := NewBookingRepo(db).BookingStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, uint64(3600), revenue)
	assert.Equal(t, 2, users)
}

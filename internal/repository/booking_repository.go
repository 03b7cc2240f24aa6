package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
)

// BookingRepo provides access to the bookings table.  A booking's seats are
// stored twice: as the ordered booked_seats JSON array on the booking row
// and as show_occupied_seats rows keyed by booking_id.  ReleaseBooking
// removes both.  All timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.user_id, b.show_id, b.booked_seats, b.amount_cents, b.is_paid,
	b.payment_link, b.paid_at, b.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner, extra ...any) (model.Booking, error) {
	var (
		b     model.Booking
		seats []byte
		paid  sql.NullTime
	)
	dest := append([]any{
		&b.ID, &b.UserID, &b.ShowID, &seats, &b.AmountCents, &b.IsPaid,
		&b.PaymentLink, &paid, &b.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Booking{}, err
	}
	if err := json.Unmarshal(seats, &b.BookedSeats); err != nil {
		return model.Booking{}, fmt.Errorf("decode seats of booking %d: %w", b.ID, err)
	}
	if paid.Valid {
		t := paid.Time
		b.PaidAt = &t
	}
	return b, nil
}

// CreateBooking inserts a pending booking and assigns the generated ID back
// to b.  The caller supplies CreatedAt.
func (r *BookingRepo) CreateBooking(ctx context.Context, b *model.Booking) error {
	seats, err := json.Marshal(b.BookedSeats)
	if err != nil {
		return err
	}
	const q = `INSERT INTO bookings (user_id, show_id, booked_seats, amount_cents, is_paid, payment_link, created_at)
	           VALUES (?, ?, ?, ?, 0, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, b.UserID, b.ShowID, seats, b.AmountCents, b.PaymentLink, b.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.IsPaid = false
	return nil
}

// GetBooking retrieves a booking by id.  It returns model.ErrBookingNotFound
// if there is no matching row.
func (r *BookingRepo) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	return r.getBooking(ctx, id, false)
}

// GetBookingForUpdate is GetBooking with the booking row locked until the
// surrounding transaction ends.  Payment confirmation and expiry release
// both take this lock, so whichever commits first decides the outcome.
func (r *BookingRepo) GetBookingForUpdate(ctx context.Context, id uint64) (model.Booking, error) {
	return r.getBooking(ctx, id, true)
}

func (r *BookingRepo) getBooking(ctx context.Context, id uint64, forUpdate bool) (model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = ?`
	if forUpdate && inTx(ctx) {
		q += ` FOR UPDATE`
	}
	b, err := scanBooking(conn(ctx, r.db).QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, model.ErrBookingNotFound
		}
		return model.Booking{}, err
	}
	return b, nil
}

// ListBookings returns the bookings of userID joined with their show and
// movie, newest first.  An empty userID lists every user's bookings.
func (r *BookingRepo) ListBookings(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	q := `SELECT ` + bookingColumns + `, s.starts_at, m.id, m.title, m.poster_path, m.runtime
          FROM bookings b
          JOIN shows s ON s.id = b.show_id
          JOIN movies m ON m.id = s.movie_id`
	var args []any
	if userID != "" {
		q += ` WHERE b.user_id = ?`
		args = append(args, userID)
	}
	q += ` ORDER BY b.created_at DESC, b.id DESC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingDetail{}
	for rows.Next() {
		var d model.BookingDetail
		b, err := scanBooking(rows, &d.ShowStartsAt, &d.MovieID, &d.MovieTitle, &d.PosterPath, &d.Runtime)
		if err != nil {
			return nil, err
		}
		d.Booking = b
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetPaymentLink overwrites the checkout URL of a booking.
func (r *BookingRepo) SetPaymentLink(ctx context.Context, id uint64, link string) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE bookings SET payment_link = ? WHERE id = ?`, link, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return r.exists(ctx, id)
}

// MarkPaid flips a pending booking to paid.  It reports true only for the
// call that performed the flip; a booking that is already paid yields
// false and no error.  A missing booking yields model.ErrBookingNotFound.
func (r *BookingRepo) MarkPaid(ctx context.Context, id uint64, at time.Time) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE bookings SET is_paid = 1, paid_at = ? WHERE id = ? AND is_paid = 0`, at.UTC(), id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	return false, r.exists(ctx, id)
}

func (r *BookingRepo) exists(ctx context.Context, id uint64) error {
	var one int
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrBookingNotFound
	}
	return err
}

// ReleaseBooking deletes the occupancy rows claimed by b and then the
// booking itself.  It returns the number of seats released.  Callers hold
// the show lock and have re-read the booking with GetBookingForUpdate.
func (r *BookingRepo) ReleaseBooking(ctx context.Context, b model.Booking) (int, error) {
	db := conn(ctx, r.db)
	res, err := db.ExecContext(ctx,
		`DELETE FROM show_occupied_seats WHERE show_id = ? AND booking_id = ?`, b.ShowID, b.ID)
	if err != nil {
		return 0, fmt.Errorf("release seats: %w", err)
	}
	released, _ := res.RowsAffected()
	res, err = db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ? AND is_paid = 0`, b.ID)
	if err != nil {
		return 0, fmt.Errorf("delete booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, model.ErrBookingNotFound
	}
	return int(released), nil
}

// BookingStats aggregates paid bookings: their count, total revenue in
// cents and the number of distinct users who paid.
func (r *BookingRepo) BookingStats(ctx context.Context) (count int, revenue uint64, users int, err error) {
	err = conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount_cents), 0), COUNT(DISTINCT user_id) FROM bookings WHERE is_paid = 1`,
	).Scan(&count, &revenue, &users)
	return count, revenue, users, err
}

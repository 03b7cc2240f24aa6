package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
)

// ShowRepo manages persistence for shows and their seat occupancy.  The
// occupancy map of a show is stored as one show_occupied_seats row per held
// seat and reassembled on every read.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

const showColumns = `id, movie_id, starts_at, price_cents, created_at`

// CreateShow inserts a new show and assigns the generated ID back to s.
// The caller supplies CreatedAt.
func (r *ShowRepo) CreateShow(ctx context.Context, s *model.Show) error {
	const q = `INSERT INTO shows (movie_id, starts_at, price_cents, created_at) VALUES (?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, s.MovieID, s.StartsAt.UTC(), s.PriceCents, s.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	if s.OccupiedSeats == nil {
		s.OccupiedSeats = map[string]string{}
	}
	return nil
}

// GetShow retrieves a show together with its occupancy map.  It returns
// model.ErrShowNotFound if there is no matching row.
func (r *ShowRepo) GetShow(ctx context.Context, id uint64) (model.Show, error) {
	return r.getShow(ctx, id, false)
}

// GetShowForUpdate is GetShow with the show row locked until the surrounding
// transaction ends.  Every writer of a show's occupancy takes this lock
// first, which serializes seat claims per show.
func (r *ShowRepo) GetShowForUpdate(ctx context.Context, id uint64) (model.Show, error) {
	return r.getShow(ctx, id, true)
}

func (r *ShowRepo) getShow(ctx context.Context, id uint64, forUpdate bool) (model.Show, error) {
	q := `SELECT ` + showColumns + ` FROM shows WHERE id = ?`
	if forUpdate && inTx(ctx) {
		q += ` FOR UPDATE`
	}
	db := conn(ctx, r.db)
	var s model.Show
	err := db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.MovieID, &s.StartsAt, &s.PriceCents, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Show{}, model.ErrShowNotFound
		}
		return model.Show{}, err
	}
	occ, err := r.occupancy(ctx, db, id)
	if err != nil {
		return model.Show{}, err
	}
	s.OccupiedSeats = occ
	return s, nil
}

func (r *ShowRepo) occupancy(ctx context.Context, db querier, showID uint64) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT seat_label, user_id FROM show_occupied_seats WHERE show_id = ?`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	occ := map[string]string{}
	for rows.Next() {
		var label, user string
		if err := rows.Scan(&label, &user); err != nil {
			return nil, err
		}
		occ[label] = user
	}
	return occ, rows.Err()
}

// ClaimSeats records seats as held by userID under bookingID.  All seats
// are inserted in one statement; if any of them is already held the
// primary key rejects the whole insert and model.ErrSeatsUnavailable is
// returned.
func (r *ShowRepo) ClaimSeats(ctx context.Context, showID, bookingID uint64, userID string, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO show_occupied_seats (show_id, seat_label, user_id, booking_id) VALUES `)
	args := make([]any, 0, len(seats)*4)
	for i, seat := range seats {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?)")
		args = append(args, showID, seat, userID, bookingID)
	}
	if _, err := conn(ctx, r.db).ExecContext(ctx, sb.String(), args...); err != nil {
		if isDuplicateKey(err) {
			return model.ErrSeatsUnavailable
		}
		return err
	}
	return nil
}

// ListUpcomingShows returns every show starting at or after from, joined
// with its movie and ordered by start time.  Occupancy is not loaded.
func (r *ShowRepo) ListUpcomingShows(ctx context.Context, from time.Time) ([]model.ShowWithMovie, error) {
	return r.listShows(ctx, `WHERE s.starts_at >= ?`, from.UTC())
}

// ListAllShows is ListUpcomingShows without the lower bound: past shows
// are included.
func (r *ShowRepo) ListAllShows(ctx context.Context) ([]model.ShowWithMovie, error) {
	return r.listShows(ctx, ``)
}

func (r *ShowRepo) listShows(ctx context.Context, where string, args ...any) ([]model.ShowWithMovie, error) {
	q := `SELECT s.id, s.movie_id, s.starts_at, s.price_cents, s.created_at, ` + movieColumnsAliased + `
          FROM shows s
          JOIN movies m ON m.id = s.movie_id ` + where + `
          ORDER BY s.starts_at ASC, s.id ASC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ShowWithMovie{}
	for rows.Next() {
		var sw model.ShowWithMovie
		dest := []any{&sw.ID, &sw.MovieID, &sw.StartsAt, &sw.PriceCents, &sw.CreatedAt}
		var genres []byte
		dest = append(dest, movieScanDest(&sw.Movie, &genres)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if err := decodeGenres(genres, &sw.Movie); err != nil {
			return nil, err
		}
		out = append(out, sw)
	}
	return out, rows.Err()
}

// ListShowsByMovie returns the shows of a movie starting at or after from,
// ordered by start time.
func (r *ShowRepo) ListShowsByMovie(ctx context.Context, movieID string, from time.Time) ([]model.Show, error) {
	q := `SELECT ` + showColumns + ` FROM shows WHERE movie_id = ? AND starts_at >= ? ORDER BY starts_at ASC, id ASC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, movieID, from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Show
	for rows.Next() {
		var s model.Show
		if err := rows.Scan(&s.ID, &s.MovieID, &s.StartsAt, &s.PriceCents, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteShowsByMovie removes every show of a movie.  The deletion runs in a
// transaction so that no partial cleanup occurs.  It returns
// model.ErrShowNotFound when the movie has no shows and ErrConflict when any
// of them still has bookings.
func (r *ShowRepo) DeleteShowsByMovie(ctx context.Context, movieID string) (int64, error) {
	var deleted int64
	err := WithTx(ctx, r.db, func(ctx context.Context) error {
		db := conn(ctx, r.db)
		var shows int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM shows WHERE movie_id = ? FOR UPDATE`, movieID,
		).Scan(&shows); err != nil {
			return err
		}
		if shows == 0 {
			return model.ErrShowNotFound
		}
		var booked int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings b JOIN shows s ON s.id = b.show_id WHERE s.movie_id = ?`, movieID,
		).Scan(&booked); err != nil {
			return err
		}
		if booked > 0 {
			return ErrConflict
		}
		res, err := db.ExecContext(ctx, `DELETE FROM shows WHERE movie_id = ?`, movieID)
		if err != nil {
			return fmt.Errorf("delete shows: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

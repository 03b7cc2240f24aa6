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

// MovieRepo persists the local mirror of catalog movies.  Rows are written
// once and never updated.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

const movieColumns = `id, title, overview, poster_path, backdrop_path, genres, release_date,
	original_language, tagline, vote_average, runtime, created_at`

const movieColumnsAliased = `m.id, m.title, m.overview, m.poster_path, m.backdrop_path, m.genres, m.release_date,
	m.original_language, m.tagline, m.vote_average, m.runtime, m.created_at`

func movieScanDest(m *model.Movie, genres *[]byte) []any {
	return []any{
		&m.ID, &m.Title, &m.Overview, &m.PosterPath, &m.BackdropPath, genres, &m.ReleaseDate,
		&m.OriginalLanguage, &m.Tagline, &m.VoteAverage, &m.Runtime, &m.CreatedAt,
	}
}

func decodeGenres(raw []byte, m *model.Movie) error {
	m.Genres = []string{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &m.Genres); err != nil {
		return fmt.Errorf("decode genres of movie %s: %w", m.ID, err)
	}
	return nil
}

// GetMovie retrieves a cached movie by its catalog id.  It returns
// model.ErrMovieNotFound if there is no matching row.
func (r *MovieRepo) GetMovie(ctx context.Context, id string) (model.Movie, error) {
	var m model.Movie
	var genres []byte
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = ?`, id,
	).Scan(movieScanDest(&m, &genres)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Movie{}, model.ErrMovieNotFound
		}
		return model.Movie{}, err
	}
	if err := decodeGenres(genres, &m); err != nil {
		return model.Movie{}, err
	}
	return m, nil
}

// EnsureMovie inserts m unless a movie with the same id is already cached.
// It reports whether a row was inserted; an existing row is left untouched.
func (r *MovieRepo) EnsureMovie(ctx context.Context, m *model.Movie) (bool, error) {
	genres := m.Genres
	if genres == nil {
		genres = []string{}
	}
	raw, err := json.Marshal(genres)
	if err != nil {
		return false, err
	}
	const q = `INSERT IGNORE INTO movies (id, title, overview, poster_path, backdrop_path, genres, release_date,
	               original_language, tagline, vote_average, runtime, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q,
		m.ID, m.Title, m.Overview, m.PosterPath, m.BackdropPath, raw, m.ReleaseDate,
		m.OriginalLanguage, m.Tagline, m.VoteAverage, m.Runtime, m.CreatedAt.UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListNowShowing returns the distinct movies that have at least one show
// starting at or after from, ordered by their earliest upcoming show.
func (r *MovieRepo) ListNowShowing(ctx context.Context, from time.Time) ([]model.Movie, error) {
	q := `SELECT ` + movieColumnsAliased + `
          FROM movies m
          JOIN shows s ON s.movie_id = m.id
          WHERE s.starts_at >= ?
          GROUP BY m.id
          ORDER BY MIN(s.starts_at) ASC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Movie{}
	for rows.Next() {
		var m model.Movie
		var genres []byte
		if err := rows.Scan(movieScanDest(&m, &genres)...); err != nil {
			return nil, err
		}
		if err := decodeGenres(genres, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ToggleFavorite adds movieID to the favorites of userID, or removes it if
// it is already there.  It reports whether the movie is a favorite
// afterwards.  A movie that is not cached yields model.ErrMovieNotFound.
func (r *MovieRepo) ToggleFavorite(ctx context.Context, userID, movieID string, at time.Time) (bool, error) {
	var added bool
	err := WithTx(ctx, r.db, func(ctx context.Context) error {
		db := conn(ctx, r.db)
		res, err := db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND movie_id = ?`, userID, movieID)
		if err != nil {
			return fmt.Errorf("remove favorite: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		_, err = db.ExecContext(ctx,
			`INSERT INTO favorites (user_id, movie_id, created_at) VALUES (?, ?, ?)`, userID, movieID, at.UTC())
		if err != nil {
			if isMissingParent(err) {
				return model.ErrMovieNotFound
			}
			return fmt.Errorf("add favorite: %w", err)
		}
		added = true
		return nil
	})
	return added, err
}

// ListFavorites returns the favorite movies of userID, most recently added
// first.
func (r *MovieRepo) ListFavorites(ctx context.Context, userID string) ([]model.Movie, error) {
	q := `SELECT ` + movieColumnsAliased + `
          FROM favorites f
          JOIN movies m ON m.id = f.movie_id
          WHERE f.user_id = ?
          ORDER BY f.created_at DESC, m.id ASC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Movie{}
	for rows.Next() {
		var m model.Movie
		var genres []byte
		if err := rows.Scan(movieScanDest(&m, &genres)...); err != nil {
			return nil, err
		}
		if err := decodeGenres(genres, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

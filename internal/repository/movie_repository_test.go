package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/model"
)

const (
	removeFavoriteSQL = `DELETE FROM favorites WHERE user_id = ? AND movie_id = ?`
	addFavoriteSQL    = `INSERT INTO favorites (user_id, movie_id, created_at) VALUES (?, ?, ?)`
)

func TestToggleFavorite_Adds(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(removeFavoriteSQL).WithArgs("u1", "550").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(addFavoriteSQL).WithArgs("u1", "550", at).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	added, err := NewMovieRepo(db).ToggleFavorite(context.Background(), "u1", "550", at)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestToggleFavorite_Removes(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(removeFavoriteSQL).WithArgs("u1", "550").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	added, err := NewMovieRepo(db).ToggleFavorite(context.Background(), "u1", "550", at)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestToggleFavorite_UnknownMovie(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(removeFavoriteSQL).WithArgs("u1", "999").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(addFavoriteSQL).WithArgs("u1", "999", at).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
	mock.ExpectRollback()

	added, err := NewMovieRepo(db).ToggleFavorite(context.Background(), "u1", "999", at)
	require.ErrorIs(t, err, model.ErrMovieNotFound)
	assert.False(t, added)
}

func TestListFavorites(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT ` + movieColumnsAliased + ` FROM favorites f JOIN movies m ON m.id = f.movie_id
		WHERE f.user_id = ? ORDER BY f.created_at DESC, m.id ASC`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(movieCols).
			AddRow(movieRow("603", "The Matrix")...).
			AddRow(movieRow("550", "Fight Club")...))

	movies, err := NewMovieRepo(db).ListFavorites(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "603", movies[0].ID)
	assert.Equal(t, "Fight Club", movies[1].Title)
	assert.Equal(t, uint32(139), movies[1].Runtime)
}

func TestGetMovie_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT ` + movieColumns + ` FROM movies WHERE id = ?`).
		WithArgs("404").
		WillReturnRows(sqlmock.NewRows(movieCols))

	_, err := NewMovieRepo(db).GetMovie(context.Background(), "404")
	require.ErrorIs(t, err, model.ErrMovieNotFound)
}

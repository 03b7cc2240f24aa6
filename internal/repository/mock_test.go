package repository

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// newMock returns a DB whose statements must match the expectations
// exactly, modulo whitespace.  Unmet expectations fail the test.
func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

var movieCols = []string{
	"id", "title", "overview", "poster_path", "backdrop_path", "genres", "release_date",
	"original_language", "tagline", "vote_average", "runtime", "created_at",
}

func movieRow(id, title string) []driver.Value {
	return []driver.Value{id, title, "", "/p.jpg", "", []byte(`["Drama"]`), "1999-10-15", "en", "", 8.4, 139, at}
}

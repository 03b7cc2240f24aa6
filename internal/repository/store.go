package repository

import (
	"context"
	"database/sql"
)

// Store bundles the repositories behind a single handle.  Its WithTx lets
// the service layer group calls on any of them into one transaction.
type Store struct {
	db *sql.DB
	*ShowRepo
	*MovieRepo
	*BookingRepo
}

// NewStore wires every repository to db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:          db,
		ShowRepo:    NewShowRepo(db),
		MovieRepo:   NewMovieRepo(db),
		BookingRepo: NewBookingRepo(db),
	}
}

// WithTx runs fn inside a single database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, s.db, fn)
}

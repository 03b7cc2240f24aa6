// Package repository persists movies, shows, seat occupancy and bookings in
// MySQL.  Lookups that find nothing return the model sentinels
// (model.ErrShowNotFound and friends) so the service layer can compare them
// with errors.Is without importing database/sql.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a delete cannot be performed because of
// dependent records, such as removing the shows of a movie that still have
// bookings.  Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// MySQL server error numbers.
const (
	mysqlDuplicateEntry  = 1062 // ER_DUP_ENTRY
	mysqlNoReferencedRow = 1452 // ER_NO_REFERENCED_ROW_2
)

func isDuplicateKey(err error) bool {
	return mysqlErrno(err) == mysqlDuplicateEntry
}

func isMissingParent(err error) bool {
	return mysqlErrno(err) == mysqlNoReferencedRow
}

func mysqlErrno(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

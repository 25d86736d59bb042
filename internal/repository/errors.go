// Package repository implements store.Store on MySQL.  Queries follow one
// pattern: plain SQL with positional arguments, rows scanned into the model
// types, NULL columns through sql.Null* values.  Driver errors are mapped to
// the store sentinels here so callers never inspect MySQL error numbers.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/booking-engine/internal/store"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// translate maps driver errors onto store.ErrNotFound and
// store.ErrDuplicate.  Other errors pass through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return store.ErrDuplicate
	}
	return err
}

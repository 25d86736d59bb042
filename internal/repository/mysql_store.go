package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/booking-engine/internal/store"
)

// MySQLStore satisfies store.Store.  Reads go straight to the pool; booking
// mutations run through InTx.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a store bound to the given pool.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

var _ store.Store = (*MySQLStore)(nil)

// DB exposes the underlying pool for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// InTx begins a transaction, hands fn a store.Tx bound to it and commits
// when fn returns nil.  Any error rolls back.
func (s *MySQLStore) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// mysqlTx is the store.Tx view over a *sql.Tx.
type mysqlTx struct {
	tx *sql.Tx
}

// placeholders returns "?,?,?" for n arguments and the arguments as
// []interface{} for use in IN clauses.
func placeholders(ids []string) (string, []interface{}) {
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ","), args
}

// hhmm trims a MySQL TIME value ("HH:MM:SS") to "HH:MM".
func hhmm(s string) string {
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullHHMM(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := hhmm(ns.String)
	return &v
}

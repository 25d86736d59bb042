package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/booking-engine/internal/store"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(sql.ErrNoRows), store.ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("scan: %w", sql.ErrNoRows)), store.ErrNotFound)
	assert.ErrorIs(t, translate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), store.ErrDuplicate)

	other := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	assert.Same(t, other, translate(other))

	plain := errors.New("connection refused")
	assert.Equal(t, plain, translate(plain))
}

func TestPlaceholders(t *testing.T) {
	marks, args := placeholders([]string{"a", "b", "c"})
	assert.Equal(t, "?,?,?", marks)
	assert.Equal(t, []interface{}{"a", "b", "c"}, args)
}

func TestHHMM(t *testing.T) {
	assert.Equal(t, "09:30", hhmm("09:30:00"))
	assert.Equal(t, "09:30", hhmm("09:30"))
	assert.Nil(t, nullHHMM(sql.NullString{}))
	assert.Equal(t, "12:00", *nullHHMM(sql.NullString{String: "12:00:00", Valid: true}))
}

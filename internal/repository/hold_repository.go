package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// InsertHolds writes every hold in a single multi-row INSERT, so either all
// of them are stored or none is.  ExpiresAt is stored in UTC.
func (s *MySQLStore) InsertHolds(ctx context.Context, holds []model.SlotHold) error {
	if len(holds) == 0 {
		return nil
	}
	query := `INSERT INTO slot_holds (id, business_id, date, start_time, end_time, resource_type, resource_id, expires_at, created_at) VALUES `
	args := make([]interface{}, 0, len(holds)*9)
	for i, h := range holds {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, h.ID, h.BusinessID, h.Date, h.StartTime, h.EndTime,
			string(h.ResourceType), h.ResourceID,
			h.ExpiresAt.UTC().Format("2006-01-02 15:04:05"),
			h.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	return translate(err)
}

// DeleteHolds removes the given holds.  Unknown ids are ignored so release
// stays idempotent.
func (s *MySQLStore) DeleteHolds(ctx context.Context, ids []string) error {
	return deleteHolds(ctx, s.db, ids)
}

func deleteHolds(ctx context.Context, db execer, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	marks, args := placeholders(ids)
	_, err := db.ExecContext(ctx, `DELETE FROM slot_holds WHERE id IN (`+marks+`)`, args...)
	return err
}

// DeleteExpiredHolds garbage-collects holds whose expires_at is at or
// before now and reports how many rows were removed.
func (s *MySQLStore) DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM slot_holds WHERE expires_at <= ?`, now.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListActiveHolds returns holds in scope that are still active at now.
func (s *MySQLStore) ListActiveHolds(ctx context.Context, oq store.OccupancyQuery, now time.Time) ([]model.SlotHold, error) {
	if len(oq.ResourceIDs) == 0 {
		return nil, nil
	}
	marks, idArgs := placeholders(oq.ResourceIDs)
	q := `SELECT id, business_id, DATE_FORMAT(date, '%Y-%m-%d'),
                 TIME_FORMAT(start_time, '%H:%i'), TIME_FORMAT(end_time, '%H:%i'),
                 resource_type, resource_id, expires_at, created_at
          FROM slot_holds
          WHERE business_id = ? AND date = ? AND resource_type = ?
            AND resource_id IN (` + marks + `) AND expires_at > ?`
	args := append([]interface{}{oq.BusinessID, oq.Date, string(oq.ResourceType)}, idArgs...)
	args = append(args, now.UTC().Format("2006-01-02 15:04:05"))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SlotHold
	for rows.Next() {
		var h model.SlotHold
		var rt string
		if err := rows.Scan(&h.ID, &h.BusinessID, &h.Date, &h.StartTime, &h.EndTime, &rt, &h.ResourceID, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.ResourceType = model.ResourceType(rt)
		out = append(out, h)
	}
	return out, rows.Err()
}

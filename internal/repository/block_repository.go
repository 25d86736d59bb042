package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
)

const blockColumns = `id, business_id, DATE_FORMAT(date, '%Y-%m-%d'),
                      TIME_FORMAT(start_time, '%H:%i'), TIME_FORMAT(end_time, '%H:%i'),
                      resource_type, resource_id, reason, created_at`

func scanBlock(sc interface{ Scan(...interface{}) error }) (model.SlotBlock, error) {
	var b model.SlotBlock
	var rt, rid, reason sql.NullString
	if err := sc.Scan(&b.ID, &b.BusinessID, &b.Date, &b.StartTime, &b.EndTime, &rt, &rid, &reason, &b.CreatedAt); err != nil {
		return model.SlotBlock{}, err
	}
	if rt.Valid {
		t := model.ResourceType(rt.String)
		b.ResourceType = &t
	}
	b.ResourceID = nullString(rid)
	b.Reason = nullString(reason)
	return b, nil
}

// ListBlocks returns the blocks of a business.  An empty date lists every
// date.
func (s *MySQLStore) ListBlocks(ctx context.Context, businessID, date string) ([]model.SlotBlock, error) {
	q := `SELECT ` + blockColumns + ` FROM slot_blocks WHERE business_id = ?`
	args := []interface{}{businessID}
	if date != "" {
		q += ` AND date = ?`
		args = append(args, date)
	}
	q += ` ORDER BY date, start_time`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SlotBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBlock loads one block of the business.
func (s *MySQLStore) GetBlock(ctx context.Context, businessID, id string) (model.SlotBlock, error) {
	q := `SELECT ` + blockColumns + ` FROM slot_blocks WHERE id = ? AND business_id = ?`
	b, err := scanBlock(s.db.QueryRowContext(ctx, q, id, businessID))
	if err != nil {
		return model.SlotBlock{}, translate(err)
	}
	return b, nil
}

// InsertBlock stores a manager block.
func (s *MySQLStore) InsertBlock(ctx context.Context, b model.SlotBlock) error {
	const q = `INSERT INTO slot_blocks (id, business_id, date, start_time, end_time, resource_type, resource_id, reason, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var rt *string
	if b.ResourceType != nil {
		v := string(*b.ResourceType)
		rt = &v
	}
	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, q, b.ID, b.BusinessID, b.Date, b.StartTime, b.EndTime, rt, b.ResourceID, b.Reason, created.UTC())
	return translate(err)
}

// DeleteBlock removes a block; it returns store.ErrNotFound when the block
// does not exist for the business.
func (s *MySQLStore) DeleteBlock(ctx context.Context, businessID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM slot_blocks WHERE id = ? AND business_id = ?`, id, businessID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
)

const bookingColumns = `b.id, b.business_id, b.reference, b.customer_name, b.customer_phone,
                        DATE_FORMAT(b.booking_date, '%Y-%m-%d'),
                        TIME_FORMAT(b.start_time, '%H:%i'), TIME_FORMAT(b.end_time, '%H:%i'),
                        b.party_size, b.service_id, b.notes, b.status, b.created_at, b.updated_at`

func scanBooking(sc interface{ Scan(...interface{}) error }) (model.Booking, error) {
	var b model.Booking
	var party sql.NullInt64
	var serviceID, notes sql.NullString
	var status string
	err := sc.Scan(
		&b.ID, &b.BusinessID, &b.Reference, &b.CustomerName, &b.CustomerPhone,
		&b.BookingDate, &b.StartTime, &b.EndTime,
		&party, &serviceID, &notes, &status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	if party.Valid {
		p := int(party.Int64)
		b.PartySize = &p
	}
	b.ServiceID = nullString(serviceID)
	b.Notes = nullString(notes)
	b.Status = model.BookingStatus(status)
	b.Assignments = []model.BookingAssignment{}
	return b, nil
}

// GetBooking loads a booking and its assignments.
func (s *MySQLStore) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = ?`
	b, err := scanBooking(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return model.Booking{}, translate(err)
	}
	if err := s.attachAssignments(ctx, []*model.Booking{&b}); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// GetBookingByReference loads a booking by its customer-facing code.  An
// empty businessID matches any business.
func (s *MySQLStore) GetBookingByReference(ctx context.Context, businessID, reference string) (model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.reference = ?`
	args := []interface{}{reference}
	if businessID != "" {
		q += ` AND b.business_id = ?`
		args = append(args, businessID)
	}
	b, err := scanBooking(s.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return model.Booking{}, translate(err)
	}
	if err := s.attachAssignments(ctx, []*model.Booking{&b}); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// ListBookings applies the non-empty filter fields and orders by date and
// start time.
func (s *MySQLStore) ListBookings(ctx context.Context, f store.BookingFilter) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings b WHERE 1 = 1`
	var args []interface{}
	if f.BusinessID != "" {
		q += ` AND b.business_id = ?`
		args = append(args, f.BusinessID)
	}
	if f.Phone != "" {
		q += ` AND b.customer_phone = ?`
		args = append(args, f.Phone)
	}
	if f.Date != "" {
		q += ` AND b.booking_date = ?`
		args = append(args, f.Date)
	}
	if f.FromDate != "" {
		q += ` AND b.booking_date >= ?`
		args = append(args, f.FromDate)
	}
	if f.Status != "" {
		q += ` AND b.status = ?`
		args = append(args, string(f.Status))
	}
	q += ` ORDER BY b.booking_date ASC, b.start_time ASC, b.id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	ptrs := make([]*model.Booking, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := s.attachAssignments(ctx, ptrs); err != nil {
		return nil, err
	}
	return out, nil
}

// attachAssignments loads the assignments of all given bookings in one query.
func (s *MySQLStore) attachAssignments(ctx context.Context, bookings []*model.Booking) error {
	index := make(map[string]*model.Booking, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		index[b.ID] = b
		ids = append(ids, b.ID)
	}
	marks, args := placeholders(ids)
	q := `SELECT id, booking_id, resource_type, resource_id
          FROM booking_assignments
          WHERE booking_id IN (` + marks + `)
          ORDER BY booking_id, resource_type, id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a model.BookingAssignment
		var rt string
		if err := rows.Scan(&a.ID, &a.BookingID, &rt, &a.ResourceID); err != nil {
			return err
		}
		a.ResourceType = model.ResourceType(rt)
		if b, ok := index[a.BookingID]; ok {
			b.Assignments = append(b.Assignments, a)
		}
	}
	return rows.Err()
}

// ListBookedIntervals returns one row per (confirmed booking, assigned
// resource) in scope.
func (s *MySQLStore) ListBookedIntervals(ctx context.Context, oq store.OccupancyQuery) ([]store.BookedInterval, error) {
	if len(oq.ResourceIDs) == 0 {
		return nil, nil
	}
	marks, idArgs := placeholders(oq.ResourceIDs)
	q := `SELECT b.id, ba.resource_id, TIME_FORMAT(b.start_time, '%H:%i'), IFNULL(TIME_FORMAT(b.end_time, '%H:%i'), '')
          FROM bookings b
          JOIN booking_assignments ba ON ba.booking_id = b.id
          WHERE b.business_id = ? AND b.booking_date = ? AND b.status = 'confirmed'
            AND ba.resource_type = ? AND ba.resource_id IN (` + marks + `)`
	args := append([]interface{}{oq.BusinessID, oq.Date, string(oq.ResourceType)}, idArgs...)
	if oq.ExcludeBookingID != "" {
		q += ` AND b.id <> ?`
		args = append(args, oq.ExcludeBookingID)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.BookedInterval
	for rows.Next() {
		var bi store.BookedInterval
		if err := rows.Scan(&bi.BookingID, &bi.ResourceID, &bi.StartTime, &bi.EndTime); err != nil {
			return nil, err
		}
		out = append(out, bi)
	}
	return out, rows.Err()
}

// InsertBooking writes the booking row.  A reference collision surfaces as
// store.ErrDuplicate.
func (t *mysqlTx) InsertBooking(ctx context.Context, b model.Booking) error {
	const q = `INSERT INTO bookings (id, business_id, reference, customer_name, customer_phone,
                                    booking_date, start_time, end_time, party_size, service_id,
                                    notes, status, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, q,
		b.ID, b.BusinessID, b.Reference, b.CustomerName, b.CustomerPhone,
		b.BookingDate, b.StartTime, b.EndTime, b.PartySize, b.ServiceID,
		b.Notes, string(b.Status), b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	return translate(err)
}

// UpdateBooking rewrites every mutable column of the booking, guarded on
// the status the caller read.
func (t *mysqlTx) UpdateBooking(ctx context.Context, b model.Booking, from model.BookingStatus) error {
	const q = `UPDATE bookings
               SET booking_date = ?, start_time = ?, end_time = ?, party_size = ?, service_id = ?,
                   notes = ?, status = ?, updated_at = ?
               WHERE id = ? AND status = ?`
	res, err := t.tx.ExecContext(ctx, q,
		b.BookingDate, b.StartTime, b.EndTime, b.PartySize, b.ServiceID,
		b.Notes, string(b.Status), b.UpdatedAt.UTC(), b.ID, string(from),
	)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = t.tx.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, b.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrConflict
}

// InsertAssignments writes all rows in a single statement.  An empty slice
// is a no-op.
func (t *mysqlTx) InsertAssignments(ctx context.Context, as []model.BookingAssignment) error {
	if len(as) == 0 {
		return nil
	}
	query := `INSERT INTO booking_assignments (id, booking_id, resource_type, resource_id) VALUES `
	args := make([]interface{}, 0, len(as)*4)
	for i, a := range as {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, a.ID, a.BookingID, string(a.ResourceType), a.ResourceID)
	}
	_, err := t.tx.ExecContext(ctx, query, args...)
	return translate(err)
}

// DeleteAssignments removes every assignment of the booking.
func (t *mysqlTx) DeleteAssignments(ctx context.Context, bookingID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM booking_assignments WHERE booking_id = ?`, bookingID)
	return err
}

// UpdateAssignmentResource repoints the first assignment of the given type.
func (t *mysqlTx) UpdateAssignmentResource(ctx context.Context, bookingID string, rt model.ResourceType, resourceID string) error {
	const q = `UPDATE booking_assignments SET resource_id = ?
               WHERE booking_id = ? AND resource_type = ?
               ORDER BY id LIMIT 1`
	res, err := t.tx.ExecContext(ctx, q, resourceID, bookingID, string(rt))
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	// The DSN sets clientFoundRows, so n counts matched rows.
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteHolds removes holds as part of the surrounding transaction.
func (t *mysqlTx) DeleteHolds(ctx context.Context, ids []string) error {
	return deleteHolds(ctx, t.tx, ids)
}

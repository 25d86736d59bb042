package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/booking-engine/internal/model"
)

// GetBusiness loads a business by id.  It returns store.ErrNotFound when no
// row matches.
func (s *MySQLStore) GetBusiness(ctx context.Context, id string) (model.Business, error) {
	const q = `SELECT id, name, type, timezone, slot_interval, max_booking_horizon_days,
                      allow_same_day, same_day_cutoff_minutes, notes_enabled, sms_enabled,
                      created_at, updated_at
               FROM businesses WHERE id = ?`
	var b model.Business
	var typ string
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.Name, &typ, &b.Timezone, &b.SlotInterval, &b.MaxBookingHorizonDays,
		&b.AllowSameDay, &b.SameDayCutoffMinutes, &b.NotesEnabled, &b.SMSEnabled,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Business{}, translate(err)
	}
	b.Type = model.BusinessType(typ)
	return b, nil
}

const hoursColumns = `business_id, day_of_week, TIME_FORMAT(open_time, '%H:%i'), TIME_FORMAT(close_time, '%H:%i'), is_closed`

// GetBusinessHours returns the opening hours row for one weekday.
func (s *MySQLStore) GetBusinessHours(ctx context.Context, businessID string, dayOfWeek int) (model.BusinessHours, error) {
	q := `SELECT ` + hoursColumns + ` FROM business_hours WHERE business_id = ? AND day_of_week = ?`
	var h model.BusinessHours
	err := s.db.QueryRowContext(ctx, q, businessID, dayOfWeek).Scan(&h.BusinessID, &h.DayOfWeek, &h.OpenTime, &h.CloseTime, &h.IsClosed)
	if err != nil {
		return model.BusinessHours{}, translate(err)
	}
	return h, nil
}

// ListBusinessHours returns every configured weekday ordered Sunday first.
func (s *MySQLStore) ListBusinessHours(ctx context.Context, businessID string) ([]model.BusinessHours, error) {
	q := `SELECT ` + hoursColumns + ` FROM business_hours WHERE business_id = ? ORDER BY day_of_week`
	rows, err := s.db.QueryContext(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BusinessHours, 0, 7)
	for rows.Next() {
		var h model.BusinessHours
		if err := rows.Scan(&h.BusinessID, &h.DayOfWeek, &h.OpenTime, &h.CloseTime, &h.IsClosed); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetRestaurantConfig returns store.ErrNotFound when the restaurant has no
// config row; callers fall back to model.DefaultRestaurantConfig.
func (s *MySQLStore) GetRestaurantConfig(ctx context.Context, businessID string) (model.RestaurantConfig, error) {
	const q = `SELECT business_id, seating_duration_minutes, buffer_minutes, max_party_size
               FROM restaurant_configs WHERE business_id = ?`
	var c model.RestaurantConfig
	err := s.db.QueryRowContext(ctx, q, businessID).Scan(&c.BusinessID, &c.SeatingDurationMinutes, &c.BufferMinutes, &c.MaxPartySize)
	if err != nil {
		return model.RestaurantConfig{}, translate(err)
	}
	return c, nil
}

// ListTables returns active tables, smallest first.  Ties are broken by name
// so allocation is deterministic.
func (s *MySQLStore) ListTables(ctx context.Context, businessID string) ([]model.Table, error) {
	const q = `SELECT id, business_id, name, capacity, zone, tags, notes, is_active, created_at
               FROM dining_tables
               WHERE business_id = ? AND is_active = 1
               ORDER BY capacity ASC, name ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Table
	for rows.Next() {
		var t model.Table
		var zone, notes sql.NullString
		var tags []byte
		if err := rows.Scan(&t.ID, &t.BusinessID, &t.Name, &t.Capacity, &zone, &tags, &notes, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Zone = nullString(zone)
		t.Notes = nullString(notes)
		t.Tags = []string{}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &t.Tags); err != nil {
				return nil, err
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const serviceColumns = `id, business_id, name, duration_minutes, buffer_minutes, requires_room, is_active, created_at`

func scanService(sc interface{ Scan(...interface{}) error }) (model.Service, error) {
	var svc model.Service
	err := sc.Scan(&svc.ID, &svc.BusinessID, &svc.Name, &svc.DurationMinutes, &svc.BufferMinutes, &svc.RequiresRoom, &svc.IsActive, &svc.CreatedAt)
	return svc, err
}

// GetService loads one service of the business, active or not.
func (s *MySQLStore) GetService(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	q := `SELECT ` + serviceColumns + ` FROM services WHERE id = ? AND business_id = ?`
	svc, err := scanService(s.db.QueryRowContext(ctx, q, serviceID, businessID))
	if err != nil {
		return model.Service{}, translate(err)
	}
	return svc, nil
}

// ListServices returns the active services of a business.
func (s *MySQLStore) ListServices(ctx context.Context, businessID string) ([]model.Service, error) {
	q := `SELECT ` + serviceColumns + ` FROM services WHERE business_id = ? AND is_active = 1 ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *MySQLStore) queryStaff(ctx context.Context, q string, args ...interface{}) ([]model.Staff, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Staff
	for rows.Next() {
		var st model.Staff
		var email, phone sql.NullString
		if err := rows.Scan(&st.ID, &st.BusinessID, &st.Name, &email, &phone, &st.IsActive, &st.CreatedAt); err != nil {
			return nil, err
		}
		st.Email = nullString(email)
		st.Phone = nullString(phone)
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListStaff returns active staff ordered by name.
func (s *MySQLStore) ListStaff(ctx context.Context, businessID string) ([]model.Staff, error) {
	const q = `SELECT id, business_id, name, email, phone, is_active, created_at
               FROM staff WHERE business_id = ? AND is_active = 1
               ORDER BY name, id`
	return s.queryStaff(ctx, q, businessID)
}

// ListQualifiedStaff joins through staff_services to the staff able to
// perform the service.
func (s *MySQLStore) ListQualifiedStaff(ctx context.Context, businessID, serviceID string) ([]model.Staff, error) {
	const q = `SELECT st.id, st.business_id, st.name, st.email, st.phone, st.is_active, st.created_at
               FROM staff st
               JOIN staff_services ss ON ss.staff_id = st.id
               WHERE st.business_id = ? AND st.is_active = 1 AND ss.service_id = ?
               ORDER BY st.name, st.id`
	return s.queryStaff(ctx, q, businessID, serviceID)
}

// ListRooms returns active rooms ordered by name.
func (s *MySQLStore) ListRooms(ctx context.Context, businessID string) ([]model.Room, error) {
	const q = `SELECT id, business_id, name, is_active, created_at
               FROM rooms WHERE business_id = ? AND is_active = 1
               ORDER BY name, id`
	rows, err := s.db.QueryContext(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Room
	for rows.Next() {
		var r model.Room
		if err := rows.Scan(&r.ID, &r.BusinessID, &r.Name, &r.IsActive, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListStaffSchedules returns the weekly schedule rows for one weekday.
func (s *MySQLStore) ListStaffSchedules(ctx context.Context, staffID string, dayOfWeek int) ([]model.StaffSchedule, error) {
	const q = `SELECT id, staff_id, day_of_week, TIME_FORMAT(start_time, '%H:%i'), TIME_FORMAT(end_time, '%H:%i'), is_available
               FROM staff_schedules
               WHERE staff_id = ? AND day_of_week = ?
               ORDER BY start_time`
	rows, err := s.db.QueryContext(ctx, q, staffID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.StaffSchedule
	for rows.Next() {
		var sc model.StaffSchedule
		if err := rows.Scan(&sc.ID, &sc.StaffID, &sc.DayOfWeek, &sc.StartTime, &sc.EndTime, &sc.IsAvailable); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// ListStaffExceptions returns the overrides recorded for one date.
func (s *MySQLStore) ListStaffExceptions(ctx context.Context, staffID, date string) ([]model.StaffScheduleException, error) {
	const q = `SELECT id, staff_id, DATE_FORMAT(date, '%Y-%m-%d'), start_time, end_time, is_available, reason
               FROM staff_schedule_exceptions
               WHERE staff_id = ? AND date = ?`
	rows, err := s.db.QueryContext(ctx, q, staffID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.StaffScheduleException
	for rows.Next() {
		var e model.StaffScheduleException
		var start, end, reason sql.NullString
		if err := rows.Scan(&e.ID, &e.StaffID, &e.Date, &start, &end, &e.IsAvailable, &reason); err != nil {
			return nil, err
		}
		e.StartTime = nullHHMM(start)
		e.EndTime = nullHHMM(end)
		e.Reason = nullString(reason)
		out = append(out, e)
	}
	return out, rows.Err()
}

package model

import "time"

// ResourceType names the unit of allocation a booking or hold claims.
type ResourceType string

const (
	ResourceTable ResourceType = "table"
	ResourceStaff ResourceType = "staff"
	ResourceRoom  ResourceType = "room"
)

// Valid reports whether t is one of the known resource types.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTable, ResourceStaff, ResourceRoom:
		return true
	}
	return false
}

// ResourceRef identifies one resource backing a slot.
type ResourceRef struct {
	Type ResourceType `json:"type"`
	ID   string       `json:"id"`
	Name string       `json:"name"`
}

// Table is a restaurant table.  Tables are soft-deleted by clearing
// IsActive so historical assignments keep resolving.
type Table struct {
	ID         string    `json:"id"`          // tables.id
	BusinessID string    `json:"business_id"` // tables.business_id
	Name       string    `json:"name"`        // tables.name
	Capacity   int       `json:"capacity"`    // tables.capacity (>= 1)
	Zone       *string   `json:"zone"`        // tables.zone (nullable)
	Tags       []string  `json:"tags"`        // tables.tags (JSON array)
	Notes      *string   `json:"notes"`       // tables.notes (nullable)
	IsActive   bool      `json:"is_active"`   // tables.is_active
	CreatedAt  time.Time `json:"created_at"`  // tables.created_at
}

// ZoneKey returns the zone label, with "" standing for the unzoned group.
func (t Table) ZoneKey() string {
	if t.Zone == nil {
		return ""
	}
	return *t.Zone
}

// Service is a spa treatment.  BufferMinutes is cleanup padding appended
// after the treatment and counts as occupancy.
type Service struct {
	ID              string    `json:"id"`
	BusinessID      string    `json:"business_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	BufferMinutes   int       `json:"buffer_minutes"`
	RequiresRoom    bool      `json:"requires_room"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// SlotDuration is the length a staff member (and room) is occupied.
func (s Service) SlotDuration() int {
	if s.BufferMinutes > 0 {
		return s.DurationMinutes + s.BufferMinutes
	}
	return s.DurationMinutes
}

// Staff is a spa employee.
type Staff struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	Name       string    `json:"name"`
	Email      *string   `json:"email"`
	Phone      *string   `json:"phone"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// StaffSchedule is a recurring weekly availability window.
type StaffSchedule struct {
	ID          string `json:"id"`
	StaffID     string `json:"staff_id"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}

// StaffScheduleException overrides the weekly schedule on one date.  An
// unavailable exception without times is a full day off; an available one
// with times is a replacement window.
type StaffScheduleException struct {
	ID          string  `json:"id"`
	StaffID     string  `json:"staff_id"`
	Date        string  `json:"date"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	IsAvailable bool    `json:"is_available"`
	Reason      *string `json:"reason"`
}

// FullDayOff reports whether the exception voids the whole date.
func (e StaffScheduleException) FullDayOff() bool {
	return !e.IsAvailable && e.StartTime == nil
}

// Window reports whether the exception is an explicit available window.
func (e StaffScheduleException) Window() (start, end string, ok bool) {
	if !e.IsAvailable || e.StartTime == nil || e.EndTime == nil {
		return "", "", false
	}
	return *e.StartTime, *e.EndTime, true
}

// Room is a treatment room required by some spa services.
type Room struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	Name       string    `json:"name"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

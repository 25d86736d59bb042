package model

import (
	"time"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/timeofday"
)

// BookingStatus is the lifecycle state of a booking.  confirmed is the only
// non-terminal state.
type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusNoShow    BookingStatus = "no_show"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Booking is a committed reservation.  Bookings are never deleted; a
// cancelled or no-show booking stays as an audit record.
//
// Fields:
//  Reference     – short human code ("BK-...") quoted to customers.
//  BookingDate   – "YYYY-MM-DD" in the business timezone.
//  StartTime     – "HH:MM".
//  EndTime       – "HH:MM", end of occupancy (includes any buffer).
//  PartySize     – set for restaurant bookings only.
//  ServiceID     – set for spa bookings only.
//  Assignments   – resources serving the booking; loaded on reads.
type Booking struct {
	ID            string              `json:"id"`
	BusinessID    string              `json:"business_id"`
	Reference     string              `json:"reference"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone"`
	BookingDate   string              `json:"booking_date"`
	StartTime     string              `json:"start_time"`
	EndTime       string              `json:"end_time"`
	PartySize     *int                `json:"party_size"`
	ServiceID     *string             `json:"service_id"`
	Notes         *string             `json:"notes"`
	Status        BookingStatus       `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Assignments   []BookingAssignment `json:"assignments"`
}

// Validate enforces the row invariants of a booking for a business of the
// given type: exactly one of PartySize and ServiceID is populated and it
// matches the business type.
func (b Booking) Validate(t BusinessType) error {
	if b.BusinessID == "" {
		return apperr.Validation("business_id is required")
	}
	if b.CustomerName == "" {
		return apperr.Validation("customer_name is required")
	}
	if b.CustomerPhone == "" {
		return apperr.Validation("customer_phone is required")
	}
	if _, err := timeofday.ParseDate(b.BookingDate); err != nil {
		return apperr.Validation("date must be YYYY-MM-DD")
	}
	start, err := timeofday.ToMinutes(b.StartTime)
	if err != nil {
		return apperr.Validation("start_time must be HH:MM")
	}
	if b.EndTime != "" {
		end, err := timeofday.ToMinutes(b.EndTime)
		if err != nil || end <= start {
			return apperr.Validation("end_time must be HH:MM after start_time")
		}
	}
	if b.PartySize != nil && b.ServiceID != nil {
		return apperr.Validation("party_size and service_id are mutually exclusive")
	}
	switch t {
	case BusinessRestaurant:
		if b.PartySize == nil || *b.PartySize < 1 {
			return apperr.Validation("party_size is required for restaurant bookings")
		}
	case BusinessSpa:
		if b.ServiceID == nil || *b.ServiceID == "" {
			return apperr.Validation("service_id is required for spa bookings")
		}
	default:
		return apperr.Validation("unknown business type")
	}
	if b.Status != "" && !b.Status.Valid() {
		return apperr.Validation("invalid status")
	}
	return nil
}

// IsConfirmed reports whether the booking can still be modified or cancelled.
func (b Booking) IsConfirmed() bool { return b.Status == StatusConfirmed }

// Resources returns the assignment set as resource references.
func (b Booking) Resources() []ResourceRef {
	out := make([]ResourceRef, 0, len(b.Assignments))
	for _, a := range b.Assignments {
		out = append(out, ResourceRef{Type: a.ResourceType, ID: a.ResourceID})
	}
	return out
}

// BookingAssignment links a booking to one resource serving it.
type BookingAssignment struct {
	ID           string       `json:"id"`
	BookingID    string       `json:"booking_id"`
	ResourceType ResourceType `json:"resource_type"`
	ResourceID   string       `json:"resource_id"`
}

package model

import (
	"time"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/timeofday"
)

// BusinessType selects which resource inventory a business books against.
type BusinessType string

const (
	BusinessRestaurant BusinessType = "restaurant"
	BusinessSpa        BusinessType = "spa"
)

// Business is a tenant.  Its settings control the slot grid and the booking
// window offered to customers.
//
// Fields:
//  ID                    – primary key (UUID).
//  Name                  – display name used in notifications.
//  Type                  – restaurant or spa.
//  Timezone              – IANA zone used to evaluate "today" and "now".
//  SlotInterval          – grid step in minutes (15 or 30).
//  MaxBookingHorizonDays – how far ahead customers may book (0 = unlimited).
//  AllowSameDay          – whether bookings for today are accepted.
//  SameDayCutoffMinutes  – minimum lead time for same-day bookings.
//  NotesEnabled          – whether customer notes are stored.
//  SMSEnabled            – whether booking notifications are sent.
type Business struct {
	ID                    string       `json:"id"`                       // businesses.id
	Name                  string       `json:"name"`                     // businesses.name
	Type                  BusinessType `json:"type"`                     // businesses.type
	Timezone              string       `json:"timezone"`                 // businesses.timezone
	SlotInterval          int          `json:"slot_interval"`            // businesses.slot_interval
	MaxBookingHorizonDays int          `json:"max_booking_horizon_days"` // businesses.max_booking_horizon_days
	AllowSameDay          bool         `json:"allow_same_day"`           // businesses.allow_same_day
	SameDayCutoffMinutes  int          `json:"same_day_cutoff_minutes"`  // businesses.same_day_cutoff_minutes
	NotesEnabled          bool         `json:"notes_enabled"`            // businesses.notes_enabled
	SMSEnabled            bool         `json:"sms_enabled"`              // businesses.sms_enabled
	CreatedAt             time.Time    `json:"created_at"`               // businesses.created_at
	UpdatedAt             time.Time    `json:"updated_at"`               // businesses.updated_at
}

// DefaultSlotInterval applies when a business row carries no usable interval.
const DefaultSlotInterval = 30

// Interval returns the slot grid step, falling back to DefaultSlotInterval.
func (b Business) Interval() int {
	if b.SlotInterval == 15 || b.SlotInterval == 30 {
		return b.SlotInterval
	}
	return DefaultSlotInterval
}

// Location resolves the business timezone; unknown zones fall back to UTC.
func (b Business) Location() *time.Location {
	if b.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the configuration invariants of a business row.
func (b Business) Validate() error {
	if b.ID == "" {
		return apperr.Validation("business id is required")
	}
	if b.Type != BusinessRestaurant && b.Type != BusinessSpa {
		return apperr.Validation("business type must be restaurant or spa")
	}
	if b.SlotInterval != 0 && b.SlotInterval != 15 && b.SlotInterval != 30 {
		return apperr.Validation("slot_interval must be 15 or 30")
	}
	if b.MaxBookingHorizonDays < 0 || b.SameDayCutoffMinutes < 0 {
		return apperr.Validation("booking window settings must not be negative")
	}
	return nil
}

// BusinessHours is the opening window for one weekday (0 = Sunday).
type BusinessHours struct {
	BusinessID string `json:"business_id"`
	DayOfWeek  int    `json:"day_of_week"`
	OpenTime   string `json:"open_time"`
	CloseTime  string `json:"close_time"`
	IsClosed   bool   `json:"is_closed"`
}

// Window returns the opening hours in minutes.  ok is false for closed days
// and for rows whose times do not parse or do not form a window.
func (h BusinessHours) Window() (open, close int, ok bool) {
	if h.IsClosed {
		return 0, 0, false
	}
	o, err := timeofday.ToMinutes(h.OpenTime)
	if err != nil {
		return 0, 0, false
	}
	c, err := timeofday.ToMinutes(h.CloseTime)
	if err != nil || c <= o {
		return 0, 0, false
	}
	return o, c, true
}

// RestaurantConfig holds seating parameters for restaurant businesses.
type RestaurantConfig struct {
	BusinessID             string `json:"business_id"`
	SeatingDurationMinutes int    `json:"seating_duration_minutes"`
	BufferMinutes          int    `json:"buffer_minutes"`
	MaxPartySize           int    `json:"max_party_size"`
}

// DefaultRestaurantConfig is used when a restaurant has no config row.
func DefaultRestaurantConfig(businessID string) RestaurantConfig {
	return RestaurantConfig{
		BusinessID:             businessID,
		SeatingDurationMinutes: 90,
		BufferMinutes:          0,
		MaxPartySize:           12,
	}
}

// SlotDuration is the length a table is occupied per booking.
func (c RestaurantConfig) SlotDuration() int {
	seating := c.SeatingDurationMinutes
	if seating <= 0 {
		seating = 90
	}
	if c.BufferMinutes > 0 {
		return seating + c.BufferMinutes
	}
	return seating
}

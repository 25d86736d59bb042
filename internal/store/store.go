// Package store declares the persistence contract the availability and
// booking layers are written against.  internal/repository implements it on
// MySQL; internal/store/memstore implements it in memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/booking-engine/internal/model"
)

var (
	// ErrNotFound is returned by point lookups that match no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique key, such
	// as a booking reference that is already taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned when a guarded update finds the row in a
	// different state than the caller read.
	ErrConflict = errors.New("record changed concurrently")
)

// OccupancyQuery scopes an occupancy read to one business, one date and a
// set of resources of a single type.
type OccupancyQuery struct {
	BusinessID   string
	Date         string
	ResourceType model.ResourceType
	ResourceIDs  []string
	// ExcludeBookingID leaves one booking out of the result.  Used when a
	// booking is being moved and must not conflict with itself.
	ExcludeBookingID string
}

// BookedInterval is one confirmed booking's claim on one resource.
type BookedInterval struct {
	BookingID  string
	ResourceID string
	StartTime  string
	EndTime    string
}

// BookingFilter selects bookings for listing.  Empty fields do not filter.
type BookingFilter struct {
	BusinessID string
	Phone      string
	Date       string
	FromDate   string
	Status     model.BookingStatus
}

// Catalog reads business configuration and resource inventory.
type Catalog interface {
	GetBusiness(ctx context.Context, id string) (model.Business, error)
	GetBusinessHours(ctx context.Context, businessID string, dayOfWeek int) (model.BusinessHours, error)
	ListBusinessHours(ctx context.Context, businessID string) ([]model.BusinessHours, error)
	GetRestaurantConfig(ctx context.Context, businessID string) (model.RestaurantConfig, error)
	// ListTables returns active tables ordered by capacity ascending.
	ListTables(ctx context.Context, businessID string) ([]model.Table, error)
	GetService(ctx context.Context, businessID, serviceID string) (model.Service, error)
	ListServices(ctx context.Context, businessID string) ([]model.Service, error)
	ListStaff(ctx context.Context, businessID string) ([]model.Staff, error)
	// ListQualifiedStaff returns active staff able to perform serviceID,
	// ordered by name.
	ListQualifiedStaff(ctx context.Context, businessID, serviceID string) ([]model.Staff, error)
	ListRooms(ctx context.Context, businessID string) ([]model.Room, error)
	ListStaffSchedules(ctx context.Context, staffID string, dayOfWeek int) ([]model.StaffSchedule, error)
	ListStaffExceptions(ctx context.Context, staffID, date string) ([]model.StaffScheduleException, error)
}

// Occupancy reads the three sources of resource occupancy.
type Occupancy interface {
	ListBookedIntervals(ctx context.Context, q OccupancyQuery) ([]BookedInterval, error)
	ListActiveHolds(ctx context.Context, q OccupancyQuery, now time.Time) ([]model.SlotHold, error)
	ListBlocks(ctx context.Context, businessID, date string) ([]model.SlotBlock, error)
}

// Holds writes slot holds.
type Holds interface {
	// InsertHolds stores all holds or none.
	InsertHolds(ctx context.Context, holds []model.SlotHold) error
	DeleteHolds(ctx context.Context, ids []string) error
	DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error)
}

// Blocks manages manager-declared blocks.
type Blocks interface {
	GetBlock(ctx context.Context, businessID, id string) (model.SlotBlock, error)
	InsertBlock(ctx context.Context, b model.SlotBlock) error
	DeleteBlock(ctx context.Context, businessID, id string) error
}

// Bookings reads bookings together with their assignments.
type Bookings interface {
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	GetBookingByReference(ctx context.Context, businessID, reference string) (model.Booking, error)
	// ListBookings orders results by booking date then start time.
	ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error)
}

// Tx is the write side of a booking mutation.  Everything done through a Tx
// becomes visible together or not at all.
type Tx interface {
	InsertBooking(ctx context.Context, b model.Booking) error
	// UpdateBooking rewrites the booking only while its stored status is
	// still from.  A missing row is ErrNotFound; a row whose status moved
	// on is ErrConflict.
	UpdateBooking(ctx context.Context, b model.Booking, from model.BookingStatus) error
	InsertAssignments(ctx context.Context, as []model.BookingAssignment) error
	DeleteAssignments(ctx context.Context, bookingID string) error
	// UpdateAssignmentResource points the booking's assignment of type t at
	// resourceID.  It returns ErrNotFound when no such assignment exists.
	UpdateAssignmentResource(ctx context.Context, bookingID string, t model.ResourceType, resourceID string) error
	DeleteHolds(ctx context.Context, ids []string) error
}

// Store is the full persistence contract.
type Store interface {
	Catalog
	Occupancy
	Holds
	Blocks
	Bookings
	// InTx runs fn inside a transaction.  fn's error rolls everything back
	// and is returned unchanged.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

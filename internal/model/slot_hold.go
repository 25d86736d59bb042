package model

import (
	"time"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/timeofday"
)

// SlotHold is a short-lived claim on one resource for one slot.  It counts
// as occupancy only while ExpiresAt is in the future.
//
// Fields:
//  ID           – primary key (UUID).
//  BusinessID   – owning business.
//  Date         – "YYYY-MM-DD" of the held slot.
//  StartTime    – "HH:MM" start of the held slot.
//  EndTime      – "HH:MM" end of the held slot.
//  ResourceType – table, staff or room.
//  ResourceID   – the held resource.
//  ExpiresAt    – UTC instant after which the hold is ignored.
//  CreatedAt    – UTC creation time.
type SlotHold struct {
	ID           string       `json:"id"`
	BusinessID   string       `json:"business_id"`
	Date         string       `json:"date"`
	StartTime    string       `json:"start_time"`
	EndTime      string       `json:"end_time"`
	ResourceType ResourceType `json:"resource_type"`
	ResourceID   string       `json:"resource_id"`
	ExpiresAt    time.Time    `json:"expires_at"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Active reports whether the hold still claims its resource at now.
func (h SlotHold) Active(now time.Time) bool {
	return h.ExpiresAt.After(now)
}

// SlotBlock is a manager-declared unavailable window.  A block without a
// resource is global and applies to every resource of the business.
type SlotBlock struct {
	ID           string        `json:"id"`
	BusinessID   string        `json:"business_id"`
	Date         string        `json:"date"`
	StartTime    string        `json:"start_time"`
	EndTime      string        `json:"end_time"`
	ResourceType *ResourceType `json:"resource_type"`
	ResourceID   *string       `json:"resource_id"`
	Reason       *string       `json:"reason"`
	CreatedAt    time.Time     `json:"created_at"`
}

// IsGlobal reports whether the block affects all resources.
func (b SlotBlock) IsGlobal() bool { return b.ResourceID == nil }

// Validate checks a block before it is stored.
func (b SlotBlock) Validate() error {
	if _, err := timeofday.ParseDate(b.Date); err != nil {
		return apperr.Validation("date must be YYYY-MM-DD")
	}
	start, err := timeofday.ToMinutes(b.StartTime)
	if err != nil {
		return apperr.Validation("start_time must be HH:MM")
	}
	end, err := timeofday.ToMinutes(b.EndTime)
	if err != nil {
		return apperr.Validation("end_time must be HH:MM")
	}
	if end <= start {
		return apperr.Validation("end_time must be after start_time")
	}
	if (b.ResourceType == nil) != (b.ResourceID == nil) {
		return apperr.Validation("resource_type and resource_id must be given together")
	}
	if b.ResourceType != nil && !b.ResourceType.Valid() {
		return apperr.Validation("resource_type must be table, staff or room")
	}
	return nil
}

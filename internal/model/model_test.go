package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booking-engine/internal/apperr"
)

func intp(v int) *int                  { return &v }
func strp(v string) *string            { return &v }
func rtp(v ResourceType) *ResourceType { return &v }

func TestBookingValidateDiscriminator(t *testing.T) {
	base := Booking{
		BusinessID:    "biz-1",
		CustomerName:  "Ada",
		CustomerPhone: "+15550100",
		BookingDate:   "2025-06-01",
		StartTime:     "18:00",
	}

	tests := []struct {
		name    string
		mutate  func(b *Booking)
		bizType BusinessType
		wantErr bool
	}{
		{"restaurant with party", func(b *Booking) { b.PartySize = intp(4) }, BusinessRestaurant, false},
		{"restaurant missing party", func(b *Booking) {}, BusinessRestaurant, true},
		{"restaurant zero party", func(b *Booking) { b.PartySize = intp(0) }, BusinessRestaurant, true},
		{"restaurant with service", func(b *Booking) { b.ServiceID = strp("svc") }, BusinessRestaurant, true},
		{"spa with service", func(b *Booking) { b.ServiceID = strp("svc") }, BusinessSpa, false},
		{"spa missing service", func(b *Booking) {}, BusinessSpa, true},
		{"both set", func(b *Booking) { b.PartySize = intp(2); b.ServiceID = strp("svc") }, BusinessSpa, true},
		{"bad date", func(b *Booking) { b.PartySize = intp(2); b.BookingDate = "2025-6-1" }, BusinessRestaurant, true},
		{"bad time", func(b *Booking) { b.PartySize = intp(2); b.StartTime = "6pm" }, BusinessRestaurant, true},
		{"end before start", func(b *Booking) { b.PartySize = intp(2); b.EndTime = "17:00" }, BusinessRestaurant, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := base
			tt.mutate(&b)
			err := b.Validate(tt.bizType)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBusinessHoursWindow(t *testing.T) {
	open, close, ok := BusinessHours{OpenTime: "09:00", CloseTime: "17:00"}.Window()
	require.True(t, ok)
	assert.Equal(t, 540, open)
	assert.Equal(t, 1020, close)

	_, _, ok = BusinessHours{OpenTime: "09:00", CloseTime: "17:00", IsClosed: true}.Window()
	assert.False(t, ok)

	_, _, ok = BusinessHours{OpenTime: "17:00", CloseTime: "09:00"}.Window()
	assert.False(t, ok)
}

func TestSlotDurations(t *testing.T) {
	assert.Equal(t, 90, DefaultRestaurantConfig("b").SlotDuration())
	assert.Equal(t, 105, RestaurantConfig{SeatingDurationMinutes: 90, BufferMinutes: 15}.SlotDuration())
	assert.Equal(t, 90, RestaurantConfig{}.SlotDuration())
	assert.Equal(t, 75, Service{DurationMinutes: 60, BufferMinutes: 15}.SlotDuration())
	assert.Equal(t, 60, Service{DurationMinutes: 60}.SlotDuration())
}

func TestBusinessDefaults(t *testing.T) {
	assert.Equal(t, 30, Business{}.Interval())
	assert.Equal(t, 15, Business{SlotInterval: 15}.Interval())
	assert.Equal(t, time.UTC, Business{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, "Europe/Paris", Business{Timezone: "Europe/Paris"}.Location().String())

	assert.NoError(t, Business{ID: "b", Type: BusinessSpa, SlotInterval: 15}.Validate())
	assert.ErrorIs(t, Business{ID: "b", Type: "cafe"}.Validate(), apperr.ErrValidation)
	assert.ErrorIs(t, Business{ID: "b", Type: BusinessSpa, SlotInterval: 20}.Validate(), apperr.ErrValidation)
}

func TestScheduleException(t *testing.T) {
	off := StaffScheduleException{IsAvailable: false}
	assert.True(t, off.FullDayOff())
	_, _, ok := off.Window()
	assert.False(t, ok)

	partial := StaffScheduleException{IsAvailable: true, StartTime: strp("12:00"), EndTime: strp("16:00")}
	assert.False(t, partial.FullDayOff())
	start, end, ok := partial.Window()
	require.True(t, ok)
	assert.Equal(t, "12:00", start)
	assert.Equal(t, "16:00", end)
}

func TestSlotHoldActive(t *testing.T) {
	now := time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)
	h := SlotHold{ExpiresAt: now.Add(time.Minute)}
	assert.True(t, h.Active(now))
	assert.False(t, h.Active(now.Add(time.Minute)))
}

func TestSlotBlockValidate(t *testing.T) {
	ok := SlotBlock{Date: "2025-06-01", StartTime: "12:00", EndTime: "13:00"}
	assert.NoError(t, ok.Validate())
	assert.True(t, ok.IsGlobal())

	scoped := ok
	scoped.ResourceType = rtp(ResourceTable)
	scoped.ResourceID = strp("t1")
	assert.NoError(t, scoped.Validate())
	assert.False(t, scoped.IsGlobal())

	half := ok
	half.ResourceID = strp("t1")
	assert.ErrorIs(t, half.Validate(), apperr.ErrValidation)

	inverted := ok
	inverted.EndTime = "11:00"
	assert.ErrorIs(t, inverted.Validate(), apperr.ErrValidation)
}

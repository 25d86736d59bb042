package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
	"github.com/iliyamo/booking-engine/internal/store/memstore"
)

// 2025-06-01 is a Sunday.
const testDate = "2025-06-01"

var testNow = time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func restaurant(t *testing.T) *memstore.Store {
	t.Helper()
	st := memstore.New()
	st.PutBusiness(model.Business{ID: "r1", Name: "Trattoria", Type: model.BusinessRestaurant, Timezone: "UTC", SlotInterval: 30})
	st.PutHours(model.BusinessHours{BusinessID: "r1", DayOfWeek: 0, OpenTime: "09:00", CloseTime: "17:00"})
	st.PutRestaurantConfig(model.RestaurantConfig{BusinessID: "r1", SeatingDurationMinutes: 90, MaxPartySize: 12})
	return st
}

func spa(t *testing.T, requiresRoom bool) *memstore.Store {
	t.Helper()
	st := memstore.New()
	st.PutBusiness(model.Business{ID: "s1", Name: "Serenity", Type: model.BusinessSpa, Timezone: "UTC", SlotInterval: 30})
	st.PutHours(model.BusinessHours{BusinessID: "s1", DayOfWeek: 0, OpenTime: "09:00", CloseTime: "17:00"})
	st.PutService(model.Service{ID: "massage", BusinessID: "s1", Name: "Massage", DurationMinutes: 50, BufferMinutes: 10, RequiresRoom: requiresRoom, IsActive: true})
	st.PutStaff(model.Staff{ID: "anna", BusinessID: "s1", Name: "Anna", IsActive: true}, "massage")
	st.PutStaff(model.Staff{ID: "bea", BusinessID: "s1", Name: "Bea", IsActive: true}, "massage")
	st.PutSchedule(model.StaffSchedule{ID: "sc-anna", StaffID: "anna", DayOfWeek: 0, StartTime: "09:00", EndTime: "17:00", IsAvailable: true})
	st.PutSchedule(model.StaffSchedule{ID: "sc-bea", StaffID: "bea", DayOfWeek: 0, StartTime: "09:00", EndTime: "17:00", IsAvailable: true})
	return st
}

func table(id string, capacity int, zone string) model.Table {
	t := model.Table{ID: id, BusinessID: "r1", Name: "T-" + id, Capacity: capacity, IsActive: true}
	if zone != "" {
		t.Zone = strp(zone)
	}
	return t
}

func engine(st *memstore.Store) *Engine {
	return NewEngine(st).WithClock(func() time.Time { return testNow })
}

// book commits a confirmed booking straight into the store.
func book(t *testing.T, st *memstore.Store, id, start, end string, res ...model.ResourceRef) {
	t.Helper()
	b := model.Booking{
		ID: id, BusinessID: "r1", Reference: "BK-" + id, CustomerName: "Guest", CustomerPhone: "+100",
		BookingDate: testDate, StartTime: start, EndTime: end, PartySize: intp(2), Status: model.StatusConfirmed,
	}
	var as []model.BookingAssignment
	for _, r := range res {
		if r.Type != model.ResourceTable {
			b.BusinessID = "s1"
			b.PartySize = nil
			b.ServiceID = strp("massage")
		}
		as = append(as, model.BookingAssignment{BookingID: id, ResourceType: r.Type, ResourceID: r.ID})
	}
	err := st.InTx(context.Background(), func(tx store.Tx) error {
		if err := tx.InsertBooking(context.Background(), b); err != nil {
			return err
		}
		return tx.InsertAssignments(context.Background(), as)
	})
	require.NoError(t, err)
}

func hold(t *testing.T, st *memstore.Store, id, biz string, rt model.ResourceType, resource, start, end string, expires time.Time) {
	t.Helper()
	require.NoError(t, st.InsertHolds(context.Background(), []model.SlotHold{{
		ID: id, BusinessID: biz, Date: testDate, StartTime: start, EndTime: end,
		ResourceType: rt, ResourceID: resource, ExpiresAt: expires,
	}}))
}

func starts(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.StartTime
	}
	return out
}

func ids(rs []model.ResourceRef) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

type allocFunc func(start, end int) ([]model.ResourceRef, bool)

func (f allocFunc) Allocate(start, end int) ([]model.ResourceRef, bool) { return f(start, end) }

var always = allocFunc(func(int, int) ([]model.ResourceRef, bool) {
	return []model.ResourceRef{{Type: model.ResourceTable, ID: "t"}}, true
})

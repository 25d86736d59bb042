package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
	"github.com/iliyamo/booking-engine/internal/timeofday"
)

func TestCreateRoundTrip(t *testing.T) {
	f := restaurantFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, "r1", dinner("18:00", 4))
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	assert.Equal(t, "19:30", b.EndTime)
	assert.True(t, strings.HasPrefix(b.Reference, "BK-"))
	require.Len(t, b.Assignments, 1)
	assert.Equal(t, model.ResourceTable, b.Assignments[0].ResourceType)
	assert.Equal(t, "t4", b.Assignments[0].ResourceID)

	got, err := f.svc.Get(ctx, "r1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	byRef, err := f.svc.GetByReference(ctx, "r1", strings.ToLower(b.Reference))
	require.NoError(t, err)
	assert.Equal(t, b.ID, byRef.ID)

	assert.Empty(t, f.st.Holds(), "holds are removed in the commit")
	require.Len(t, f.rec.created, 1)
	assert.Equal(t, b.ID, f.rec.created[0].ID)

	_, err = f.svc.Get(ctx, "other-business", b.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Get(ctx, "r1", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	f := restaurantFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateRequest
		kind error
	}{
		{"missing party size", CreateRequest{Date: testDate, StartTime: "18:00", CustomerName: "A", CustomerPhone: "+1"}, apperr.ErrValidation},
		{"service on a restaurant", CreateRequest{Date: testDate, StartTime: "18:00", CustomerName: "A", CustomerPhone: "+1", PartySize: intp(2), ServiceID: strp("x")}, apperr.ErrValidation},
		{"missing name", CreateRequest{Date: testDate, StartTime: "18:00", CustomerName: "  ", CustomerPhone: "+1", PartySize: intp(2)}, apperr.ErrValidation},
		{"bad time", dinnerAt(testDate, "6pm"), apperr.ErrValidation},
		{"bad date", dinnerAt("June 1", "18:00"), apperr.ErrValidation},
		{"party above maximum", dinner("18:00", 9), apperr.ErrValidation},
		{"date in the past", dinnerAt("2025-05-29", "18:00"), apperr.ErrValidation},
		{"same day too soon", dinnerAt("2025-05-30", "11:30"), apperr.ErrValidation},
		{"off the slot grid", dinner("18:15", 2), apperr.ErrSlotUnavailable},
		{"after closing", dinner("21:00", 2), apperr.ErrSlotUnavailable},
		{"party nobody can seat", dinner("18:00", 6), apperr.ErrSlotUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, "r1", tt.req)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	_, err := f.svc.Create(ctx, "nope", dinner("18:00", 2))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Zero(t, f.st.BookingCount())
	assert.Empty(t, f.st.Holds())
}

func dinnerAt(date, start string) CreateRequest {
	r := dinner(start, 2)
	r.Date = date
	return r
}

func TestCreateRejectsTakenSlot(t *testing.T) {
	f := restaurantFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "r1", dinner("18:00", 4))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, "r1", dinner("18:00", 2))
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)
	_, err = f.svc.Create(ctx, "r1", dinner("19:00", 2))
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)

	_, err = f.svc.Create(ctx, "r1", dinner("19:30", 2))
	assert.NoError(t, err, "touching intervals do not overlap")
}

func TestCreateNeverDoubleBooks(t *testing.T) {
	f := restaurantFixture(t)
	ctx := context.Background()

	for _, start := range []string{"09:00", "10:30", "12:00", "13:30", "15:00", "16:30", "18:00"} {
		_, err := f.svc.Create(ctx, "r1", dinner(start, 2))
		require.NoError(t, err, start)
	}
	for _, start := range []string{"09:30", "11:00", "17:00"} {
		_, err := f.svc.Create(ctx, "r1", dinner(start, 2))
		require.ErrorIs(t, err, apperr.ErrSlotUnavailable, start)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Create(ctx, "r1", dinner("20:00", 2)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, wins, 1)

	all, err := f.svc.List(ctx, "r1", ListFilter{Status: model.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, all, 7+wins)
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			overlap := timeofday.Overlaps(
				timeofday.MustMinutes(a.StartTime), timeofday.MustMinutes(a.EndTime),
				timeofday.MustMinutes(b.StartTime), timeofday.MustMinutes(b.EndTime))
			assert.False(t, overlap, "%s-%s overlaps %s-%s", a.StartTime, a.EndTime, b.StartTime, b.EndTime)
		}
	}
}

func TestCreateRollsBackWhenAssignmentsFail(t *testing.T) {
	f := restaurantFixture(t)
	ctx := context.Background()

	f.st.FailNext("InsertAssignments", errors.New("deadlock"))
	_, err := f.svc.Create(ctx, "r1", dinner("18:00", 4))
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.Equal(t, "create booking failed", apperr.Message(err))
	assert.Zero(t, f.st.BookingCount())
	assert.Empty(t, f.st.Holds(), "holds are released on failure")
	assert.Empty(t, f.rec.created)

	_, err = f.svc.Create(ctx, "r1", dinner("18:00", 4))
	assert.NoError(t, err, "the slot is free again")
}

func TestCreateFailsWhenHoldsCannotBeTaken(t *testing.T) {
	f := restaurantFixture(t)
	f.st.FailNext("InsertHolds", errors.New("read-only replica"))

	_, err := f.svc.Create(context.Background(), "r1", dinner("18:00", 4))
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.Zero(t, f.st.BookingCount())
}

func TestCreateAbortsOnForeignHold(t *testing.T) {
	f := restaurantFixture(t)
	ctx := context.Background()

	// Another caller's live hold makes the slot disappear from the list.
	require.NoError(t, f.st.InsertHolds(ctx, []model.SlotHold{{
		ID: "theirs", BusinessID: "r1", Date: testDate, StartTime: "18:00", EndTime: "19:30",
		ResourceType: model.ResourceTable, ResourceID: "t4", ExpiresAt: testNow.Add(time.Minute),
	}}))
	_, err := f.svc.Create(ctx, "r1", dinner("18:00", 4))
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)
	assert.Len(t, f.st.Holds(), 1)
	assert.Equal(t, "theirs", f.st.Holds()[0].ID)
}

func TestCreateRetriesReferenceCollision(t *testing.T) {
	f := restaurantFixture(t)
	f.st.FailNext("InsertBooking", store.ErrDuplicate)

	b, err := f.svc.Create(context.Background(), "r1", dinner("18:00", 4))
	require.NoError(t, err)
	assert.Equal(t, 1, f.st.BookingCount())
	got, err := f.svc.GetByReference(context.Background(), "r1", b.Reference)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestCreateNotesAndNotifications(t *testing.T) {
	f := restaurantFixture(t)
	ctx := context.Background()

	req := dinner("18:00", 2)
	req.Notes = strp("  window seat  ")
	b, err := f.svc.Create(ctx, "r1", req)
	require.NoError(t, err)
	require.NotNil(t, b.Notes)
	assert.Equal(t, "window seat", *b.Notes)

	f.st.PutBusiness(model.Business{ID: "r1", Name: "Trattoria", Type: model.BusinessRestaurant, Timezone: "UTC", SlotInterval: 30})
	req = dinner("20:00", 2)
	req.Notes = strp("birthday")
	b, err = f.svc.Create(ctx, "r1", req)
	require.NoError(t, err)
	assert.Nil(t, b.Notes, "notes are dropped when disabled")
	assert.Len(t, f.rec.created, 1, "no notification when sms is disabled")
}

func TestCreateSpaBooking(t *testing.T) {
	f := spaFixture(t)
	ctx := context.Background()

	req := CreateRequest{Date: testDate, StartTime: "10:00", CustomerName: "Grace", CustomerPhone: "+1555", ServiceID: strp("massage")}
	b, err := f.svc.Create(ctx, "s1", req)
	require.NoError(t, err)
	assert.Equal(t, "11:00", b.EndTime)
	assert.Nil(t, b.PartySize)
	require.Len(t, b.Assignments, 2)
	assert.Equal(t, []model.ResourceRef{{Type: model.ResourceStaff, ID: "anna"}, {Type: model.ResourceRoom, ID: "room1"}}, b.Resources())
	require.Len(t, f.rec.services, 1)
	require.NotNil(t, f.rec.services[0])
	assert.Equal(t, "Massage", f.rec.services[0].Name)

	// The only room is taken, so Bea cannot take 10:00 either.
	_, err = f.svc.Create(ctx, "s1", req)
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)

	req.StartTime = "11:00"
	req.StaffID = strp("bea")
	b, err = f.svc.Create(ctx, "s1", req)
	require.NoError(t, err)
	assert.Equal(t, "bea", b.Assignments[0].ResourceID)

	_, err = f.svc.Create(ctx, "s1", CreateRequest{Date: testDate, StartTime: "10:00", CustomerName: "G", CustomerPhone: "+1", PartySize: intp(2)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Create(ctx, "s1", CreateRequest{Date: testDate, StartTime: "10:00", CustomerName: "G", CustomerPhone: "+1", ServiceID: strp("facial")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReferencesAreUnique(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		ref := NewReference()
		require.Len(t, ref, 11)
		require.True(t, strings.HasPrefix(ref, "BK-"))
		for _, c := range ref[3:] {
			require.True(t, strings.ContainsRune(crockford, c), ref)
		}
		require.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestListByPhone(t *testing.T) {
	f := restaurantFixture(t)
	ctx := context.Background()

	late, err := f.svc.Create(ctx, "r1", dinner("20:00", 2))
	require.NoError(t, err)
	early, err := f.svc.Create(ctx, "r1", dinner("12:00", 2))
	require.NoError(t, err)
	cancelled, err := f.svc.Create(ctx, "r1", dinner("16:00", 2))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, "r1", cancelled.ID)
	require.NoError(t, err)
	seed(t, f.st, model.Booking{
		ID: "past", BusinessID: "r1", Reference: "BK-PAST0000", CustomerName: "Ada", CustomerPhone: "+15550100",
		BookingDate: "2025-05-20", StartTime: "18:00", EndTime: "19:30", PartySize: intp(2), Status: model.StatusConfirmed,
	}, model.ResourceRef{Type: model.ResourceTable, ID: "t4"})

	list, err := f.svc.ListByPhone(ctx, "r1", " +15550100 ")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)

	list, err = f.svc.ListByPhone(ctx, "r1", "+19999")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.ListByPhone(ctx, "r1", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestList(t *testing.T) {
	f := restaurantFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, "r1", dinner("12:00", 2))
	require.NoError(t, err)
	c, err := f.svc.Create(ctx, "r1", dinner("18:00", 2))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, "r1", c.ID)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, "r1", ListFilter{Date: testDate})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := f.svc.List(ctx, "r1", ListFilter{Status: model.StatusCancelled})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, c.ID, only[0].ID)

	_, err = f.svc.List(ctx, "r1", ListFilter{Status: "pending"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.List(ctx, "r1", ListFilter{Date: "tomorrow"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.List(ctx, "nope", ListFilter{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCheckWindow(t *testing.T) {
	now := time.Date(2025, 5, 30, 22, 30, 0, 0, time.UTC)
	base := model.Business{Timezone: "UTC", AllowSameDay: true}

	tests := []struct {
		name  string
		biz   func(model.Business) model.Business
		date  string
		start string
		ok    bool
	}{
		{"future", nil, "2025-06-01", "10:00", true},
		{"yesterday", nil, "2025-05-29", "23:00", false},
		{"later today", nil, "2025-05-30", "23:00", true},
		{"earlier today", nil, "2025-05-30", "22:00", false},
		{"cutoff", func(b model.Business) model.Business { b.SameDayCutoffMinutes = 60; return b }, "2025-05-30", "23:00", false},
		{"same day disabled", func(b model.Business) model.Business { b.AllowSameDay = false; return b }, "2025-05-30", "23:30", false},
		{"inside horizon", func(b model.Business) model.Business { b.MaxBookingHorizonDays = 7; return b }, "2025-06-06", "10:00", true},
		{"beyond horizon", func(b model.Business) model.Business { b.MaxBookingHorizonDays = 7; return b }, "2025-06-07", "10:00", false},
		// 22:30 UTC is already 08:30 on the 31st in Sydney.
		{"business timezone", func(b model.Business) model.Business { b.Timezone = "Australia/Sydney"; return b }, "2025-05-30", "23:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			biz := base
			if tt.biz != nil {
				biz = tt.biz(biz)
			}
			err := checkWindow(biz, now, tt.date, timeofday.MustMinutes(tt.start))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperr.ErrValidation)
			}
		})
	}
}

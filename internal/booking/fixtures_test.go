package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booking-engine/internal/availability"
	"github.com/iliyamo/booking-engine/internal/hold"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
	"github.com/iliyamo/booking-engine/internal/store/memstore"
)

// 2025-06-01 is a Sunday; the clock sits two days earlier.
const testDate = "2025-06-01"

var testNow = time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)

func intp(i int) *int       { return &i }
func strp(s string) *string { return &s }

type recorder struct {
	mu        sync.Mutex
	created   []model.Booking
	services  []*model.Service
	modified  []model.Booking
	cancelled []model.Booking
}

func (r *recorder) BookingCreated(_ context.Context, b model.Booking, _ model.Business, svc *model.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, b)
	r.services = append(r.services, svc)
}

func (r *recorder) BookingModified(_ context.Context, b model.Booking, _ model.Business) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modified = append(r.modified, b)
}

func (r *recorder) BookingCancelled(_ context.Context, b model.Booking, _ model.Business) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, b)
}

type fixture struct {
	st  *memstore.Store
	svc *Service
	rec *recorder
}

func newFixture(st *memstore.Store) fixture {
	clock := func() time.Time { return testNow }
	rec := &recorder{}
	engine := availability.NewEngine(st).WithClock(clock)
	holds := hold.NewManager(st, 5*time.Minute).WithClock(clock)
	return fixture{st: st, rec: rec, svc: NewService(st, engine, holds, rec).WithClock(clock)}
}

// racingStore runs between once, right after the next booking read, to
// model another request committing in the gap before the caller writes.
type racingStore struct {
	*memstore.Store
	between func()
}

func (r *racingStore) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	b, err := r.Store.GetBooking(ctx, id)
	if h := r.between; h != nil {
		r.between = nil
		h()
	}
	return b, err
}

// racing rebuilds the fixture's service on top of a racingStore.
func (f fixture) racing() (*Service, *racingStore) {
	clock := func() time.Time { return testNow }
	rs := &racingStore{Store: f.st}
	engine := availability.NewEngine(rs).WithClock(clock)
	holds := hold.NewManager(rs, 5*time.Minute).WithClock(clock)
	return NewService(rs, engine, holds, f.rec).WithClock(clock), rs
}

func restaurantFixture(t *testing.T) fixture {
	t.Helper()
	st := memstore.New()
	st.PutBusiness(model.Business{
		ID: "r1", Name: "Trattoria", Type: model.BusinessRestaurant, Timezone: "UTC", SlotInterval: 30,
		AllowSameDay: true, NotesEnabled: true, SMSEnabled: true,
	})
	st.PutHours(model.BusinessHours{BusinessID: "r1", DayOfWeek: 0, OpenTime: "09:00", CloseTime: "22:00"})
	st.PutRestaurantConfig(model.RestaurantConfig{BusinessID: "r1", SeatingDurationMinutes: 90, MaxPartySize: 8})
	st.PutTable(model.Table{ID: "t4", BusinessID: "r1", Name: "Window", Capacity: 4, IsActive: true})
	return newFixture(st)
}

func spaFixture(t *testing.T) fixture {
	t.Helper()
	st := memstore.New()
	st.PutBusiness(model.Business{
		ID: "s1", Name: "Serenity", Type: model.BusinessSpa, Timezone: "UTC", SlotInterval: 30,
		AllowSameDay: true, NotesEnabled: true, SMSEnabled: true,
	})
	st.PutHours(model.BusinessHours{BusinessID: "s1", DayOfWeek: 0, OpenTime: "09:00", CloseTime: "17:00"})
	st.PutService(model.Service{ID: "massage", BusinessID: "s1", Name: "Massage", DurationMinutes: 50, BufferMinutes: 10, RequiresRoom: true, IsActive: true})
	for _, id := range []string{"anna", "bea"} {
		st.PutStaff(model.Staff{ID: id, BusinessID: "s1", Name: id, IsActive: true}, "massage")
		st.PutSchedule(model.StaffSchedule{ID: "sc-" + id, StaffID: id, DayOfWeek: 0, StartTime: "09:00", EndTime: "17:00", IsAvailable: true})
	}
	st.PutRoom(model.Room{ID: "room1", BusinessID: "s1", Name: "Lotus", IsActive: true})
	return newFixture(st)
}

func dinner(start string, party int) CreateRequest {
	return CreateRequest{
		Date: testDate, StartTime: start, CustomerName: "Ada Lovelace", CustomerPhone: "+15550100",
		PartySize: intp(party),
	}
}

// seed writes a booking directly, bypassing availability.
func seed(t *testing.T, st *memstore.Store, b model.Booking, res ...model.ResourceRef) {
	t.Helper()
	err := st.InTx(context.Background(), func(tx store.Tx) error {
		if err := tx.InsertBooking(context.Background(), b); err != nil {
			return err
		}
		return tx.InsertAssignments(context.Background(), assignmentsFor(b.ID, res))
	})
	require.NoError(t, err)
}

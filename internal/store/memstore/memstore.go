// Package memstore is an in-memory store.Store.  It is safe for concurrent
// use and backs the service and handler tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
)

// Store holds every table in maps guarded by one mutex.  Transactions run
// on a copy of the booking tables and swap it in on success.
type Store struct {
	mu sync.Mutex

	businesses map[string]model.Business
	hours      map[string]map[int]model.BusinessHours
	configs    map[string]model.RestaurantConfig
	tables     []model.Table
	services   []model.Service
	staff      []model.Staff
	qualified  map[string]map[string]bool
	rooms      []model.Room
	schedules  []model.StaffSchedule
	exceptions []model.StaffScheduleException
	blocks     map[string]model.SlotBlock

	data bookingData

	faults map[string]error
}

// bookingData is the part of the state mutated by transactions.
type bookingData struct {
	bookings    map[string]model.Booking
	assignments []model.BookingAssignment
	holds       map[string]model.SlotHold
}

func (d bookingData) clone() bookingData {
	out := bookingData{
		bookings:    make(map[string]model.Booking, len(d.bookings)),
		assignments: append([]model.BookingAssignment(nil), d.assignments...),
		holds:       make(map[string]model.SlotHold, len(d.holds)),
	}
	for k, v := range d.bookings {
		out.bookings[k] = v
	}
	for k, v := range d.holds {
		out.holds[k] = v
	}
	return out
}

// New returns an empty store.
func New() *Store {
	return &Store{
		businesses: map[string]model.Business{},
		hours:      map[string]map[int]model.BusinessHours{},
		configs:    map[string]model.RestaurantConfig{},
		qualified:  map[string]map[string]bool{},
		blocks:     map[string]model.SlotBlock{},
		data: bookingData{
			bookings: map[string]model.Booking{},
			holds:    map[string]model.SlotHold{},
		},
		faults: map[string]error{},
	}
}

var _ store.Store = (*Store)(nil)

// FailNext makes the next call of the named operation (for example
// "InsertAssignments") return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	if err, ok := s.faults[op]; ok {
		delete(s.faults, op)
		return err
	}
	return nil
}

// Seeding helpers.

func (s *Store) PutBusiness(b model.Business) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.businesses[b.ID] = b
}

func (s *Store) PutHours(h model.BusinessHours) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hours[h.BusinessID] == nil {
		s.hours[h.BusinessID] = map[int]model.BusinessHours{}
	}
	s.hours[h.BusinessID][h.DayOfWeek] = h
}

func (s *Store) PutRestaurantConfig(c model.RestaurantConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[c.BusinessID] = c
}

func (s *Store) PutTable(t model.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = append(s.tables, t)
}

func (s *Store) PutService(svc model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = append(s.services, svc)
}

// PutStaff adds a staff member qualified for the given services.
func (s *Store) PutStaff(st model.Staff, serviceIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff = append(s.staff, st)
	q := map[string]bool{}
	for _, id := range serviceIDs {
		q[id] = true
	}
	s.qualified[st.ID] = q
}

func (s *Store) PutRoom(r model.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append(s.rooms, r)
}

func (s *Store) PutSchedule(sc model.StaffSchedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, sc)
}

func (s *Store) PutException(e model.StaffScheduleException) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceptions = append(s.exceptions, e)
}

// Holds returns a copy of every stored hold, expired or not.
func (s *Store) Holds() []model.SlotHold {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SlotHold, 0, len(s.data.holds))
	for _, h := range s.data.holds {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BookingCount returns the number of stored bookings.
func (s *Store) BookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.bookings)
}

// Catalog.

func (s *Store) GetBusiness(_ context.Context, id string) (model.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("GetBusiness"); err != nil {
		return model.Business{}, err
	}
	b, ok := s.businesses[id]
	if !ok {
		return model.Business{}, store.ErrNotFound
	}
	return b, nil
}

func (s *Store) GetBusinessHours(_ context.Context, businessID string, dayOfWeek int) (model.BusinessHours, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hours[businessID][dayOfWeek]
	if !ok {
		return model.BusinessHours{}, store.ErrNotFound
	}
	return h, nil
}

func (s *Store) ListBusinessHours(_ context.Context, businessID string) ([]model.BusinessHours, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.BusinessHours, 0, 7)
	for _, h := range s.hours[businessID] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (s *Store) GetRestaurantConfig(_ context.Context, businessID string) (model.RestaurantConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.configs[businessID]
	if !ok {
		return model.RestaurantConfig{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListTables(_ context.Context, businessID string) ([]model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Table
	for _, t := range s.tables {
		if t.BusinessID == businessID && t.IsActive {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Capacity != out[j].Capacity {
			return out[i].Capacity < out[j].Capacity
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetService(_ context.Context, businessID, serviceID string) (model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, svc := range s.services {
		if svc.ID == serviceID && svc.BusinessID == businessID {
			return svc, nil
		}
	}
	return model.Service{}, store.ErrNotFound
}

func (s *Store) ListServices(_ context.Context, businessID string) ([]model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Service
	for _, svc := range s.services {
		if svc.BusinessID == businessID && svc.IsActive {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (s *Store) ListStaff(_ context.Context, businessID string) ([]model.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Staff
	for _, st := range s.staff {
		if st.BusinessID == businessID && st.IsActive {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListQualifiedStaff(ctx context.Context, businessID, serviceID string) ([]model.Staff, error) {
	all, _ := s.ListStaff(ctx, businessID)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Staff
	for _, st := range all {
		if s.qualified[st.ID][serviceID] {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Store) ListRooms(_ context.Context, businessID string) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Room
	for _, r := range s.rooms {
		if r.BusinessID == businessID && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListStaffSchedules(_ context.Context, staffID string, dayOfWeek int) ([]model.StaffSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StaffSchedule
	for _, sc := range s.schedules {
		if sc.StaffID == staffID && sc.DayOfWeek == dayOfWeek {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *Store) ListStaffExceptions(_ context.Context, staffID, date string) ([]model.StaffScheduleException, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StaffScheduleException
	for _, e := range s.exceptions {
		if e.StaffID == staffID && e.Date == date {
			out = append(out, e)
		}
	}
	return out, nil
}

// Occupancy.

func (s *Store) ListBookedIntervals(_ context.Context, q store.OccupancyQuery) ([]store.BookedInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ListBookedIntervals"); err != nil {
		return nil, err
	}
	ids := idSet(q.ResourceIDs)
	var out []store.BookedInterval
	for _, a := range s.data.assignments {
		if a.ResourceType != q.ResourceType || !ids[a.ResourceID] || a.BookingID == q.ExcludeBookingID {
			continue
		}
		b, ok := s.data.bookings[a.BookingID]
		if !ok || b.BusinessID != q.BusinessID || b.BookingDate != q.Date || b.Status != model.StatusConfirmed {
			continue
		}
		out = append(out, store.BookedInterval{
			BookingID:  b.ID,
			ResourceID: a.ResourceID,
			StartTime:  b.StartTime,
			EndTime:    b.EndTime,
		})
	}
	return out, nil
}

func (s *Store) ListActiveHolds(_ context.Context, q store.OccupancyQuery, now time.Time) ([]model.SlotHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := idSet(q.ResourceIDs)
	var out []model.SlotHold
	for _, h := range s.data.holds {
		if h.BusinessID == q.BusinessID && h.Date == q.Date && h.ResourceType == q.ResourceType && ids[h.ResourceID] && h.Active(now) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListBlocks(_ context.Context, businessID, date string) ([]model.SlotBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SlotBlock
	for _, b := range s.blocks {
		if b.BusinessID == businessID && (date == "" || b.Date == date) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

// Holds.

func (s *Store) InsertHolds(_ context.Context, holds []model.SlotHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InsertHolds"); err != nil {
		return err
	}
	for _, h := range holds {
		if _, dup := s.data.holds[h.ID]; dup {
			return store.ErrDuplicate
		}
	}
	for _, h := range holds {
		s.data.holds[h.ID] = h
	}
	return nil
}

func (s *Store) DeleteHolds(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("DeleteHolds"); err != nil {
		return err
	}
	for _, id := range ids {
		delete(s.data.holds, id)
	}
	return nil
}

func (s *Store) DeleteExpiredHolds(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, h := range s.data.holds {
		if !h.Active(now) {
			delete(s.data.holds, id)
			n++
		}
	}
	return n, nil
}

// Blocks.

func (s *Store) GetBlock(_ context.Context, businessID, id string) (model.SlotBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[id]
	if !ok || b.BusinessID != businessID {
		return model.SlotBlock{}, store.ErrNotFound
	}
	return b, nil
}

func (s *Store) InsertBlock(_ context.Context, b model.SlotBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, dup := s.blocks[b.ID]; dup {
		return store.ErrDuplicate
	}
	s.blocks[b.ID] = b
	return nil
}

func (s *Store) DeleteBlock(_ context.Context, businessID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[id]
	if !ok || b.BusinessID != businessID {
		return store.ErrNotFound
	}
	delete(s.blocks, id)
	return nil
}

// Bookings.

func (s *Store) GetBooking(_ context.Context, id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data.bookings[id]
	if !ok {
		return model.Booking{}, store.ErrNotFound
	}
	return s.withAssignments(b), nil
}

func (s *Store) GetBookingByReference(_ context.Context, businessID, reference string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.data.bookings {
		if b.Reference == reference && (businessID == "" || b.BusinessID == businessID) {
			return s.withAssignments(b), nil
		}
	}
	return model.Booking{}, store.ErrNotFound
}

func (s *Store) ListBookings(_ context.Context, f store.BookingFilter) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, b := range s.data.bookings {
		if f.BusinessID != "" && b.BusinessID != f.BusinessID {
			continue
		}
		if f.Phone != "" && b.CustomerPhone != f.Phone {
			continue
		}
		if f.Date != "" && b.BookingDate != f.Date {
			continue
		}
		if f.FromDate != "" && b.BookingDate < f.FromDate {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, s.withAssignments(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookingDate != out[j].BookingDate {
			return out[i].BookingDate < out[j].BookingDate
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) withAssignments(b model.Booking) model.Booking {
	b.Assignments = make([]model.BookingAssignment, 0, 2)
	for _, a := range s.data.assignments {
		if a.BookingID == b.ID {
			b.Assignments = append(b.Assignments, a)
		}
	}
	return b
}

// InTx runs fn against a copy of the booking tables and publishes the copy
// only when fn succeeds.  The store lock is held for the whole call, so fn
// must not call back into the Store.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InTx"); err != nil {
		return err
	}
	t := &tx{s: s, data: s.data.clone()}
	if err := fn(t); err != nil {
		return err
	}
	s.data = t.data
	return nil
}

type tx struct {
	s    *Store
	data bookingData
}

func (t *tx) InsertBooking(_ context.Context, b model.Booking) error {
	if err := t.s.fault("InsertBooking"); err != nil {
		return err
	}
	if _, dup := t.data.bookings[b.ID]; dup {
		return store.ErrDuplicate
	}
	for _, existing := range t.data.bookings {
		if existing.Reference == b.Reference {
			return store.ErrDuplicate
		}
	}
	b.Assignments = nil
	t.data.bookings[b.ID] = b
	return nil
}

func (t *tx) UpdateBooking(_ context.Context, b model.Booking, from model.BookingStatus) error {
	if err := t.s.fault("UpdateBooking"); err != nil {
		return err
	}
	cur, ok := t.data.bookings[b.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Status != from {
		return store.ErrConflict
	}
	b.Assignments = nil
	t.data.bookings[b.ID] = b
	return nil
}

func (t *tx) InsertAssignments(_ context.Context, as []model.BookingAssignment) error {
	if err := t.s.fault("InsertAssignments"); err != nil {
		return err
	}
	for _, a := range as {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		t.data.assignments = append(t.data.assignments, a)
	}
	return nil
}

func (t *tx) DeleteAssignments(_ context.Context, bookingID string) error {
	if err := t.s.fault("DeleteAssignments"); err != nil {
		return err
	}
	kept := t.data.assignments[:0:0]
	for _, a := range t.data.assignments {
		if a.BookingID != bookingID {
			kept = append(kept, a)
		}
	}
	t.data.assignments = kept
	return nil
}

func (t *tx) UpdateAssignmentResource(_ context.Context, bookingID string, rt model.ResourceType, resourceID string) error {
	if err := t.s.fault("UpdateAssignmentResource"); err != nil {
		return err
	}
	for i, a := range t.data.assignments {
		if a.BookingID == bookingID && a.ResourceType == rt {
			t.data.assignments[i].ResourceID = resourceID
			return nil
		}
	}
	return store.ErrNotFound
}

func (t *tx) DeleteHolds(_ context.Context, ids []string) error {
	if err := t.s.fault("TxDeleteHolds"); err != nil {
		return err
	}
	for _, id := range ids {
		delete(t.data.holds, id)
	}
	return nil
}

func idSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

package availability

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/metrics"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
	"github.com/iliyamo/booking-engine/internal/timeofday"
)

// Source is the read side the engine needs.
type Source interface {
	store.Catalog
	store.Occupancy
}

// Engine computes slot lists and re-checks a chosen slot against current
// occupancy.
type Engine struct {
	src      Source
	resolver *Resolver
	now      func() time.Time
}

func NewEngine(src Source) *Engine {
	return &Engine{src: src, resolver: NewResolver(src), now: time.Now}
}

// WithClock replaces the engine's clock.  Hold expiry is evaluated against
// it.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Availability loads the business named by req and computes its slots.
func (e *Engine) Availability(ctx context.Context, req Request) ([]Slot, error) {
	if req.BusinessID == "" {
		return nil, apperr.Validation("business_id is required")
	}
	biz, err := e.src.GetBusiness(ctx, req.BusinessID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("business not found")
	}
	if err != nil {
		return nil, apperr.Store("load business", err)
	}
	return e.Compute(ctx, biz, req)
}

// Compute returns the available slots for req on biz.  A closed day or a
// missing hours row yields an empty list before the request is resolved;
// an empty inventory does too.
func (e *Engine) Compute(ctx context.Context, biz model.Business, req Request) ([]Slot, error) {
	dow, err := timeofday.Weekday(req.Date)
	if err != nil {
		return nil, apperr.Validation("date must be YYYY-MM-DD")
	}

	timer := metrics.NewTimer()
	defer func() {
		metrics.SlotComputations.WithLabelValues(string(biz.Type)).Inc()
		timer.ObserveDuration(metrics.SlotComputationDuration.WithLabelValues(string(biz.Type)))
	}()

	hours, err := e.src.GetBusinessHours(ctx, biz.ID, dow)
	if errors.Is(err, store.ErrNotFound) {
		return []Slot{}, nil
	}
	if err != nil {
		return nil, apperr.Store("load business hours", err)
	}
	open, close, ok := hours.Window()
	if !ok {
		return []Slot{}, nil
	}
	if req.TimeStart != "" && req.TimeEnd != "" {
		s, err1 := timeofday.ToMinutes(req.TimeStart)
		en, err2 := timeofday.ToMinutes(req.TimeEnd)
		if err1 != nil || err2 != nil || en <= s {
			return nil, apperr.Validation("time_start and time_end must be HH:MM with time_start before time_end")
		}
		open, close = s, en
	}

	inv, err := e.resolver.Resolve(ctx, biz, req)
	if err != nil {
		return nil, err
	}

	if inv.Empty() {
		return []Slot{}, nil
	}

	alloc, err := e.allocator(ctx, inv, req, dow, nil)
	if err != nil {
		return nil, err
	}
	return Generate(open, close, biz.Interval(), inv.Duration, alloc), nil
}

func (e *Engine) allocator(ctx context.Context, inv Inventory, req Request, dow int, excludeHolds []string) (Allocator, error) {
	now := e.now()
	biz := inv.Business
	if biz.Type == model.BusinessRestaurant {
		ledger, err := LoadLedger(ctx, e.src,
			ledgerQuery(biz.ID, req.Date, model.ResourceTable, tableIDs(inv.Tables), req.ExcludeBookingID, excludeHolds, inv.Duration), now)
		if err != nil {
			return nil, err
		}
		return &TableAllocator{PartySize: inv.PartySize, Suitable: inv.Suitable, Tables: inv.Tables, Ledger: ledger}, nil
	}

	candidates := make([]StaffCandidate, 0, len(inv.Staff))
	for _, st := range inv.Staff {
		schedules, err := e.src.ListStaffSchedules(ctx, st.ID, dow)
		if err != nil {
			return nil, apperr.Store("load staff schedules", err)
		}
		exceptions, err := e.src.ListStaffExceptions(ctx, st.ID, req.Date)
		if err != nil {
			return nil, apperr.Store("load staff exceptions", err)
		}
		candidates = append(candidates, StaffCandidate{Staff: st, Windows: StaffWindows(schedules, exceptions)})
	}
	staffLedger, err := LoadLedger(ctx, e.src,
		ledgerQuery(biz.ID, req.Date, model.ResourceStaff, staffIDs(inv.Staff), req.ExcludeBookingID, excludeHolds, inv.Duration), now)
	if err != nil {
		return nil, err
	}
	a := &SpaAllocator{Staff: candidates, StaffLedger: staffLedger}
	if inv.Service != nil && inv.Service.RequiresRoom {
		roomLedger, err := LoadLedger(ctx, e.src,
			ledgerQuery(biz.ID, req.Date, model.ResourceRoom, roomIDs(inv.Rooms), req.ExcludeBookingID, excludeHolds, inv.Duration), now)
		if err != nil {
			return nil, err
		}
		a.RequiresRoom = true
		a.Rooms = inv.Rooms
		a.RoomLedger = roomLedger
	}
	return a, nil
}

// Verify re-reads occupancy for the resources behind slot and reports
// whether every one of them is still free.  The caller's own holds and the
// booking being moved are left out.
func (e *Engine) Verify(ctx context.Context, businessID, date string, slot Slot, excludeHoldIDs []string, excludeBookingID string) (bool, error) {
	start, err := timeofday.ToMinutes(slot.StartTime)
	if err != nil {
		return false, apperr.Validation("start_time must be HH:MM")
	}
	end, err := timeofday.ToMinutes(slot.EndTime)
	if err != nil {
		return false, apperr.Validation("end_time must be HH:MM")
	}

	byType := map[model.ResourceType][]string{}
	var order []model.ResourceType
	for _, r := range slot.Resources {
		if _, seen := byType[r.Type]; !seen {
			order = append(order, r.Type)
		}
		byType[r.Type] = append(byType[r.Type], r.ID)
	}

	now := e.now()
	for _, t := range order {
		ids := byType[t]
		ledger, err := LoadLedger(ctx, e.src, ledgerQuery(businessID, date, t, ids, excludeBookingID, excludeHoldIDs, end-start), now)
		if err != nil {
			return false, err
		}
		for _, id := range ids {
			if !ledger.IsAvailable(id, start, end) {
				return false, nil
			}
		}
	}
	return true, nil
}

// Find returns the slot starting at startTime, if any.
func Find(slots []Slot, startTime string) (Slot, bool) {
	for _, s := range slots {
		if s.StartTime == startTime {
			return s, true
		}
	}
	return Slot{}, false
}

// Package availability computes bookable slots.  A Resolver turns a request
// into a candidate resource set, a Ledger answers whether a resource is free
// for a window, an Allocator picks the resource(s) for one window and
// Generate walks the opening hours at the business's slot interval.
package availability

import (
	"context"
	"errors"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
)

// Request describes an availability query.  PartySize applies to
// restaurants, ServiceID and the optional StaffID to spas.
type Request struct {
	BusinessID string
	Date       string
	PartySize  int
	ServiceID  string
	StaffID    string
	// TimeStart and TimeEnd narrow the opening window.  Both must be set
	// for the override to apply.
	TimeStart string
	TimeEnd   string
	// ExcludeBookingID leaves one booking out of occupancy.
	ExcludeBookingID string
}

// Inventory is the candidate resource set for one request.
type Inventory struct {
	Business model.Business
	// Duration is the occupancy length of one slot in minutes, buffer
	// included.
	Duration int

	PartySize int
	Config    model.RestaurantConfig
	// Tables holds every active table ordered by capacity ascending.
	Tables []model.Table
	// Suitable is the subset of Tables that seats PartySize on its own.
	Suitable []model.Table

	Service *model.Service
	Staff   []model.Staff
	Rooms   []model.Room
}

// Empty reports whether no resource could ever serve the request.
func (inv Inventory) Empty() bool {
	if inv.Business.Type == model.BusinessRestaurant {
		return len(inv.Tables) == 0
	}
	if len(inv.Staff) == 0 {
		return true
	}
	return inv.Service != nil && inv.Service.RequiresRoom && len(inv.Rooms) == 0
}

// Resolver loads candidate resources from the catalog.
type Resolver struct {
	catalog store.Catalog
}

func NewResolver(catalog store.Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve returns the inventory for req.  A missing or inactive service
// fails with NotFound.  A request nothing can serve is not an error: the
// returned inventory is simply empty.
func (r *Resolver) Resolve(ctx context.Context, biz model.Business, req Request) (Inventory, error) {
	inv := Inventory{Business: biz}
	switch biz.Type {
	case model.BusinessRestaurant:
		if req.PartySize < 1 {
			return inv, apperr.Validation("party_size is required for restaurant bookings")
		}
		cfg, err := r.catalog.GetRestaurantConfig(ctx, biz.ID)
		if errors.Is(err, store.ErrNotFound) {
			cfg = model.DefaultRestaurantConfig(biz.ID)
		} else if err != nil {
			return inv, apperr.Store("load restaurant config", err)
		}
		tables, err := r.catalog.ListTables(ctx, biz.ID)
		if err != nil {
			return inv, apperr.Store("load tables", err)
		}
		inv.PartySize = req.PartySize
		inv.Config = cfg
		inv.Duration = cfg.SlotDuration()
		inv.Tables = tables
		for _, t := range tables {
			if t.Capacity >= req.PartySize {
				inv.Suitable = append(inv.Suitable, t)
			}
		}
		return inv, nil

	case model.BusinessSpa:
		if req.ServiceID == "" {
			return inv, apperr.Validation("service_id is required for spa bookings")
		}
		svc, err := r.catalog.GetService(ctx, biz.ID, req.ServiceID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !svc.IsActive) {
			return inv, apperr.NotFound("service not found")
		}
		if err != nil {
			return inv, apperr.Store("load service", err)
		}
		staff, err := r.catalog.ListQualifiedStaff(ctx, biz.ID, svc.ID)
		if err != nil {
			return inv, apperr.Store("load staff", err)
		}
		if req.StaffID != "" {
			var only []model.Staff
			for _, st := range staff {
				if st.ID == req.StaffID {
					only = append(only, st)
				}
			}
			staff = only
		}
		inv.Service = &svc
		inv.Duration = svc.SlotDuration()
		inv.Staff = staff
		if svc.RequiresRoom {
			rooms, err := r.catalog.ListRooms(ctx, biz.ID)
			if err != nil {
				return inv, apperr.Store("load rooms", err)
			}
			inv.Rooms = rooms
		}
		return inv, nil
	}
	return inv, apperr.Validation("unknown business type")
}

func tableIDs(ts []model.Table) []string {
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids
}

func staffIDs(ss []model.Staff) []string {
	ids := make([]string, len(ss))
	for i, s := range ss {
		ids[i] = s.ID
	}
	return ids
}

func roomIDs(rs []model.Room) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}

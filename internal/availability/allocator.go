package availability

import "github.com/iliyamo/booking-engine/internal/model"

// Allocator picks the resources serving one candidate window.  ok is false
// when nothing can serve it.
type Allocator interface {
	Allocate(start, end int) (resources []model.ResourceRef, ok bool)
}

// TableAllocator assigns restaurant tables.  A single table is always
// preferred.  Otherwise the first same-zone pair whose capacities add up to
// the party is taken; zones are tried in the order they first appear in
// Tables and pairs in list order.  Combinations larger than two tables and
// pairs across zones are never produced.
type TableAllocator struct {
	PartySize int
	Suitable  []model.Table
	Tables    []model.Table
	Ledger    *Ledger
}

func (a *TableAllocator) Allocate(start, end int) ([]model.ResourceRef, bool) {
	for _, t := range a.Suitable {
		if a.Ledger.IsAvailable(t.ID, start, end) {
			return []model.ResourceRef{tableRef(t)}, true
		}
	}

	var order []string
	zones := map[string][]model.Table{}
	for _, t := range a.Tables {
		if !a.Ledger.IsAvailable(t.ID, start, end) {
			continue
		}
		key := t.ZoneKey()
		if _, seen := zones[key]; !seen {
			order = append(order, key)
		}
		zones[key] = append(zones[key], t)
	}
	for _, key := range order {
		group := zones[key]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if group[i].Capacity+group[j].Capacity >= a.PartySize {
					return []model.ResourceRef{tableRef(group[i]), tableRef(group[j])}, true
				}
			}
		}
	}
	return nil, false
}

func tableRef(t model.Table) model.ResourceRef {
	return model.ResourceRef{Type: model.ResourceTable, ID: t.ID, Name: t.Name}
}

// StaffCandidate is a qualified staff member with their working windows
// for the query date.
type StaffCandidate struct {
	Staff   model.Staff
	Windows []Window
}

// SpaAllocator assigns the first staff member who works the whole window
// and is free for it, plus the first free room when the service needs one.
type SpaAllocator struct {
	Staff        []StaffCandidate
	Rooms        []model.Room
	RequiresRoom bool
	StaffLedger  *Ledger
	RoomLedger   *Ledger
}

func (a *SpaAllocator) Allocate(start, end int) ([]model.ResourceRef, bool) {
	for _, c := range a.Staff {
		if !fits(c.Windows, start, end) || !a.StaffLedger.IsAvailable(c.Staff.ID, start, end) {
			continue
		}
		staff := model.ResourceRef{Type: model.ResourceStaff, ID: c.Staff.ID, Name: c.Staff.Name}
		if !a.RequiresRoom {
			return []model.ResourceRef{staff}, true
		}
		for _, r := range a.Rooms {
			if a.RoomLedger.IsAvailable(r.ID, start, end) {
				return []model.ResourceRef{staff, {Type: model.ResourceRoom, ID: r.ID, Name: r.Name}}, true
			}
		}
	}
	return nil, false
}

package availability

import (
	"context"
	"time"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/logging"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
	"github.com/iliyamo/booking-engine/internal/timeofday"
)

// Window is a half-open [Start, End) range in minutes since midnight.
type Window struct {
	Start, End int
}

// LedgerQuery scopes a ledger load.
type LedgerQuery struct {
	store.OccupancyQuery
	// ExcludeHoldIDs leaves the caller's own holds out of occupancy.
	ExcludeHoldIDs []string
	// FallbackDuration is applied to bookings stored without an end time.
	FallbackDuration int
}

// Ledger is the occupancy of one resource type on one date: confirmed
// bookings, active holds and blocks.
type Ledger struct {
	global []Window
	scoped map[string][]Window
}

// LoadLedger reads the three occupancy sources for q.  Holds are occupancy
// only while they expire after now.
func LoadLedger(ctx context.Context, occ store.Occupancy, q LedgerQuery, now time.Time) (*Ledger, error) {
	l := &Ledger{scoped: map[string][]Window{}}

	ids := make(map[string]bool, len(q.ResourceIDs))
	for _, id := range q.ResourceIDs {
		ids[id] = true
	}

	blocks, err := occ.ListBlocks(ctx, q.BusinessID, q.Date)
	if err != nil {
		return nil, apperr.Store("load blocks", err)
	}
	for _, b := range blocks {
		iv, ok := parseInterval(b.StartTime, b.EndTime)
		if !ok {
			continue
		}
		if b.IsGlobal() {
			l.global = append(l.global, iv)
			continue
		}
		if b.ResourceType == nil {
			log := logging.WithComponent("availability")
			log.Warn().
				Str("business_id", b.BusinessID).Str("block_id", b.ID).
				Msg("skipping block with resource_id but no resource_type")
			continue
		}
		if *b.ResourceType == q.ResourceType && ids[*b.ResourceID] {
			l.scoped[*b.ResourceID] = append(l.scoped[*b.ResourceID], iv)
		}
	}

	if len(ids) == 0 {
		return l, nil
	}

	booked, err := occ.ListBookedIntervals(ctx, q.OccupancyQuery)
	if err != nil {
		return nil, apperr.Store("load bookings", err)
	}
	for _, bi := range booked {
		start, err := timeofday.ToMinutes(bi.StartTime)
		if err != nil {
			continue
		}
		end := start + q.FallbackDuration
		if bi.EndTime != "" {
			if e, err := timeofday.ToMinutes(bi.EndTime); err == nil {
				end = e
			}
		}
		l.scoped[bi.ResourceID] = append(l.scoped[bi.ResourceID], Window{start, end})
	}

	holds, err := occ.ListActiveHolds(ctx, q.OccupancyQuery, now)
	if err != nil {
		return nil, apperr.Store("load holds", err)
	}
	skip := make(map[string]bool, len(q.ExcludeHoldIDs))
	for _, id := range q.ExcludeHoldIDs {
		skip[id] = true
	}
	for _, h := range holds {
		if skip[h.ID] || !h.Active(now) {
			continue
		}
		iv, ok := parseInterval(h.StartTime, h.EndTime)
		if !ok {
			continue
		}
		l.scoped[h.ResourceID] = append(l.scoped[h.ResourceID], iv)
	}
	return l, nil
}

// IsAvailable reports whether resourceID is free for [start, end).
func (l *Ledger) IsAvailable(resourceID string, start, end int) bool {
	for _, iv := range l.global {
		if timeofday.Overlaps(start, end, iv.Start, iv.End) {
			return false
		}
	}
	for _, iv := range l.scoped[resourceID] {
		if timeofday.Overlaps(start, end, iv.Start, iv.End) {
			return false
		}
	}
	return true
}

func parseInterval(start, end string) (Window, bool) {
	s, err := timeofday.ToMinutes(start)
	if err != nil {
		return Window{}, false
	}
	e, err := timeofday.ToMinutes(end)
	if err != nil {
		return Window{}, false
	}
	return Window{s, e}, true
}

// ledgerQuery builds the common query shape for a resource type.
func ledgerQuery(biz, date string, t model.ResourceType, ids []string, excludeBooking string, excludeHolds []string, fallback int) LedgerQuery {
	return LedgerQuery{
		OccupancyQuery: store.OccupancyQuery{
			BusinessID:       biz,
			Date:             date,
			ResourceType:     t,
			ResourceIDs:      ids,
			ExcludeBookingID: excludeBooking,
		},
		ExcludeHoldIDs:   excludeHolds,
		FallbackDuration: fallback,
	}
}

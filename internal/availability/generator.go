package availability

import (
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/timeofday"
)

// Slot is a bookable window together with the resources that would serve
// it.
type Slot struct {
	StartTime string              `json:"start_time"`
	EndTime   string              `json:"end_time"`
	Resources []model.ResourceRef `json:"resources"`
}

// Generate walks [open, close) in steps of interval and emits every
// candidate the allocator can serve.  Candidates that would end after close
// are dropped, never truncated.
func Generate(open, close, interval, duration int, alloc Allocator) []Slot {
	slots := make([]Slot, 0)
	if interval <= 0 || duration <= 0 {
		return slots
	}
	for start := open; start < close; start += interval {
		end := start + duration
		if end > close {
			continue
		}
		res, ok := alloc.Allocate(start, end)
		if !ok {
			continue
		}
		slots = append(slots, Slot{
			StartTime: timeofday.ToHHMM(start),
			EndTime:   timeofday.ToHHMM(end),
			Resources: res,
		})
	}
	return slots
}

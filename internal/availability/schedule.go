package availability

import (
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/timeofday"
)

// StaffWindows resolves a staff member's working windows for one date.
// Exceptions win over the weekly schedule: any full-day-off exception
// empties the day, and available exception windows replace the weekly rows
// rather than adding to them.
func StaffWindows(schedules []model.StaffSchedule, exceptions []model.StaffScheduleException) []Window {
	for _, e := range exceptions {
		if e.FullDayOff() {
			return nil
		}
	}

	var out []Window
	for _, e := range exceptions {
		if s, en, ok := e.Window(); ok {
			if iv, ok := parseInterval(s, en); ok && iv.End > iv.Start {
				out = append(out, iv)
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, sc := range schedules {
		if !sc.IsAvailable {
			continue
		}
		if iv, ok := parseInterval(sc.StartTime, sc.EndTime); ok && iv.End > iv.Start {
			out = append(out, iv)
		}
	}
	return out
}

func fits(windows []Window, start, end int) bool {
	for _, w := range windows {
		if timeofday.Within(start, end, w.Start, w.End) {
			return true
		}
	}
	return false
}

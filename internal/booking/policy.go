package booking

import (
	"fmt"
	"time"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/timeofday"
)

// checkWindow applies the business's booking window to a requested date and
// start time.  "Today" and "now" are taken in the business timezone.
func checkWindow(biz model.Business, now time.Time, date string, start int) error {
	day, err := timeofday.ParseDate(date)
	if err != nil {
		return apperr.Validation("date must be YYYY-MM-DD")
	}
	local := now.In(biz.Location())
	today := local.Format(timeofday.DateLayout)
	if date < today {
		return apperr.Validation("date is in the past")
	}
	if biz.MaxBookingHorizonDays > 0 {
		first, _ := time.Parse(timeofday.DateLayout, today)
		if day.After(first.AddDate(0, 0, biz.MaxBookingHorizonDays)) {
			return apperr.Validation(fmt.Sprintf("bookings open at most %d days ahead", biz.MaxBookingHorizonDays))
		}
	}
	if date == today {
		if !biz.AllowSameDay {
			return apperr.Validation("same-day bookings are not accepted")
		}
		earliest := local.Hour()*60 + local.Minute() + biz.SameDayCutoffMinutes
		if start < earliest {
			return apperr.Validation("start_time is too soon")
		}
	}
	return nil
}

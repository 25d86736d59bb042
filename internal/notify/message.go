package notify

import (
	"fmt"
	"strings"

	"github.com/iliyamo/booking-engine/internal/model"
)

// Messages renders customer SMS texts.  FrontendURL is the base of the
// manage-booking link; without it the link is omitted.
type Messages struct {
	FrontendURL string
}

// ManageLink returns the customer-facing URL for a booking.
func (m Messages) ManageLink(bookingID string) string {
	base := strings.TrimRight(m.FrontendURL, "/")
	if base == "" {
		return ""
	}
	return base + "/manage/" + bookingID
}

// Created renders the confirmation text.  Restaurant bookings quote the
// party size, spa bookings the service name.
func (m Messages) Created(b model.Booking, biz model.Business, svc *model.Service) string {
	var msg string
	if b.PartySize != nil {
		msg = fmt.Sprintf("✅ Booking confirmed at %s: %s %s for %d guests. Ref: %s.",
			biz.Name, b.BookingDate, b.StartTime, *b.PartySize, b.Reference)
	} else {
		name := "your service"
		if svc != nil && svc.Name != "" {
			name = svc.Name
		}
		msg = fmt.Sprintf("✅ Appointment confirmed at %s: %s on %s %s. Ref: %s.",
			biz.Name, name, b.BookingDate, b.StartTime, b.Reference)
	}
	if link := m.ManageLink(b.ID); link != "" {
		msg += " Manage: " + link
	}
	return msg
}

func (m Messages) Modified(b model.Booking, biz model.Business) string {
	return fmt.Sprintf("✏️ Booking updated at %s: %s %s. Ref: %s", biz.Name, b.BookingDate, b.StartTime, b.Reference)
}

func (m Messages) Cancelled(b model.Booking, biz model.Business) string {
	return fmt.Sprintf("❌ Booking cancelled at %s: %s %s. Ref: %s", biz.Name, b.BookingDate, b.StartTime, b.Reference)
}

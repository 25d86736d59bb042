// Package queue carries booking notifications over RabbitMQ.  The API
// process publishes one BookingEvent per committed change and the
// notify-worker consumes them and delivers the SMS.
package queue

import (
	"time"

	"github.com/iliyamo/booking-engine/internal/model"
)

// DefaultQueue is the queue events are published to when none is
// configured.
const DefaultQueue = "booking.events"

// BookingEvent is published when a booking is created, modified or
// cancelled.  Message is the rendered SMS text so consumers never need the
// primary database.
type BookingEvent struct {
	Type        string `json:"type"`
	BookingID   string `json:"booking_id"`
	BusinessID  string `json:"business_id"`
	Reference   string `json:"reference"`
	Phone       string `json:"phone"`
	BookingDate string `json:"booking_date"`
	StartTime   string `json:"start_time"`
	Message     string `json:"message"`
	OccurredAt  string `json:"occurred_at"`
}

// NewBookingEvent fills the event from b.
func NewBookingEvent(eventType string, b model.Booking, message string, at time.Time) BookingEvent {
	return BookingEvent{
		Type:        eventType,
		BookingID:   b.ID,
		BusinessID:  b.BusinessID,
		Reference:   b.Reference,
		Phone:       b.CustomerPhone,
		BookingDate: b.BookingDate,
		StartTime:   b.StartTime,
		Message:     message,
		OccurredAt:  at.UTC().Format(time.RFC3339),
	}
}

// Package notify delivers booking notifications.  Every Notifier method is
// best effort: failures are logged and never reach the caller.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iliyamo/booking-engine/internal/logging"
	"github.com/iliyamo/booking-engine/internal/metrics"
	"github.com/iliyamo/booking-engine/internal/model"
)

// Event kinds.
const (
	EventCreated   = "created"
	EventModified  = "modified"
	EventCancelled = "cancelled"
)

// Notifier is told about committed booking changes.
type Notifier interface {
	BookingCreated(ctx context.Context, b model.Booking, biz model.Business, svc *model.Service)
	BookingModified(ctx context.Context, b model.Booking, biz model.Business)
	BookingCancelled(ctx context.Context, b model.Booking, biz model.Business)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) BookingCreated(context.Context, model.Booking, model.Business, *model.Service) {}
func (Nop) BookingModified(context.Context, model.Booking, model.Business)                {}
func (Nop) BookingCancelled(context.Context, model.Booking, model.Business)               {}

// Direct renders each message and hands it straight to a Sender.
type Direct struct {
	sender Sender
	msgs   Messages
	log    zerolog.Logger
}

func NewDirect(sender Sender, msgs Messages) *Direct {
	return &Direct{sender: sender, msgs: msgs, log: logging.WithComponent("notify")}
}

func (d *Direct) BookingCreated(ctx context.Context, b model.Booking, biz model.Business, svc *model.Service) {
	d.send(ctx, EventCreated, b, d.msgs.Created(b, biz, svc))
}

func (d *Direct) BookingModified(ctx context.Context, b model.Booking, biz model.Business) {
	d.send(ctx, EventModified, b, d.msgs.Modified(b, biz))
}

func (d *Direct) BookingCancelled(ctx context.Context, b model.Booking, biz model.Business) {
	d.send(ctx, EventCancelled, b, d.msgs.Cancelled(b, biz))
}

func (d *Direct) send(ctx context.Context, event string, b model.Booking, body string) {
	if err := d.sender.Send(ctx, b.CustomerPhone, body); err != nil {
		metrics.NotificationsPublished.WithLabelValues(event, "error").Inc()
		d.log.Warn().Err(err).Str("event", event).Str("booking_id", b.ID).Str("provider", d.sender.ProviderID()).Msg("sms send failed")
		return
	}
	metrics.NotificationsPublished.WithLabelValues(event, "ok").Inc()
}

package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booking-engine/internal/logging"
	"github.com/iliyamo/booking-engine/internal/metrics"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/notify"
)

// Publisher is a notify.Notifier that publishes BookingEvents.  Each
// publish dials the broker, declares the durable queue and sends one
// persistent message.
type Publisher struct {
	url     string
	queue   string
	msgs    notify.Messages
	log     zerolog.Logger
	publish func(ctx context.Context, body []byte) error
}

var _ notify.Notifier = (*Publisher)(nil)

func NewPublisher(url, queue string, msgs notify.Messages) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	p := &Publisher{url: url, queue: queue, msgs: msgs, log: logging.WithComponent("publisher")}
	p.publish = p.publishAMQP
	return p
}

func (p *Publisher) BookingCreated(ctx context.Context, b model.Booking, biz model.Business, svc *model.Service) {
	p.emit(ctx, notify.EventCreated, b, p.msgs.Created(b, biz, svc))
}

func (p *Publisher) BookingModified(ctx context.Context, b model.Booking, biz model.Business) {
	p.emit(ctx, notify.EventModified, b, p.msgs.Modified(b, biz))
}

func (p *Publisher) BookingCancelled(ctx context.Context, b model.Booking, biz model.Business) {
	p.emit(ctx, notify.EventCancelled, b, p.msgs.Cancelled(b, biz))
}

func (p *Publisher) emit(ctx context.Context, eventType string, b model.Booking, message string) {
	body, err := json.Marshal(NewBookingEvent(eventType, b, message, time.Now()))
	if err == nil {
		err = p.publish(ctx, body)
	}
	if err != nil {
		metrics.NotificationsPublished.WithLabelValues(eventType, "error").Inc()
		p.log.Warn().Err(err).Str("event", eventType).Str("booking_id", b.ID).Msg("publish booking event failed")
		return
	}
	metrics.NotificationsPublished.WithLabelValues(eventType, "ok").Inc()
}

func (p *Publisher) publishAMQP(ctx context.Context, body []byte) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

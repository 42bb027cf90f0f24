// Package events publishes domain events to RabbitMQ, generalizing the
// teacher's queue_publisher.go: same dial/channel/declare/publish shape,
// but the connection is held open across publishes instead of redialing
// every call. BookingConfirmedEvent on the booking.confirmed queue is the
// only event it publishes.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const bookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published once a booking reaches CONFIRMED.
type BookingConfirmedEvent struct {
	BookingID     uint64    `json:"booking_id"`
	TripID        uint64    `json:"trip_id"`
	CustomerPhone string    `json:"customer_phone"`
	SeatNumbers   []int     `json:"seat_numbers"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// Publisher owns a single long-lived AMQP connection and channel.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  zerolog.Logger
}

// Dial connects to RabbitMQ at url and declares the durable queues this
// service publishes to.
func Dial(url string, log zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(bookingConfirmedQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, log: log}, nil
}

// Close tears down the channel and connection.
func (p *Publisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}

// PublishBookingConfirmed publishes event to the booking.confirmed queue.
// Failures are logged and returned so callers can decide whether a
// publish failure should affect the HTTP response; by design it never
// should, since the booking is already durably CONFIRMED in C1.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, event BookingConfirmedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Msg("marshal booking confirmed event")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, "", bookingConfirmedQueue, false, false, pub); err != nil {
		p.log.Error().Err(err).Uint64("booking_id", event.BookingID).Msg("publish booking confirmed event")
		return err
	}
	return nil
}

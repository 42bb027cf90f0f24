package events

import (
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// StartBookingConsumer connects to RabbitMQ, declares the booking.confirmed
// queue, and logs each confirmed booking via structured logging. It runs a
// reconnect loop with exponential backoff and only returns when stop is
// closed, mirroring the teacher's always-on consumer.
func StartBookingConsumer(url string, log zerolog.Logger, stop <-chan struct{}) {
	backoff := time.Second
	for {
		select {
		case <-stop:
			return
		default:
		}

		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("booking consumer: dial failed")
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, log, stop); err != nil {
			log.Warn().Err(err).Msg("booking consumer: loop ended, reconnecting")
			_ = conn.Close()
			time.Sleep(2 * time.Second)
			continue
		}
		return
	}
}

func consumeLoop(conn *amqp.Connection, log zerolog.Logger, stop <-chan struct{}) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("booking consumer: set qos failed")
	}

	if _, err := ch.QueueDeclare(bookingConfirmedQueue, true, false, false, false, nil); err != nil {
		return err
	}

	msgs, err := ch.Consume(bookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-stop:
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("events: delivery channel closed")
			}
			if err := handleBookingConfirmed(d.Body, log); err != nil {
				log.Error().Err(err).Msg("booking consumer: handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleBookingConfirmed(body []byte, log zerolog.Logger) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	log.Info().
		Uint64("booking_id", ev.BookingID).
		Uint64("trip_id", ev.TripID).
		Ints("seat_numbers", ev.SeatNumbers).
		Time("confirmed_at", ev.ConfirmedAt).
		Msg("booking confirmed")
	return nil
}

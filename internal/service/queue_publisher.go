// Package queue_publisher publishes domain events to RabbitMQ. Publishing
// is best-effort: errors are logged and returned so callers can ignore
// failures without interrupting the main request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	q "github.com/davitm/cinehub/internal/queue"
)

// Publisher publishes reservation events to the reservation.created queue.
// A zero URL disables publishing entirely.
type Publisher struct {
	URL string
	Log *logrus.Logger
}

// New returns a Publisher for the given broker URL.
func New(url string, log *logrus.Logger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{URL: url, Log: log}
}

// PublishReservationCreated sends a ReservationCreatedEvent. A fresh event
// ID is assigned when the caller left it empty. Messages are persistent;
// the queue is declared idempotently so the publisher never depends on the
// consumer having started first.
func (p *Publisher) PublishReservationCreated(ctx context.Context, event q.ReservationCreatedEvent) error {
	if p == nil || p.URL == "" {
		return nil
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		"reservation.created", // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	); err != nil {
		p.Log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.Log.WithError(err).Warn("rabbitmq: marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                    // default exchange
		"reservation.created", // routing key = queue name
		false,                 // mandatory
		false,                 // immediate
		pub,
	); err != nil {
		p.Log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

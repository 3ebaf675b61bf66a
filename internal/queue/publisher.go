package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends registration events to RabbitMQ.  Each publish dials its
// own connection so a broker outage never leaves a broken channel behind.
type Publisher struct {
	url    string
	logger *slog.Logger
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{url: url, logger: logger}
}

// PublishRegistrationCreated publishes ev to the registration.created queue
// as a persistent JSON message.  Errors are logged and returned so the caller
// can choose to ignore them.
func (p *Publisher) PublishRegistrationCreated(ctx context.Context, ev RegistrationCreatedEvent) error {
	timeout, err := dialTimeout(ctx)
	if err != nil {
		return err
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial:      amqp.DefaultDial(timeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		p.logger.Error("rabbitmq: dial failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Error("rabbitmq: channel open failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		RegistrationCreatedQueue, // name
		true,                     // durable
		false,                    // autoDelete
		false,                    // exclusive
		false,                    // noWait
		nil,                      // args
	); err != nil {
		p.logger.Error("rabbitmq: queue declare failed", slog.String("error", err.Error()))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("rabbitmq: marshal event failed", slog.String("error", err.Error()))
		return err
	}

	if err := ch.PublishWithContext(ctx,
		"",                       // default exchange
		RegistrationCreatedQueue, // routing key = queue name
		false,                    // mandatory
		false,                    // immediate
		newPublishing(body),
	); err != nil {
		p.logger.Error("rabbitmq: publish failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// maxDialTimeout bounds connection setup when ctx has no deadline.
const maxDialTimeout = 30 * time.Second

// dialTimeout is the time left before ctx expires, capped at
// maxDialTimeout.  The broker handshake shares the deadline.
func dialTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return maxDialTimeout, nil
	}
	left := time.Until(deadline)
	if left <= 0 {
		return 0, context.DeadlineExceeded
	}
	return min(left, maxDialTimeout), nil
}

func newPublishing(body []byte) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends EmailEvents to the mail queue.  A connection is opened per
// publish; email volume is a handful of messages per user action.
type Publisher struct {
	URL   string
	Queue string
}

func NewPublisher(url string) *Publisher {
	return &Publisher{URL: url, Queue: MailQueueName}
}

// PublishEmail declares the queue (idempotent) and publishes ev as a
// persistent JSON message.
func (p *Publisher) PublishEmail(ctx context.Context, ev EmailEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	pub, err := encode(ev)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func encode(ev EmailEvent) (amqp.Publishing, error) {
	if ev.RequestedAt.IsZero() {
		ev.RequestedAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal email event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.RequestedAt,
		Body:         body,
	}, nil
}

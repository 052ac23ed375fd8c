package events

import (
	"context"
	"sync"

	"github.com/streadway/amqp"

	"crm-connect/internal/common/errors"
)

// RabbitMQPublisher publishes to a durable topic exchange with the event type
// as routing key, so consumers can bind "credential.*" or "webhook.#".
type RabbitMQPublisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	if url == "" {
		return nil, errors.ConfigError("RabbitMQ URL is required")
	}
	if exchange == "" {
		return nil, errors.ConfigError("RabbitMQ exchange is required")
	}
	p := &RabbitMQPublisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitMQPublisher) Name() string { return "rabbitmq" }

// connect must be called with mu held or before the publisher is shared
func (p *RabbitMQPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return errors.ConnectionError("failed to connect to RabbitMQ", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.ConnectionError("failed to open RabbitMQ channel", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return errors.InternalError("failed to declare exchange "+p.exchange, err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := event.Encode()
	if err != nil {
		return errors.InternalError("failed to encode event", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}

	err = p.ch.Publish(p.exchange, string(event.Type), false, false, amqp.Publishing{
		MessageId:    event.ID,
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return errors.ConnectionError("failed to publish to RabbitMQ", err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

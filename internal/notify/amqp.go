package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange is the topic exchange transitions are published to. The routing
// key is the transition Kind.
const Exchange = "signin.attendance"

// AMQPPublisher publishes transitions to RabbitMQ. A lost connection is
// redialed by the next Publish; transitions published while the broker is
// unreachable are dropped.
type AMQPPublisher struct {
	url string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Ensure AMQPPublisher implements Notifier
var _ Notifier = (*AMQPPublisher)(nil)

// NewAMQPPublisher dials url and declares the transition exchange.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect dials the broker and declares the exchange. Callers hold mu or
// own p exclusively.
func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	err = channel.ExchangeDeclare(Exchange, amqp.ExchangeTopic, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange %q: %w", Exchange, err)
	}
	p.conn, p.channel = conn, channel
	return nil
}

func (p *AMQPPublisher) connected() bool {
	return p.conn != nil && !p.conn.IsClosed() && p.channel != nil && !p.channel.IsClosed()
}

// drop discards a broken connection so the next Publish redials.
func (p *AMQPPublisher) drop() {
	if p.conn != nil {
		p.conn.Close()
	}
	p.conn, p.channel = nil, nil
}

// Publish sends t as JSON with routing key t.Kind, redialing first when
// the connection has been lost.
func (p *AMQPPublisher) Publish(ctx context.Context, t Transition) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode transition: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected() {
		p.drop()
		if err := p.connect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}
	err = p.channel.PublishWithContext(ctx, Exchange, string(t.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    t.At,
		Body:         body,
	})
	if err != nil {
		p.drop()
		return fmt.Errorf("failed to publish %s: %w", t.Kind, err)
	}
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	defer func() { p.conn, p.channel = nil, nil }()
	if err := p.channel.Close(); err != nil && !p.conn.IsClosed() {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

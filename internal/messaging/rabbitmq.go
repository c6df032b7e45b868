package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"restaurant_order_backend/internal/models"
	"restaurant_order_backend/internal/services"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	GetNextPublishSeqNo() uint64
	Close() error
}

// OrderEventPublisher publishes order events to a topic exchange with publisher confirms.
type OrderEventPublisher struct {
	conn     *amqp.Connection
	ch       channel
	acks     <-chan amqp.Confirmation
	exchange string
	mu       sync.Mutex // Publishes are serialized so the next sequence number is the message's delivery tag
}

// confirmBuffer holds late confirms of timed-out publishes until the next publish skips them.
const confirmBuffer = 16

var _ services.OrderEventPublisher = (*OrderEventPublisher)(nil)

// Dial connects to RabbitMQ, declares the durable topic exchange and enables publisher confirms.
func Dial(url, exchange string) (*OrderEventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer))
	return &OrderEventPublisher{conn: conn, ch: ch, acks: acks, exchange: exchange}, nil
}

func newOrderEventPublisher(ch channel, acks <-chan amqp.Confirmation, exchange string) *OrderEventPublisher {
	return &OrderEventPublisher{ch: ch, acks: acks, exchange: exchange}
}

func (p *OrderEventPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// PublishOrderCreated publishes the order as a persistent JSON message and waits for the broker confirm.
func (p *OrderEventPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	body, err := json.Marshal(services.NewOrderCreatedEvent(order))
	if err != nil {
		return fmt.Errorf("failed to marshal order created event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tag := p.ch.GetNextPublishSeqNo()
	if err := p.ch.PublishWithContext(ctx, p.exchange, services.OrderCreatedRoutingKey, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     order.Slug,
		CorrelationId: order.Slug,
		Timestamp:     time.Now().UTC(),
		Headers:       amqp.Table{"x-source": "order-service"},
		Body:          body,
	}); err != nil {
		return fmt.Errorf("failed to publish order %s: %w", order.Slug, err)
	}

	for {
		select {
		case conf, ok := <-p.acks:
			if !ok {
				return errors.New("rabbitmq channel closed before confirm")
			}
			if conf.DeliveryTag < tag {
				// Confirm of an earlier publish that gave up waiting.
				continue
			}
			if conf.DeliveryTag > tag {
				return fmt.Errorf("missed confirm of order %s event (tag %d, got %d)", order.Slug, tag, conf.DeliveryTag)
			}
			if !conf.Ack {
				return fmt.Errorf("broker rejected order %s event", order.Slug)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

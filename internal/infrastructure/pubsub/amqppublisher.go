package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// DefaultConnectionEventQueue is the durable queue events are routed to.
const DefaultConnectionEventQueue = "broker_connection_events"

// AMQPConnectionEventPublisher publishes connection events to a durable
// RabbitMQ queue. The connection is opened lazily and reopened after failures.
type AMQPConnectionEventPublisher struct {
	url    string
	queue  string
	logger logger.Interface

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ brokerconnection.EventPublisher = (*AMQPConnectionEventPublisher)(nil)

// NewAMQPConnectionEventPublisher creates a publisher for the given broker URL.
func NewAMQPConnectionEventPublisher(url, queue string, logger logger.Interface) *AMQPConnectionEventPublisher {
	if queue == "" {
		queue = DefaultConnectionEventQueue
	}
	return &AMQPConnectionEventPublisher{
		url:    url,
		queue:  queue,
		logger: logger,
	}
}

// Publish sends event as a persistent JSON message.
func (p *AMQPConnectionEventPublisher) Publish(ctx context.Context, event brokerconnection.ConnectionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Unix(event.Timestamp, 0).UTC(),
		Type:         string(event.Type),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debugw("connection event published", "type", event.Type, "connection_id", event.ConnectionID, "queue", p.queue)
	return nil
}

// channel returns an open channel, dialing and declaring the queue if needed.
// Callers hold p.mu.
func (p *AMQPConnectionEventPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
	}
	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare failed: %w", err)
	}

	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPConnectionEventPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *AMQPConnectionEventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}

// Package pubsub distributes broker connection lifecycle events to other
// services over Redis Pub/Sub or RabbitMQ.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// DefaultConnectionEventChannel is the Redis channel events are published on.
const DefaultConnectionEventChannel = "autotrader:connection:events"

// ConnectionEventHandler is a callback for received connection events.
type ConnectionEventHandler func(ctx context.Context, event brokerconnection.ConnectionEvent)

// RedisConnectionEventBus publishes and subscribes to connection events over
// Redis Pub/Sub.
type RedisConnectionEventBus struct {
	client  *redis.Client
	channel string
	logger  logger.Interface
}

var _ brokerconnection.EventPublisher = (*RedisConnectionEventBus)(nil)

// NewRedisConnectionEventBus creates a new Redis-based connection event bus.
// An empty channel selects DefaultConnectionEventChannel.
func NewRedisConnectionEventBus(client *redis.Client, channel string, logger logger.Interface) *RedisConnectionEventBus {
	if channel == "" {
		channel = DefaultConnectionEventChannel
	}
	return &RedisConnectionEventBus{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Publish sends event as JSON on the bus channel.
func (b *RedisConnectionEventBus) Publish(ctx context.Context, event brokerconnection.ConnectionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debugw("connection event published",
		"type", event.Type,
		"connection_id", event.ConnectionID,
		"channel", b.channel,
	)
	return nil
}

// Subscribe delivers every event on the channel to handler until ctx ends.
func (b *RedisConnectionEventBus) Subscribe(ctx context.Context, handler ConnectionEventHandler) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Wait for subscription confirmation
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	b.logger.Infow("subscribed to connection events", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warnw("connection event channel closed")
				return nil
			}

			var event brokerconnection.ConnectionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warnw("failed to unmarshal connection event", "error", err)
				continue
			}
			handler(ctx, event)
		}
	}
}

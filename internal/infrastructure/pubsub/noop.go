package pubsub

import (
	"context"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
)

// NoopPublisher drops every event. Used when events.driver is "none".
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, brokerconnection.ConnectionEvent) error {
	return nil
}

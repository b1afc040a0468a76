package services

import (
	"context"
	"time"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/shared/goroutine"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

const publishTimeout = 5 * time.Second

// EventEmitter publishes lifecycle events off the request path. Failures are
// logged and never reach the caller.
type EventEmitter struct {
	publisher brokerconnection.EventPublisher
	logger    logger.Interface
}

// NewEventEmitter creates a new EventEmitter. A nil publisher disables emission.
func NewEventEmitter(publisher brokerconnection.EventPublisher, logger logger.Interface) *EventEmitter {
	return &EventEmitter{
		publisher: publisher,
		logger:    logger,
	}
}

// Emit snapshots conn into an event and publishes it asynchronously.
func (e *EventEmitter) Emit(eventType brokerconnection.EventType, conn *brokerconnection.BrokerConnection, at time.Time) {
	if e == nil || e.publisher == nil {
		return
	}

	event := brokerconnection.NewConnectionEvent(eventType, conn, at)
	goroutine.SafeGo(e.logger, "connection-event", func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := e.publisher.Publish(ctx, event); err != nil {
			e.logger.Warnw("failed to publish connection event",
				"type", event.Type,
				"connection_id", event.ConnectionID,
				"error", err,
			)
		}
	})
}

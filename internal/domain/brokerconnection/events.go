package brokerconnection

import (
	"context"
	"time"
)

// EventType names a lifecycle transition published to other services.
type EventType string

const (
	EventConnectionCreated       EventType = "connection.created"
	EventConnectionAuthenticated EventType = "connection.authenticated"
	EventConnectionDisconnected  EventType = "connection.disconnected"
	EventConnectionDeleted       EventType = "connection.deleted"
)

// ConnectionEvent is the payload published for every lifecycle transition.
type ConnectionEvent struct {
	Type         EventType `json:"type"`
	ConnectionID string    `json:"connection_id"`
	UserID       uint      `json:"user_id"`
	Broker       string    `json:"broker"`
	WebhookID    string    `json:"webhook_id"`
	Timestamp    int64     `json:"timestamp"`
}

// NewConnectionEvent builds an event describing conn at the given instant.
func NewConnectionEvent(eventType EventType, conn *BrokerConnection, at time.Time) ConnectionEvent {
	return ConnectionEvent{
		Type:         eventType,
		ConnectionID: conn.SID(),
		UserID:       conn.UserID(),
		Broker:       conn.BrokerName().String(),
		WebhookID:    conn.WebhookID(),
		Timestamp:    at.Unix(),
	}
}

// EventPublisher delivers connection events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event ConnectionEvent) error
}

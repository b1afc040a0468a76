package brokerconnection

import "context"

// Repository defines the interface for broker connection persistence.
// Lookups scoped by user return a not-found error when the owner differs.
type Repository interface {
	// Create persists a new connection and assigns its ID.
	Create(ctx context.Context, conn *BrokerConnection) error

	// GetBySID retrieves a connection by SID regardless of owner.
	GetBySID(ctx context.Context, sid string) (*BrokerConnection, error)

	// GetBySIDAndUser retrieves a connection owned by userID.
	GetBySIDAndUser(ctx context.Context, sid string, userID uint) (*BrokerConnection, error)

	// Update saves every mutable field of the connection.
	Update(ctx context.Context, conn *BrokerConnection) error

	// ListByUser returns all connections of a user, newest first.
	ListByUser(ctx context.Context, userID uint) ([]*BrokerConnection, error)

	// ListActiveByUser returns the active connections of a user, newest first.
	ListActiveByUser(ctx context.Context, userID uint) ([]*BrokerConnection, error)

	// CountActiveByUser counts the active connections of a user.
	CountActiveByUser(ctx context.Context, userID uint) (int64, error)

	// DeleteBySIDAndUser hard-deletes a connection owned by userID.
	DeleteBySIDAndUser(ctx context.Context, sid string, userID uint) error
}

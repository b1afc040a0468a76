package broker

import (
	"context"
	"time"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
)

// expiryGuard rejects calls once the session has expired, before any network I/O.
type expiryGuard struct {
	next      Client
	broker    string
	expiresAt *time.Time
	now       func() time.Time
}

// WithExpiryGuard wraps client so every call fails with a token-expired error
// once expiresAt has passed. A nil expiresAt disables the guard.
func WithExpiryGuard(client Client, broker string, expiresAt *time.Time, now func() time.Time) Client {
	if expiresAt == nil {
		return client
	}
	return &expiryGuard{next: client, broker: broker, expiresAt: expiresAt, now: now}
}

func (g *expiryGuard) check() error {
	if g.expiresAt.Before(g.now()) {
		return errors.NewBrokerTokenExpiredError(g.broker)
	}
	return nil
}

func (g *expiryGuard) GetProfile(ctx context.Context) (*brokerconnection.Profile, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return g.next.GetProfile(ctx)
}

func (g *expiryGuard) GetPositions(ctx context.Context) ([]Entry, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return g.next.GetPositions(ctx)
}

func (g *expiryGuard) GetHoldings(ctx context.Context) ([]Entry, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return g.next.GetHoldings(ctx)
}

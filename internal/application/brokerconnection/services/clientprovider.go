package services

import (
	"time"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/infrastructure/vault"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
)

// CapabilityRegistry resolves a broker name to its capability.
type CapabilityRegistry interface {
	Get(name vo.BrokerName) (broker.Capability, error)
}

// ClientCache hands out trading API handles keyed by connection SID.
type ClientCache interface {
	Get(key, version string, build func() (broker.Client, error)) (broker.Client, error)
	Invalidate(key string)
}

// ClientProvider builds trading API handles for stored connections. Callers
// hold the connection lock while using the returned client.
type ClientProvider struct {
	registry CapabilityRegistry
	cipher   vault.Cipher
	cache    ClientCache
	now      func() time.Time
}

// NewClientProvider creates a new ClientProvider
func NewClientProvider(registry CapabilityRegistry, cipher vault.Cipher, cache ClientCache, now func() time.Time) *ClientProvider {
	if now == nil {
		now = time.Now
	}
	return &ClientProvider{
		registry: registry,
		cipher:   cipher,
		cache:    cache,
		now:      now,
	}
}

// ClientFor returns a handle for conn wrapped in an expiry guard. Handles are
// cached per SID and rebuilt whenever the stored session changes.
func (p *ClientProvider) ClientFor(conn *brokerconnection.BrokerConnection) (broker.Client, error) {
	name := conn.BrokerName().String()
	if !conn.IsActive() || !conn.IsAuthenticated() {
		return nil, errors.NewNotAuthenticatedError(name)
	}
	if conn.TokenExpired(p.now()) {
		return nil, errors.NewBrokerTokenExpiredError(name)
	}

	capability, err := p.registry.Get(conn.BrokerName())
	if err != nil {
		return nil, err
	}

	client, err := p.cache.Get(conn.SID(), conn.AccessTokenEncrypted(), func() (broker.Client, error) {
		creds, err := DecryptCredentials(p.cipher, conn)
		if err != nil {
			return nil, err
		}
		token, err := DecryptAccessToken(p.cipher, conn)
		if err != nil {
			return nil, err
		}
		return capability.NewClient(creds, token)
	})
	if err != nil {
		return nil, err
	}

	return broker.WithExpiryGuard(client, name, conn.AccessTokenExpiresAt(), p.now), nil
}

// Invalidate drops any cached handle for the connection.
func (p *ClientProvider) Invalidate(sid string) {
	p.cache.Invalidate(sid)
}

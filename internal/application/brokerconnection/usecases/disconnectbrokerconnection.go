package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/dto"
	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/services"
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/infrastructure/lock"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// DisconnectBrokerConnectionUseCase deactivates a connection without deleting it.
type DisconnectBrokerConnectionUseCase struct {
	repo           brokerconnection.Repository
	locker         lock.Locker
	cache          services.ClientCache
	events         *services.EventEmitter
	webhookBaseURL string
	now            func() time.Time
	logger         logger.Interface
}

// NewDisconnectBrokerConnectionUseCase creates a new DisconnectBrokerConnectionUseCase
func NewDisconnectBrokerConnectionUseCase(
	repo brokerconnection.Repository,
	locker lock.Locker,
	cache services.ClientCache,
	events *services.EventEmitter,
	webhookBaseURL string,
	logger logger.Interface,
) *DisconnectBrokerConnectionUseCase {
	return &DisconnectBrokerConnectionUseCase{
		repo:           repo,
		locker:         locker,
		cache:          cache,
		events:         events,
		webhookBaseURL: webhookBaseURL,
		now:            time.Now,
		logger:         logger,
	}
}

// SetClock overrides the time source.
func (uc *DisconnectBrokerConnectionUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// Execute marks the connection inactive and clears its token expiry.
// Disconnecting an already inactive connection succeeds without changes.
func (uc *DisconnectBrokerConnectionUseCase) Execute(ctx context.Context, sid string, userID uint) (*dto.BrokerConnectionResponse, error) {
	var (
		conn    *brokerconnection.BrokerConnection
		changed bool
	)
	now := uc.now()

	err := lockErr(lock.WithLock(ctx, uc.locker, lock.ConnectionKey(sid), func(ctx context.Context) error {
		var err error
		conn, err = uc.repo.GetBySIDAndUser(ctx, sid, userID)
		if err != nil {
			return err
		}

		if !conn.IsActive() && conn.AccessTokenExpiresAt() == nil {
			return nil
		}
		conn.Disconnect(now)
		changed = true

		if err := uc.repo.Update(ctx, conn); err != nil {
			return fmt.Errorf("failed to save broker connection: %w", err)
		}
		uc.cache.Invalidate(sid)
		return nil
	}))
	if err != nil {
		return nil, err
	}

	if changed {
		uc.logger.Infow("broker connection disconnected", "sid", sid, "user_id", userID)
		uc.events.Emit(brokerconnection.EventConnectionDisconnected, conn, now)
	}

	return dto.ToBrokerConnectionResponse(conn, uc.webhookBaseURL, now), nil
}

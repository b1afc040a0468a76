package usecases

import (
	"context"
	"time"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/services"
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/infrastructure/lock"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// DeleteBrokerConnectionUseCase permanently removes a connection.
type DeleteBrokerConnectionUseCase struct {
	repo   brokerconnection.Repository
	locker lock.Locker
	cache  services.ClientCache
	events *services.EventEmitter
	now    func() time.Time
	logger logger.Interface
}

// NewDeleteBrokerConnectionUseCase creates a new DeleteBrokerConnectionUseCase
func NewDeleteBrokerConnectionUseCase(
	repo brokerconnection.Repository,
	locker lock.Locker,
	cache services.ClientCache,
	events *services.EventEmitter,
	logger logger.Interface,
) *DeleteBrokerConnectionUseCase {
	return &DeleteBrokerConnectionUseCase{
		repo:   repo,
		locker: locker,
		cache:  cache,
		events: events,
		now:    time.Now,
		logger: logger,
	}
}

// Execute hard-deletes the connection scoped to userID. A connection owned by
// someone else is reported as not found and left untouched.
func (uc *DeleteBrokerConnectionUseCase) Execute(ctx context.Context, sid string, userID uint) error {
	var conn *brokerconnection.BrokerConnection

	err := lockErr(lock.WithLock(ctx, uc.locker, lock.ConnectionKey(sid), func(ctx context.Context) error {
		var err error
		conn, err = uc.repo.GetBySIDAndUser(ctx, sid, userID)
		if err != nil {
			return err
		}
		if err := uc.repo.DeleteBySIDAndUser(ctx, sid, userID); err != nil {
			return err
		}
		uc.cache.Invalidate(sid)
		return nil
	}))
	if err != nil {
		return err
	}

	uc.logger.Infow("broker connection deleted", "sid", sid, "user_id", userID, "broker", conn.BrokerName())
	uc.events.Emit(brokerconnection.EventConnectionDeleted, conn, uc.now())
	return nil
}

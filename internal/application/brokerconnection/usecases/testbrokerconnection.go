package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/dto"
	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/services"
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/infrastructure/lock"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// TestBrokerConnectionUseCase makes a live profile call to prove the stored
// session works, and records the profile snapshot.
type TestBrokerConnectionUseCase struct {
	repo    brokerconnection.Repository
	clients *services.ClientProvider
	locker  lock.Locker
	now     func() time.Time
	logger  logger.Interface
}

// NewTestBrokerConnectionUseCase creates a new TestBrokerConnectionUseCase
func NewTestBrokerConnectionUseCase(
	repo brokerconnection.Repository,
	clients *services.ClientProvider,
	locker lock.Locker,
	logger logger.Interface,
) *TestBrokerConnectionUseCase {
	return &TestBrokerConnectionUseCase{
		repo:    repo,
		clients: clients,
		locker:  locker,
		now:     time.Now,
		logger:  logger,
	}
}

// SetClock overrides the time source.
func (uc *TestBrokerConnectionUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// Execute fetches the broker profile and stores it with the sync time.
func (uc *TestBrokerConnectionUseCase) Execute(ctx context.Context, sid string, userID uint) (*dto.TestConnectionResponse, error) {
	var resp *dto.TestConnectionResponse

	err := lockErr(lock.WithLock(ctx, uc.locker, lock.ConnectionKey(sid), func(ctx context.Context) error {
		conn, err := uc.repo.GetBySIDAndUser(ctx, sid, userID)
		if err != nil {
			return err
		}

		client, err := uc.clients.ClientFor(conn)
		if err != nil {
			return err
		}

		profile, err := client.GetProfile(ctx)
		if err != nil {
			if errors.IsType(err, errors.ErrorTypeTokenExpired) {
				uc.clients.Invalidate(sid)
			}
			return err
		}

		now := uc.now()
		conn.RecordProfile(*profile, now)
		if err := uc.repo.Update(ctx, conn); err != nil {
			return fmt.Errorf("failed to save broker profile: %w", err)
		}

		resp = &dto.TestConnectionResponse{
			ConnectionID: conn.SID(),
			Profile:      *profile,
			LastSync:     now.UTC(),
		}
		return nil
	}))
	if err != nil {
		if !errors.IsNotFoundError(err) && errors.ShouldLogBrokerError(err) {
			uc.logger.Errorw("broker connection test failed", "sid", sid, "error", err)
		}
		return nil, err
	}

	uc.logger.Infow("broker connection tested", "sid", sid, "user_id", userID)
	return resp, nil
}

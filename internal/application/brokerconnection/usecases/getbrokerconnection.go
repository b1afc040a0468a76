package usecases

import (
	"context"
	"time"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/dto"
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// GetBrokerConnectionUseCase fetches one connection owned by the caller.
type GetBrokerConnectionUseCase struct {
	repo           brokerconnection.Repository
	webhookBaseURL string
	now            func() time.Time
	logger         logger.Interface
}

// NewGetBrokerConnectionUseCase creates a new GetBrokerConnectionUseCase
func NewGetBrokerConnectionUseCase(repo brokerconnection.Repository, webhookBaseURL string, logger logger.Interface) *GetBrokerConnectionUseCase {
	return &GetBrokerConnectionUseCase{
		repo:           repo,
		webhookBaseURL: webhookBaseURL,
		now:            time.Now,
		logger:         logger,
	}
}

// SetClock overrides the time source.
func (uc *GetBrokerConnectionUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// Execute returns the connection, or not found when it belongs to another user.
func (uc *GetBrokerConnectionUseCase) Execute(ctx context.Context, sid string, userID uint) (*dto.BrokerConnectionResponse, error) {
	conn, err := uc.repo.GetBySIDAndUser(ctx, sid, userID)
	if err != nil {
		return nil, err
	}
	return dto.ToBrokerConnectionResponse(conn, uc.webhookBaseURL, uc.now()), nil
}

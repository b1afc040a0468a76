package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/dto"
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// ListBrokerConnectionsUseCase lists every connection of a user.
type ListBrokerConnectionsUseCase struct {
	repo           brokerconnection.Repository
	webhookBaseURL string
	maxActive      int
	now            func() time.Time
	logger         logger.Interface
}

// NewListBrokerConnectionsUseCase creates a new ListBrokerConnectionsUseCase
func NewListBrokerConnectionsUseCase(repo brokerconnection.Repository, webhookBaseURL string, maxActive int, logger logger.Interface) *ListBrokerConnectionsUseCase {
	if maxActive <= 0 {
		maxActive = brokerconnection.MaxActivePerUser
	}
	return &ListBrokerConnectionsUseCase{
		repo:           repo,
		webhookBaseURL: webhookBaseURL,
		maxActive:      maxActive,
		now:            time.Now,
		logger:         logger,
	}
}

// SetClock overrides the time source.
func (uc *ListBrokerConnectionsUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// Execute returns all connections, newest first, with derived fields as of now.
func (uc *ListBrokerConnectionsUseCase) Execute(ctx context.Context, userID uint) (*dto.ListBrokerConnectionsResponse, error) {
	conns, err := uc.repo.ListByUser(ctx, userID)
	if err != nil {
		uc.logger.Errorw("failed to list broker connections", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list broker connections: %w", err)
	}

	active := 0
	for _, c := range conns {
		if c.IsActive() {
			active++
		}
	}

	return &dto.ListBrokerConnectionsResponse{
		Items:       dto.ToBrokerConnectionResponses(conns, uc.webhookBaseURL, uc.now()),
		Total:       len(conns),
		ActiveCount: active,
		MaxActive:   uc.maxActive,
	}, nil
}

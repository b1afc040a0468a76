package usecases

import (
	"context"
	"time"

	"github.com/autotraderhub/autotrader/internal/application/portfolio/dto"
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/infrastructure/lock"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// GetPositionsUseCase aggregates open positions across a user's connections.
type GetPositionsUseCase struct {
	agg *aggregator
}

// NewGetPositionsUseCase creates a new GetPositionsUseCase
func NewGetPositionsUseCase(repo brokerconnection.Repository, clients ClientSource, locker lock.Locker, cfg AggregatorConfig, logger logger.Interface) *GetPositionsUseCase {
	return &GetPositionsUseCase{agg: newAggregator(repo, clients, locker, cfg, logger)}
}

// SetClock overrides the time source.
func (uc *GetPositionsUseCase) SetClock(now func() time.Time) {
	uc.agg.now = now
}

// Execute returns positions plus a per-connection status map.
func (uc *GetPositionsUseCase) Execute(ctx context.Context, q PortfolioQuery) (*dto.PortfolioResponse, error) {
	return uc.agg.aggregate(ctx, q, "positions", func(ctx context.Context, c broker.Client) ([]broker.Entry, error) {
		return c.GetPositions(ctx)
	})
}

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

// GetHoldingsUseCase aggregates long-term holdings across a user's connections.
type GetHoldingsUseCase struct {
	agg *aggregator
}

// NewGetHoldingsUseCase creates a new GetHoldingsUseCase
func NewGetHoldingsUseCase(repo brokerconnection.Repository, clients ClientSource, locker lock.Locker, cfg AggregatorConfig, logger logger.Interface) *GetHoldingsUseCase {
	return &GetHoldingsUseCase{agg: newAggregator(repo, clients, locker, cfg, logger)}
}

// SetClock overrides the time source.
func (uc *GetHoldingsUseCase) SetClock(now func() time.Time) {
	uc.agg.now = now
}

// Execute returns holdings plus a per-connection status map.
func (uc *GetHoldingsUseCase) Execute(ctx context.Context, q PortfolioQuery) (*dto.PortfolioResponse, error) {
	return uc.agg.aggregate(ctx, q, "holdings", func(ctx context.Context, c broker.Client) ([]broker.Entry, error) {
		return c.GetHoldings(ctx)
	})
}

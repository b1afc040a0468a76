package portfolio

import (
	"context"

	"github.com/autotraderhub/autotrader/internal/application/portfolio/dto"
	"github.com/autotraderhub/autotrader/internal/application/portfolio/usecases"
)

type portfolioUseCase interface {
	Execute(ctx context.Context, q usecases.PortfolioQuery) (*dto.PortfolioResponse, error)
}

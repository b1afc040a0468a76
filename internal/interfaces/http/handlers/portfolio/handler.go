// Package portfolio provides HTTP handlers for live positions and holdings.
package portfolio

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/autotraderhub/autotrader/internal/application/portfolio/usecases"
	"github.com/autotraderhub/autotrader/internal/shared/authorization"
	"github.com/autotraderhub/autotrader/internal/shared/constants"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
	"github.com/autotraderhub/autotrader/internal/shared/id"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
	"github.com/autotraderhub/autotrader/internal/shared/utils"
)

// Handler serves aggregated portfolio data across a user's connections.
type Handler struct {
	positionsUC portfolioUseCase
	holdingsUC  portfolioUseCase
	logger      logger.Interface
}

// NewHandler creates a new portfolio handler
func NewHandler(positionsUC, holdingsUC portfolioUseCase, log logger.Interface) *Handler {
	return &Handler{
		positionsUC: positionsUC,
		holdingsUC:  holdingsUC,
		logger:      log,
	}
}

// GetPositions handles GET /portfolio/positions
//
//	@Summary	Aggregate open positions
//	@Tags		portfolio
//	@Produce	json
//	@Security	Bearer
//	@Param		connection_id	query		string	false	"Connection ID or all"
//	@Success	200				{object}	utils.APIResponse{data=dto.PortfolioResponse}
//	@Router		/portfolio/positions [get]
func (h *Handler) GetPositions(c *gin.Context) {
	h.serve(c, h.positionsUC)
}

// GetHoldings handles GET /portfolio/holdings
//
//	@Summary	Aggregate long-term holdings
//	@Tags		portfolio
//	@Produce	json
//	@Security	Bearer
//	@Param		connection_id	query		string	false	"Connection ID or all"
//	@Success	200				{object}	utils.APIResponse{data=dto.PortfolioResponse}
//	@Router		/portfolio/holdings [get]
func (h *Handler) GetHoldings(c *gin.Context) {
	h.serve(c, h.holdingsUC)
}

func (h *Handler) serve(c *gin.Context, uc portfolioUseCase) {
	userID, _, ok := authorization.UserFromContext(c)
	if !ok {
		utils.ErrorResponseWithError(c, errors.NewUnauthorizedError("authentication required"))
		return
	}

	connectionID := strings.TrimSpace(c.Query(constants.QueryConnectionID))
	if connectionID != "" && connectionID != constants.ConnectionFilterAll {
		if err := id.ValidatePrefix(connectionID, id.PrefixBrokerConnection); err != nil {
			utils.ErrorResponseWithError(c, errors.NewValidationError("invalid connection_id, expected bc_xxxxx or all"))
			return
		}
	}

	result, err := uc.Execute(c.Request.Context(), usecases.PortfolioQuery{
		UserID:       userID,
		ConnectionID: connectionID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

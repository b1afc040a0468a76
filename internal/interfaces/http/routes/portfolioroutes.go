package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/autotraderhub/autotrader/internal/infrastructure/permission"
	portfoliohandlers "github.com/autotraderhub/autotrader/internal/interfaces/http/handlers/portfolio"
	"github.com/autotraderhub/autotrader/internal/interfaces/http/middleware"
)

type PortfolioRouteConfig struct {
	Handler              *portfoliohandlers.Handler
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
}

func SetupPortfolioRoutes(rg *gin.RouterGroup, config *PortfolioRouteConfig) {
	portfolio := rg.Group("/portfolio")
	portfolio.Use(
		config.AuthMiddleware.RequireAuth(),
		config.PermissionMiddleware.RequirePermission(permission.ResourcePortfolio, permission.ActionRead),
	)
	{
		portfolio.GET("/positions", config.Handler.GetPositions)
		portfolio.GET("/holdings", config.Handler.GetHoldings)
	}
}

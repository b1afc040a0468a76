package http

import (
	"context"

	"github.com/autotraderhub/autotrader/internal/infrastructure/ratelimit"
	bcHandlers "github.com/autotraderhub/autotrader/internal/interfaces/http/handlers/brokerconnection"
	portfolioHandlers "github.com/autotraderhub/autotrader/internal/interfaces/http/handlers/portfolio"
	systemHandlers "github.com/autotraderhub/autotrader/internal/interfaces/http/handlers/system"
	"github.com/autotraderhub/autotrader/internal/interfaces/http/middleware"
	"github.com/autotraderhub/autotrader/internal/shared/services/markdown"
)

// allHandlers holds all HTTP handler instances used by the application.
type allHandlers struct {
	brokerConnectionHandler *bcHandlers.Handler
	portfolioHandler        *portfolioHandlers.Handler
	systemHandler           *systemHandlers.Handler
}

func (c *Container) newHandlers() *allHandlers {
	ucs := c.ucs
	log := c.log

	checks := map[string]systemHandlers.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := c.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if c.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return c.redis.Ping(ctx).Err()
		}
	}

	return &allHandlers{
		brokerConnectionHandler: bcHandlers.NewHandler(
			ucs.createConnectionUC,
			ucs.listConnectionsUC,
			ucs.getConnectionUC,
			ucs.reconnectConnectionUC,
			ucs.disconnectConnectionUC,
			ucs.deleteConnectionUC,
			ucs.testConnectionUC,
			ucs.completeCallbackUC,
			ucs.listBrokersUC,
			markdown.NewService(),
			c.cfg.Server.DashboardURL,
			log,
		),
		portfolioHandler: portfolioHandlers.NewHandler(ucs.getPositionsUC, ucs.getHoldingsUC, log),
		systemHandler:    systemHandlers.NewHandler(checks, log),
	}
}

// initMiddlewares creates the middlewares shared by the route groups.
func (c *Container) initMiddlewares() {
	c.authMiddleware = middleware.NewAuthMiddleware(c.jwtSvc, c.log)
	c.permissionMiddleware = middleware.NewPermissionMiddleware(c.enforcer, c.log)

	limits := ratelimit.Limits{
		PerMinute: c.cfg.RateLimit.ConnectPerMinute,
		PerHour:   c.cfg.RateLimit.ConnectPerHour,
	}
	c.connectLimiter = middleware.NewRateLimiter(c.rateLimiter, limits, c.log)
}

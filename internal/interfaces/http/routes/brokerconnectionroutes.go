package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/autotraderhub/autotrader/internal/infrastructure/permission"
	bchandlers "github.com/autotraderhub/autotrader/internal/interfaces/http/handlers/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/interfaces/http/middleware"
)

type BrokerConnectionRouteConfig struct {
	Handler              *bchandlers.Handler
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
	ConnectLimiter       *middleware.RateLimiter
}

func SetupBrokerConnectionRoutes(rg *gin.RouterGroup, config *BrokerConnectionRouteConfig) {
	h := config.Handler
	perm := config.PermissionMiddleware

	rg.GET("/brokers", h.ListBrokers)

	connections := rg.Group("/broker-connections")
	{
		// Brokers redirect the browser here, so there is no bearer token.
		connections.GET("/callback/:broker", h.Callback)
	}

	authed := connections.Group("")
	authed.Use(config.AuthMiddleware.RequireAuth())
	{
		authed.POST("",
			perm.RequirePermission(permission.ResourceBrokerConnection, permission.ActionWrite),
			config.ConnectLimiter.Limit(),
			h.CreateConnection)
		authed.GET("",
			perm.RequirePermission(permission.ResourceBrokerConnection, permission.ActionRead),
			h.ListConnections)

		authed.POST("/:id/reconnect",
			perm.RequirePermission(permission.ResourceBrokerConnection, permission.ActionWrite),
			config.ConnectLimiter.Limit(),
			h.Reconnect)
		authed.POST("/:id/disconnect",
			perm.RequirePermission(permission.ResourceBrokerConnection, permission.ActionWrite),
			h.Disconnect)
		authed.POST("/:id/test",
			perm.RequirePermission(permission.ResourceBrokerConnection, permission.ActionRead),
			h.TestConnection)

		authed.GET("/:id",
			perm.RequirePermission(permission.ResourceBrokerConnection, permission.ActionRead),
			h.GetConnection)
		authed.DELETE("/:id",
			perm.RequirePermission(permission.ResourceBrokerConnection, permission.ActionDelete),
			h.DeleteConnection)
	}
}

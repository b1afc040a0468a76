package http

import (
	"fmt"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/autotraderhub/autotrader/docs"
	"github.com/autotraderhub/autotrader/internal/infrastructure/config"
	bcHandlers "github.com/autotraderhub/autotrader/internal/interfaces/http/handlers/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/interfaces/http/middleware"
	"github.com/autotraderhub/autotrader/internal/interfaces/http/routes"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// Router represents the HTTP router configuration
type Router struct {
	*Container
}

// NewRouter creates a new HTTP router with all dependencies
func NewRouter(db *gorm.DB, cfg *config.Config, log logger.Interface) (*Router, error) {
	if err := bcHandlers.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	c, err := NewContainer(db, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Router{Container: c}, nil
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger(r.log))
	r.engine.Use(middleware.Recovery(r.log))
	r.engine.Use(middleware.CORS(r.cfg.Server.AllowedOrigins))

	r.engine.GET("/health", r.hdlrs.systemHandler.HealthCheck)
	r.engine.GET("/version", r.hdlrs.systemHandler.Version)
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")
	api.Use(middleware.SecurityHeaders())

	routes.SetupBrokerConnectionRoutes(api, &routes.BrokerConnectionRouteConfig{
		Handler:              r.hdlrs.brokerConnectionHandler,
		AuthMiddleware:       r.authMiddleware,
		PermissionMiddleware: r.permissionMiddleware,
		ConnectLimiter:       r.connectLimiter,
	})

	routes.SetupPortfolioRoutes(api, &routes.PortfolioRouteConfig{
		Handler:              r.hdlrs.portfolioHandler,
		AuthMiddleware:       r.authMiddleware,
		PermissionMiddleware: r.permissionMiddleware,
	})
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}

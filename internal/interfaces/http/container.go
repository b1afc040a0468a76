package http

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/services"
	"github.com/autotraderhub/autotrader/internal/infrastructure/auth"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/infrastructure/config"
	"github.com/autotraderhub/autotrader/internal/infrastructure/lock"
	"github.com/autotraderhub/autotrader/internal/infrastructure/permission"
	"github.com/autotraderhub/autotrader/internal/infrastructure/ratelimit"
	"github.com/autotraderhub/autotrader/internal/infrastructure/vault"
	"github.com/autotraderhub/autotrader/internal/interfaces/http/middleware"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// Container holds the infrastructure components, repositories, use cases and
// handlers of the API server, and releases them in Shutdown.
type Container struct {
	// Core infrastructure
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client

	// Repositories
	repos *repositories

	// Use cases
	ucs *allUseCases

	// Handlers
	hdlrs *allHandlers

	// Middlewares
	authMiddleware       *middleware.AuthMiddleware
	permissionMiddleware *middleware.PermissionMiddleware
	connectLimiter       *middleware.RateLimiter

	// Broker connection infrastructure
	jwtSvc         *auth.JWTService
	enforcer       *permission.Enforcer
	cipher         *vault.Vault
	locker         lock.Locker
	registry       *broker.Registry
	clientCache    *broker.ClientCache
	clientProvider *services.ClientProvider
	events         *services.EventEmitter
	eventCloser    io.Closer
	rateLimiter    ratelimit.RateLimiter
}

// NewContainer wires every component of the API server. Any failure leaves
// nothing running; resources opened so far are released before returning.
func NewContainer(db *gorm.DB, cfg *config.Config, log logger.Interface) (*Container, error) {
	c := &Container{
		engine: gin.New(),
		db:     db,
		cfg:    cfg,
		log:    log,
	}

	// Section 1: Infrastructure - Redis, vault, locks, brokers, events
	if err := c.initInfrastructure(); err != nil {
		c.Shutdown()
		return nil, err
	}

	// Section 2: Repositories
	c.repos = newRepositories(db, log)

	// Section 3: Use cases
	c.ucs = c.newUseCases()

	// Section 4: Handlers and middlewares
	c.hdlrs = c.newHandlers()
	c.initMiddlewares()

	return c, nil
}

// Shutdown releases the event publisher and the Redis client. The database
// handle belongs to the caller.
func (c *Container) Shutdown() {
	if c.eventCloser != nil {
		if err := c.eventCloser.Close(); err != nil {
			c.log.Warnw("failed to close event publisher", "error", err)
		}
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warnw("failed to close redis client", "error", err)
		}
	}
}

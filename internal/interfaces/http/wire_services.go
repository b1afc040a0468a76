package http

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/services"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/auth"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker/alpaca"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker/upstox"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker/zerodha"
	"github.com/autotraderhub/autotrader/internal/infrastructure/config"
	"github.com/autotraderhub/autotrader/internal/infrastructure/lock"
	"github.com/autotraderhub/autotrader/internal/infrastructure/permission"
	"github.com/autotraderhub/autotrader/internal/infrastructure/pubsub"
	"github.com/autotraderhub/autotrader/internal/infrastructure/ratelimit"
	"github.com/autotraderhub/autotrader/internal/infrastructure/vault"
	"github.com/autotraderhub/autotrader/internal/shared/biztime"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// ============================================================
// Section 1: Infrastructure - Redis, vault, locks, brokers, events
// ============================================================

// initInfrastructure opens Redis and builds every service the use cases
// depend on. Redis is optional: without it locks are process-local and the
// connect rate limit is disabled.
func (c *Container) initInfrastructure() error {
	cfg := c.cfg
	log := c.log

	if _, err := biztime.LoadLocation(cfg.Server.Timezone); err != nil {
		return fmt.Errorf("invalid server timezone: %w", err)
	}

	if cfg.Redis.Enabled {
		client, err := initRedis(cfg, log)
		if err != nil {
			return err
		}
		c.redis = client
	}

	cipher, err := vault.New(cfg.Vault.EncryptionKey, log)
	if err != nil {
		return fmt.Errorf("failed to initialize credential vault: %w", err)
	}
	c.cipher = cipher

	c.jwtSvc = auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessExpMinutes)

	enforcer, err := permission.NewEnforcer(c.db, cfg.Auth.CasbinModelPath, log)
	if err != nil {
		return fmt.Errorf("failed to initialize permission enforcer: %w", err)
	}
	if err := permission.InitDefaultPolicies(enforcer, log); err != nil {
		return fmt.Errorf("failed to seed permission policies: %w", err)
	}
	c.enforcer = enforcer

	lockOpts := lock.Options{TTL: cfg.Connection.LockTTL, Wait: cfg.Connection.LockWait}
	if c.redis != nil {
		c.locker = lock.NewRedisLocker(c.redis, lockOpts, log)
		c.rateLimiter = ratelimit.NewRedisRateLimiter(c.redis)
	} else {
		log.Warnw("redis disabled, using in-process connection locks and no connect rate limit")
		c.locker = lock.NewMemoryLocker(lockOpts)
	}

	registry, err := newBrokerRegistry(cfg)
	if err != nil {
		return err
	}
	c.registry = registry
	c.clientCache = broker.NewClientCache()
	c.clientProvider = services.NewClientProvider(registry, cipher, c.clientCache, biztime.NowUTC)

	publisher, closer, err := pubsub.NewConnectionEventPublisher(cfg.Events, c.redis, log)
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	c.eventCloser = closer
	c.events = services.NewEventEmitter(publisher, log)

	return nil
}

// initRedis creates and tests the Redis client connection.
func initRedis(cfg *config.Config, log logger.Interface) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Infow("Redis connection established successfully", "addr", cfg.Redis.GetAddr())

	return redisClient, nil
}

// newBrokerRegistry builds a capability per catalog broker.
func newBrokerRegistry(cfg *config.Config) (*broker.Registry, error) {
	catalog, err := broker.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load broker catalog: %w", err)
	}

	brokers := cfg.Brokers

	kite, err := zerodha.New(zerodha.Config{
		BaseURI:     brokers.Zerodha.BaseURI,
		HTTPTimeout: brokers.HTTPTimeout,
	}, catalog[vo.BrokerZerodha])
	if err != nil {
		return nil, fmt.Errorf("failed to configure zerodha: %w", err)
	}

	upstoxCap, err := upstox.New(upstox.Config{
		RedirectURL: brokers.Upstox.RedirectURL,
		AuthURL:     brokers.Upstox.AuthURL,
		TokenURL:    brokers.Upstox.TokenURL,
		APIBaseURL:  brokers.Upstox.APIBaseURL,
		StateSecret: brokers.Upstox.StateSecret,
		HTTPTimeout: brokers.HTTPTimeout,
	}, catalog[vo.BrokerUpstox], biztime.NowUTC)
	if err != nil {
		return nil, fmt.Errorf("failed to configure upstox: %w", err)
	}

	alpacaCap := alpaca.New(alpaca.Config{BaseURL: brokers.Alpaca.BaseURL})

	return broker.NewRegistry(catalog, kite, upstoxCap, alpacaCap), nil
}

package pubsub

import (
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/shared/config"
	"github.com/autotraderhub/autotrader/internal/shared/constants"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewConnectionEventPublisher selects a publisher by cfg.Driver. The returned
// closer releases any broker connection the publisher holds.
func NewConnectionEventPublisher(cfg config.EventsConfig, redisClient *redis.Client, log logger.Interface) (brokerconnection.EventPublisher, io.Closer, error) {
	switch cfg.Driver {
	case constants.EventDriverRedis:
		if redisClient == nil {
			return nil, nil, fmt.Errorf("events driver %q requires redis to be enabled", cfg.Driver)
		}
		return NewRedisConnectionEventBus(redisClient, cfg.Channel, log), nopCloser{}, nil
	case constants.EventDriverAMQP:
		p := NewAMQPConnectionEventPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, log)
		return p, p, nil
	case constants.EventDriverNone, "":
		return NoopPublisher{}, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

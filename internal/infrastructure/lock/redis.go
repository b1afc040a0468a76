package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

const retryInterval = 50 * time.Millisecond

// RedisLocker is a lease-based distributed lock using SET NX PX.
type RedisLocker struct {
	client *redis.Client
	opts   Options
	logger logger.Interface
}

var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(client *redis.Client, opts Options, log logger.Interface) *RedisLocker {
	return &RedisLocker{
		client: client,
		opts:   opts.withDefaults(),
		logger: log,
	}
}

// Lock polls SET NX until it wins the key, ctx is done, or the wait elapses.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(l.opts.Wait)
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	return func() {
		// release on a fresh context so a cancelled request still frees the key
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warnw("failed to release lock", "key", key, "error", err)
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock: generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

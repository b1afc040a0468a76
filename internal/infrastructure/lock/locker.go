// Package lock provides keyed mutual exclusion for connection-scoped work.
package lock

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrLockTimeout is returned when a lock cannot be acquired before the wait expires.
var ErrLockTimeout = errors.New("lock: timed out waiting for lock")

// Locker serializes work per key. The returned release function must be called
// exactly once; releasing after the lease expired is a no-op.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// WithLock runs fn while holding the lock for key.
func WithLock(ctx context.Context, l Locker, key string, fn func(ctx context.Context) error) error {
	release, err := l.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// Options tunes lock acquisition.
type Options struct {
	// TTL bounds how long a holder may keep the lock before it is reclaimed.
	TTL time.Duration
	// Wait bounds how long Lock blocks before returning ErrLockTimeout.
	Wait time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 30 * time.Second
	}
	if o.Wait <= 0 {
		o.Wait = 10 * time.Second
	}
	return o
}

// UserKey is the lock key guarding connection creation for a user.
func UserKey(userID uint) string {
	return "autotrader:lock:user:" + strconv.FormatUint(uint64(userID), 10)
}

// ConnectionKey is the lock key guarding token use and token storage for a connection.
func ConnectionKey(sid string) string {
	return "autotrader:lock:connection:" + sid
}

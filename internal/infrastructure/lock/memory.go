package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is an in-process keyed mutex used when Redis is disabled.
// Entries are reference counted and removed once no goroutine holds or waits on them.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	wait    time.Duration
}

type memoryEntry struct {
	ch   chan struct{} // buffered(1); holding the token means holding the lock
	refs int
}

var _ Locker = (*MemoryLocker)(nil)

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker(opts Options) *MemoryLocker {
	opts = opts.withDefaults()
	return &MemoryLocker{
		entries: make(map[string]*memoryEntry),
		wait:    opts.Wait,
	}
}

// Lock blocks until key is free, ctx is done, or the wait elapses.
func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquireEntry(key)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseEntry(key, e)
		return nil, ctx.Err()
	case <-timer.C:
		l.releaseEntry(key, e)
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.releaseEntry(key, e)
		})
	}, nil
}

func (l *MemoryLocker) acquireEntry(key string) *memoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &memoryEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *MemoryLocker) releaseEntry(key string, e *memoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

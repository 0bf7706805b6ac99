package cache

import (
	"context"
	"sync"
)

// Loader fills an LRU on demand. Concurrent misses for the same key share
// one load.
type Loader[K comparable, V any] struct {
	lru  *LRU[K, V]
	load func(ctx context.Context, key K) (V, error)

	mu       sync.Mutex
	inflight map[K]*call[V]
}

type call[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// NewLoader returns a Loader that calls load on a miss. Failed loads are
// not cached.
func NewLoader[K comparable, V any](config Config[K, V], load func(ctx context.Context, key K) (V, error)) *Loader[K, V] {
	return &Loader[K, V]{
		lru:      NewLRU(config),
		load:     load,
		inflight: make(map[K]*call[V]),
	}
}

// Get returns the cached value for key, loading it if absent or expired.
func (l *Loader[K, V]) Get(ctx context.Context, key K) (V, error) {
	if v, ok := l.lru.Get(key); ok {
		return v, nil
	}

	l.mu.Lock()
	if c, ok := l.inflight[key]; ok {
		l.mu.Unlock()
		select {
		case <-c.done:
			return c.value, c.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
	c := &call[V]{done: make(chan struct{})}
	l.inflight[key] = c
	l.mu.Unlock()

	c.value, c.err = l.load(ctx, key)
	if c.err == nil {
		l.lru.Put(key, c.value)
	}

	l.mu.Lock()
	delete(l.inflight, key)
	l.mu.Unlock()
	close(c.done)
	return c.value, c.err
}

// Invalidate drops key so the next Get reloads it.
func (l *Loader[K, V]) Invalidate(key K) {
	l.lru.Remove(key)
}

// Stats returns the underlying cache statistics.
func (l *Loader[K, V]) Stats() Stats {
	return l.lru.Stats()
}

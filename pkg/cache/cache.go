// Package cache provides the cache port the pipeline depends on and a TTL
// in-memory implementation. Production deployments can plug an external
// store behind the same interface; the pipeline core stays free of global
// state.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is the injected cache port.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is a TTL map cache. Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	items map[string]entry
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]entry)}
}

func (m *Memory) Get(_ context.Context, key string) (any, bool) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.items[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
}

func (m *Memory) Invalidate(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}

// Len returns the number of live entries, expired ones included until their
// next Get.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Loader wraps a Cache with read-through loading. Concurrent loads for the
// same key are collapsed into one upstream call via singleflight.
type Loader struct {
	cache Cache
	sf    singleflight.Group
}

// NewLoader creates a read-through loader over the given cache.
func NewLoader(c Cache) *Loader {
	return &Loader{cache: c}
}

// Load returns the cached value for key, or runs fn once (deduplicated
// across concurrent callers), stores its result under key with the given
// ttl, and returns it. Errors from fn are never cached.
func (l *Loader) Load(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := l.cache.Get(ctx, key); ok {
		return v, nil
	}

	v, err, _ := l.sf.Do(key, func() (any, error) {
		// A sibling caller may have stored the value while we queued.
		if v, ok := l.cache.Get(ctx, key); ok {
			return v, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		l.cache.Set(ctx, key, v, ttl)
		return v, nil
	})
	return v, err
}

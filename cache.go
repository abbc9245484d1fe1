package htex

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// maxCachedEngines bounds the cache. Engines are keyed by font
// configuration, and a process rarely renders with more than a couple.
const maxCachedEngines = 4

// buildFunc constructs an engine for a style. Swapped in tests.
type buildFunc func(ctx context.Context, style Style) (Engine, error)

// EngineCache memoizes compiled engines per font configuration. Concurrent
// callers with an equal style share one build; a failed build leaves the
// slot empty so a later call can retry. When the cache is full the oldest
// completed entry is evicted; borrowed engines stay alive until their
// renders finish and are then collected.
type EngineCache struct {
	build buildFunc

	mu      sync.Mutex
	entries map[[32]byte]*cacheEntry
	order   [][32]byte // insertion order, for eviction
	builds  atomic.Int64
}

type cacheEntry struct {
	ready  chan struct{} // closed when the build finishes
	engine Engine
	err    error
}

func newEngineCache(build buildFunc) *EngineCache {
	return &EngineCache{
		build:   build,
		entries: make(map[[32]byte]*cacheEntry),
	}
}

// Builds returns the number of successful engine builds so far. Renders
// that reuse a cached engine do not increase it.
func (c *EngineCache) Builds() int64 {
	return c.builds.Load()
}

// get returns the engine for style, building it if no equal configuration
// has been built yet.
func (c *EngineCache) get(ctx context.Context, style Style) (Engine, error) {
	key := styleDigest(style)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		c.mu.Unlock()
		select {
		case <-entry.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if entry.err != nil {
			return nil, entry.err
		}
		return entry.engine, nil
	}
	entry := &cacheEntry{ready: make(chan struct{})}
	c.evictLocked()
	c.entries[key] = entry
	c.order = append(c.order, key)
	c.mu.Unlock()

	engine, err := c.build(ctx, style)
	if err != nil {
		entry.err = fmt.Errorf("%w: %v", ErrEngineBuild, err)
		close(entry.ready)
		c.remove(key)
		return nil, entry.err
	}
	entry.engine = engine
	c.builds.Add(1)
	close(entry.ready)
	return engine, nil
}

// evictLocked drops the oldest completed entry when the cache is full.
// In-flight builds are never evicted. Callers must hold c.mu.
func (c *EngineCache) evictLocked() {
	if len(c.entries) < maxCachedEngines {
		return
	}
	for i, key := range c.order {
		entry, ok := c.entries[key]
		if !ok {
			continue
		}
		select {
		case <-entry.ready:
		default:
			continue // still building
		}
		delete(c.entries, key)
		c.order = append(c.order[:i], c.order[i+1:]...)
		return
	}
}

// remove drops a failed entry so the next caller retries the build.
func (c *EngineCache) remove(key [32]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

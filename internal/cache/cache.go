// Package cache memoizes analysis results per dataset version.
//
// Entries expire after a TTL and the cache holds at most Capacity entries,
// evicting the one computed longest ago. Concurrent callers asking for the
// same key share a single computation; a value becomes visible only once it
// is fully computed.
package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Key identifies one cached computation.
type Key struct {
	DatasetID string
	Rows      int
	UpdatedAt time.Time
	// Variant separates results computed from the same dataset, such as
	// reports for different questions.
	Variant string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%d|%d|%s", k.DatasetID, k.Rows, k.UpdatedAt.UnixNano(), k.Variant)
}

type entry[V any] struct {
	key        Key
	value      V
	computedAt time.Time
}

// Cache is safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	// order holds entries newest computation first.
	order *list.List
	group singleflight.Group
	now   func() time.Time
}

// New returns a cache holding up to capacity entries for ttl each. A
// non-positive capacity means 1; a non-positive ttl disables expiry.
func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[V]{
		capacity: capacity,
		ttl:      ttl,
		entries:  map[string]*list.Element{},
		order:    list.New(),
		now:      time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (c *Cache[V]) WithClock(now func() time.Time) *Cache[V] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Get returns a fresh cached value. Reads do not refresh an entry's position.
func (c *Cache[V]) Get(k Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(k)
}

func (c *Cache[V]) getLocked(k Key) (V, bool) {
	var zero V
	el, ok := c.entries[k.String()]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.ttl > 0 && c.now().Sub(e.computedAt) >= c.ttl {
		c.order.Remove(el)
		delete(c.entries, k.String())
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) put(k Key, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := k.String()
	if el, ok := c.entries[id]; ok {
		c.order.Remove(el)
	}
	c.entries[id] = c.order.PushFront(&entry[V]{key: k, value: v, computedAt: c.now()})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		e := oldest.Value.(*entry[V])
		c.order.Remove(oldest)
		delete(c.entries, e.key.String())
		log.Debug().Str("key", e.key.String()).Msg("cache evict")
	}
}

// GetOrCompute returns the cached value for k, or runs compute once for all
// concurrent callers of k and stores its result. Errors are not cached.
// hit reports whether the value came from the cache. compute never sees the
// caller's cancellation; a cancelled caller stops waiting and gets ctx.Err().
func (c *Cache[V]) GetOrCompute(ctx context.Context, k Key, compute func(context.Context) (V, error)) (v V, hit bool, err error) {
	if v, ok := c.Get(k); ok {
		log.Debug().Str("key", k.String()).Msg("cache hit")
		return v, true, nil
	}
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k.String(), func() (any, error) {
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		log.Debug().Str("key", k.String()).Msg("cache miss")
		v, err := compute(detached)
		if err != nil {
			return nil, err
		}
		c.put(k, v)
		return v, nil
	})
	select {
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, false, res.Err
		}
		return res.Val.(V), false, nil
	}
}

// Invalidate drops every entry for datasetID.
func (c *Cache[V]) Invalidate(datasetID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, el := range c.entries {
		if el.Value.(*entry[V]).key.DatasetID == datasetID {
			c.order.Remove(el)
			delete(c.entries, id)
			n++
		}
	}
	return n
}

// Len counts stored entries, including expired ones not yet collected.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

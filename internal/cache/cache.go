// Package cache keeps recently built profiles in memory and coalesces
// concurrent builds of the same query.
package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/house-report/internal/metrics"
	"github.com/sells-group/house-report/internal/model"
)

const (
	DefaultTTL          = 15 * time.Minute
	DefaultCapacity     = 100
	DefaultBuildTimeout = 2 * time.Minute
)

// Options configures a Cache. Zero values take the defaults.
type Options struct {
	TTL      time.Duration
	Capacity int
	// BuildTimeout bounds a shared build. It is detached from the caller
	// that started it, so this is its only deadline.
	BuildTimeout time.Duration
	Now          func() time.Time
	Metrics      *metrics.Metrics
}

type entry struct {
	profile  *model.HouseProfile
	storedAt time.Time
}

// Cache is a TTL-bounded profile cache. Entries are evicted oldest-written
// first once capacity is reached; reads never refresh an entry. Cached
// profiles are shared and must not be modified.
type Cache struct {
	mu           sync.Mutex
	entries      *simplelru.LRU[string, entry]
	ttl          time.Duration
	buildTimeout time.Duration
	now          func() time.Time
	metrics      *metrics.Metrics
	group        singleflight.Group
}

// New creates a cache.
func New(opts Options) (*Cache, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = DefaultBuildTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	entries, err := simplelru.NewLRU[string, entry](opts.Capacity, nil)
	if err != nil {
		return nil, eris.Wrap(err, "cache: create")
	}
	return &Cache{
		entries:      entries,
		ttl:          opts.TTL,
		buildTimeout: opts.BuildTimeout,
		now:          opts.Now,
		metrics:      opts.Metrics,
	}, nil
}

// Key normalizes a query into its cache key: the trimmed, lowercased
// address and the effective radius.
func Key(q model.Query) string {
	return strings.ToLower(strings.TrimSpace(q.Address)) + "|" + strconv.Itoa(q.EffectiveRadius())
}

// Get returns the cached profile for q. An expired entry is removed and
// reported as a miss.
func (c *Cache) Get(q model.Query) (*model.HouseProfile, bool) {
	key := Key(q)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(key)
	if !ok {
		c.metrics.IncCache("miss")
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.entries.Remove(key)
		c.metrics.IncCache("expired")
		return nil, false
	}
	c.metrics.IncCache("hit")
	return e.profile, true
}

// Set stores p under q, evicting the oldest entry when full.
func (c *Cache) Set(q model.Query, p *model.HouseProfile) {
	if p == nil {
		return
	}
	key := Key(q)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-adding an existing key must count as a fresh write.
	c.entries.Remove(key)
	if evicted := c.entries.Add(key, entry{profile: p, storedAt: c.now()}); evicted {
		zap.L().Debug("cache: evicted oldest profile", zap.Int("capacity", c.entries.Len()))
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// BuildFunc builds a profile on a cache miss.
type BuildFunc func(ctx context.Context) (*model.HouseProfile, error)

// built is what a single-flight build hands to every waiting caller.
type built struct {
	profile *model.HouseProfile
	hit     bool
}

// GetOrBuild returns the cached profile for q or builds it. Concurrent
// callers missing on the same key share one build. cached reports whether
// the result came from the cache or from another caller's build.
//
// The shared build keeps the values of ctx but not its cancellation: a
// caller that gives up returns ctx.Err() while the build goes on for the
// others and still fills the cache.
func (c *Cache) GetOrBuild(ctx context.Context, q model.Query, build BuildFunc) (p *model.HouseProfile, cached bool, err error) {
	if p, ok := c.Get(q); ok {
		return p, true, nil
	}

	ch := c.group.DoChan(Key(q), func() (any, error) {
		return c.fill(ctx, q, build)
	})

	select {
	case <-ctx.Done():
		return nil, false, eris.Wrap(ctx.Err(), "cache: wait for build")
	case res := <-ch:
		if res.Shared {
			c.metrics.IncCache("shared")
		}
		if res.Err != nil {
			return nil, false, res.Err
		}
		b := res.Val.(built)
		return b.profile, b.hit || res.Shared, nil
	}
}

// fill runs inside the single flight. A build that finished while this
// caller waited on the group has already filled the cache.
func (c *Cache) fill(ctx context.Context, q model.Query, build BuildFunc) (built, error) {
	if p, ok := c.Get(q); ok {
		return built{profile: p, hit: true}, nil
	}
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.buildTimeout)
	defer cancel()
	p, err := build(bctx)
	if err != nil {
		return built{}, err
	}
	c.Set(q, p)
	return built{profile: p}, nil
}

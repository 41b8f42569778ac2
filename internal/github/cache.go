package github

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CachedChecker wraps a ContributionChecker with a TTL cache so that a
// requeued item, or several items for the same user in one day, do not
// repeat upstream calls. Entries are keyed by kind:username:date; the
// cache is size-bounded with least-frequently-used eviction.
type CachedChecker struct {
	inner   ContributionChecker
	ttl     time.Duration
	maxSize int

	mu      sync.Mutex
	entries map[string]*cacheEntry

	now func() time.Time // overridable in tests
}

type cacheEntry struct {
	value    int
	storedAt time.Time
	hits     int
}

func NewCachedChecker(inner ContributionChecker, ttl time.Duration, maxSize int) *CachedChecker {
	return &CachedChecker{
		inner:   inner,
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

func (c *CachedChecker) ContributionsToday(ctx context.Context, token, username string) (int, error) {
	key := c.key("contributions", username)
	if v, ok := c.get(key); ok {
		return v, nil
	}
	v, err := c.inner.ContributionsToday(ctx, token, username)
	if err != nil {
		return 0, err
	}
	c.set(key, v)
	return v, nil
}

func (c *CachedChecker) CurrentStreak(ctx context.Context, token, username string) (int, error) {
	key := c.key("streak", username)
	if v, ok := c.get(key); ok {
		return v, nil
	}
	v, err := c.inner.CurrentStreak(ctx, token, username)
	if err != nil {
		return 0, err
	}
	c.set(key, v)
	return v, nil
}

func (c *CachedChecker) key(kind, username string) string {
	return fmt.Sprintf("%s:%s:%s", kind, username, c.now().UTC().Format("2006-01-02"))
}

func (c *CachedChecker) get(key string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return 0, false
	}
	entry.hits++
	return entry.value, true
}

func (c *CachedChecker) set(key string, value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.evict()
	}
	c.entries[key] = &cacheEntry{value: value, storedAt: c.now(), hits: 1}
}

// evict drops the least-frequently-used entry. Caller holds the lock.
func (c *CachedChecker) evict() {
	var victim string
	minHits := -1
	for key, entry := range c.entries {
		if minHits == -1 || entry.hits < minHits {
			minHits = entry.hits
			victim = key
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}

var _ ContributionChecker = (*CachedChecker)(nil)

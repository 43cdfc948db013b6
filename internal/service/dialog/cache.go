package dialog

import (
	"context"
	"sync"
	"time"

	"github.com/avelesov/neyra/internal/model/chat"
)

// sessionCache keeps recently used session records in memory so routine
// messages skip a store read. Eviction only drops the cached copy; durable
// state is untouched.
type sessionCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	sess     chat.Session
	lastSeen time.Time
}

func newSessionCache(ttl time.Duration) *sessionCache {
	return &sessionCache{entries: make(map[string]cacheEntry), ttl: ttl}
}

func (c *sessionCache) get(userID string) (chat.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[userID]
	if !ok {
		return chat.Session{}, false
	}
	e.lastSeen = time.Now()
	c.entries[userID] = e
	return e.sess, true
}

func (c *sessionCache) put(sess chat.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sess.UserID] = cacheEntry{sess: sess, lastSeen: time.Now()}
}

func (c *sessionCache) drop(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// evictIdle removes entries not touched within the TTL and reports how many
// were dropped.
func (c *sessionCache) evictIdle(now time.Time) int {
	if c.ttl <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for id, e := range c.entries {
		if now.Sub(e.lastSeen) > c.ttl {
			delete(c.entries, id)
			evicted++
		}
	}
	return evicted
}

// RunEviction periodically evicts idle cached sessions until ctx is done.
func (s *Service) RunEviction(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if n := s.cache.evictIdle(now); n > 0 {
				s.logger.Debug().Int("evicted", n).Msg("evicted idle sessions from cache")
			}
		}
	}
}

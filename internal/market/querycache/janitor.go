package querycache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Start runs the janitor until ctx is cancelled. Every period it evicts
// entries that have not been read for longer than their cache time.
func (c *Cache) Start(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = time.Minute
	}

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.evictExpired(); n > 0 {
					c.logger.Debug("evicted idle entries", zap.Int("count", n), zap.Int("remaining", c.Len()))
				}
			}
		}
	}()
}

func (c *Cache) evictExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for k, e := range c.entries {
		if now.Sub(e.lastAccess) > e.cacheTime {
			delete(c.entries, k)
			evicted++
		}
	}
	return evicted
}

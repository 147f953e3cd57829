package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Cooldown allows one event per key every period. It backs the alert and
// report cooldowns, which are single-token buckets.
type Cooldown struct {
	mu       sync.Mutex
	period   time.Duration
	limiters map[string]*cooldownEntry
}

type cooldownEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

func NewCooldown(period time.Duration) *Cooldown {
	if period <= 0 {
		period = time.Second
	}
	return &Cooldown{period: period, limiters: make(map[string]*cooldownEntry)}
}

// Allow reports whether key may fire at now and, if so, starts a new
// cooldown period for it.
func (c *Cooldown) Allow(key string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.limiters[key]
	if entry == nil {
		entry = &cooldownEntry{limiter: rate.NewLimiter(rate.Every(c.period), 1)}
		c.limiters[key] = entry
	}
	if !entry.limiter.AllowN(now, 1) {
		return false
	}
	entry.last = now
	return true
}

// Prune forgets keys whose cooldown has fully elapsed.
func (c *Cooldown) Prune(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.limiters {
		if now.Sub(entry.last) >= c.period {
			delete(c.limiters, key)
			removed++
		}
	}
	return removed
}

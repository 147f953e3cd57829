package ratelimit

import (
	"sync"
	"time"
)

// Rule is an "events per window" threshold.
type Rule struct {
	Events int
	Window time.Duration
}

// Buckets counts events per key over a trailing window and reports when a
// key reaches the rule's event count. Keys are created on first use.
type Buckets struct {
	mu      sync.Mutex
	rule    Rule
	windows map[string]*window
}

func NewBuckets(rule Rule) *Buckets {
	if rule.Events <= 0 {
		rule.Events = 1
	}
	return &Buckets{rule: rule, windows: make(map[string]*window)}
}

// Hit records one event for key at now and returns true when the number of
// events inside the window, this one included, has reached the threshold.
func (b *Buckets) Hit(key string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getWindow(key).add(now) >= b.rule.Events
}

// Count returns the events currently inside the window for key.
func (b *Buckets) Count(key string, now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.windows[key]
	if w == nil {
		return 0
	}
	return w.count(now)
}

func (b *Buckets) Reset(key string) {
	b.mu.Lock()
	delete(b.windows, key)
	b.mu.Unlock()
}

// Prune drops keys whose window is empty at now and returns how many were
// removed.
func (b *Buckets) Prune(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for key, w := range b.windows {
		if w.count(now) == 0 {
			delete(b.windows, key)
			removed++
		}
	}
	return removed
}

func (b *Buckets) Rule() Rule {
	return b.rule
}

func (b *Buckets) getWindow(key string) *window {
	w := b.windows[key]
	if w == nil {
		w = &window{span: b.rule.Window}
		b.windows[key] = w
	}
	return w
}

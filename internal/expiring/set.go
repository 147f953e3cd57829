// Package expiring holds short-lived membership sets used to recall which
// members took part in a burst once a threshold trips.
package expiring

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

type entryKey struct {
	group string
	id    string
}

type entry[V any] struct {
	value    V
	inserted time.Time
}

// Set maps (group, id) pairs to values with a fixed TTL. Expiry is checked
// on access. Capacity is shared by all groups; once full, the oldest entry
// is evicted regardless of its age.
type Set[V any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	cache *simplelru.LRU[entryKey, entry[V]]
}

func New[V any](capacity int, ttl time.Duration) *Set[V] {
	if capacity <= 0 {
		capacity = 100
	}
	cache, err := simplelru.NewLRU[entryKey, entry[V]](capacity, nil)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &Set[V]{ttl: ttl, now: time.Now, cache: cache}
}

// WithClock replaces the time source used for insertion and expiry.
func (s *Set[V]) WithClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Remember stores value under (group, id). It returns false and keeps the
// original insertion time when a live entry already exists.
func (s *Set[V]) Remember(group, id string, value V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entryKey{group: group, id: id}
	now := s.now()
	if existing, ok := s.cache.Peek(key); ok && !s.expired(existing, now) {
		return false
	}
	s.cache.Remove(key)
	s.cache.Add(key, entry[V]{value: value, inserted: now})
	return true
}

func (s *Set[V]) Has(group, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entryKey{group: group, id: id}
	item, ok := s.cache.Peek(key)
	if !ok {
		return false
	}
	if s.expired(item, s.now()) {
		s.cache.Remove(key)
		return false
	}
	return true
}

// AllFor returns the live values of group, oldest first.
func (s *Set[V]) AllFor(group string) []V {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(group, false)
}

// Drain returns the live values of group, oldest first, and removes the
// whole group.
func (s *Set[V]) Drain(group string) []V {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(group, true)
}

func (s *Set[V]) Forget(group, id string) {
	s.mu.Lock()
	s.cache.Remove(entryKey{group: group, id: id})
	s.mu.Unlock()
}

// Len counts stored entries, including ones that expired but were not yet
// touched.
func (s *Set[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

func (s *Set[V]) collect(group string, remove bool) []V {
	now := s.now()
	var values []V
	for _, key := range s.cache.Keys() {
		if key.group != group {
			continue
		}
		item, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		if s.expired(item, now) {
			s.cache.Remove(key)
			continue
		}
		values = append(values, item.value)
		if remove {
			s.cache.Remove(key)
		}
	}
	return values
}

func (s *Set[V]) expired(item entry[V], now time.Time) bool {
	return now.Sub(item.inserted) > s.ttl
}

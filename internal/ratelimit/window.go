package ratelimit

import "time"

// window keeps the timestamps of events in [now-span, now].
// It is not safe for concurrent use; Buckets guards it.
type window struct {
	span time.Duration
	hits []time.Time
}

func (w *window) add(now time.Time) int {
	w.evict(now)
	w.hits = append(w.hits, now)
	return len(w.hits)
}

func (w *window) count(now time.Time) int {
	w.evict(now)
	return len(w.hits)
}

func (w *window) evict(now time.Time) {
	cutoff := now.Add(-w.span)
	idx := 0
	for _, hit := range w.hits {
		if !hit.Before(cutoff) {
			break
		}
		idx++
	}
	if idx == 0 {
		return
	}
	w.hits = append(w.hits[:0], w.hits[idx:]...)
}

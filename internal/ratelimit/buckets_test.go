package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketsTripOnNthEvent(t *testing.T) {
	buckets := NewBuckets(Rule{Events: 4, Window: 15 * time.Second})
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		assert.False(t, buckets.Hit("g1", now.Add(time.Duration(i)*time.Second)), "event %d", i+1)
	}
	assert.True(t, buckets.Hit("g1", now.Add(3*time.Second)))
	assert.True(t, buckets.Hit("g1", now.Add(4*time.Second)), "stays tripped inside the window")
}

func TestBucketsWindowExpiry(t *testing.T) {
	buckets := NewBuckets(Rule{Events: 2, Window: 6 * time.Second})
	now := time.Unix(1_700_000_000, 0)

	assert.False(t, buckets.Hit("u1", now))
	assert.True(t, buckets.Hit("u1", now.Add(time.Second)))

	later := now.Add(8 * time.Second)
	assert.Equal(t, 0, buckets.Count("u1", later))
	assert.False(t, buckets.Hit("u1", later), "expired events must not count")
}

func TestBucketsWindowIsInclusive(t *testing.T) {
	buckets := NewBuckets(Rule{Events: 2, Window: 6 * time.Second})
	now := time.Unix(1_700_000_000, 0)

	assert.False(t, buckets.Hit("u1", now))
	assert.True(t, buckets.Hit("u1", now.Add(6*time.Second)), "event at exactly now-window still counts")
	assert.Equal(t, 1, buckets.Count("u1", now.Add(6*time.Second+time.Nanosecond)))
}

func TestBucketsKeysAreIndependent(t *testing.T) {
	buckets := NewBuckets(Rule{Events: 2, Window: time.Minute})
	now := time.Unix(1_700_000_000, 0)

	assert.False(t, buckets.Hit("a", now))
	assert.False(t, buckets.Hit("b", now))
	assert.Equal(t, 1, buckets.Count("a", now))
	assert.Equal(t, 0, buckets.Count("missing", now))
}

func TestBucketsPrune(t *testing.T) {
	buckets := NewBuckets(Rule{Events: 10, Window: 8 * time.Second})
	now := time.Unix(1_700_000_000, 0)
	buckets.Hit("old", now)
	buckets.Hit("fresh", now.Add(7*time.Second))

	removed := buckets.Prune(now.Add(9 * time.Second))
	require.Equal(t, 1, removed)
	assert.Equal(t, 1, buckets.Count("fresh", now.Add(9*time.Second)))
}

func TestCooldown(t *testing.T) {
	cooldown := NewCooldown(10 * time.Minute)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, cooldown.Allow("g1", now))
	assert.False(t, cooldown.Allow("g1", now.Add(time.Minute)))
	assert.False(t, cooldown.Allow("g1", now.Add(9*time.Minute)))
	assert.True(t, cooldown.Allow("g2", now.Add(time.Minute)), "keys are independent")
	assert.True(t, cooldown.Allow("g1", now.Add(10*time.Minute+time.Second)))
	assert.False(t, cooldown.Allow("g1", now.Add(11*time.Minute)))
}

func TestCooldownPrune(t *testing.T) {
	cooldown := NewCooldown(10 * time.Second)
	now := time.Unix(1_700_000_000, 0)
	cooldown.Allow("u1", now)
	cooldown.Allow("u2", now.Add(5*time.Second))

	assert.Equal(t, 1, cooldown.Prune(now.Add(12*time.Second)))
	assert.False(t, cooldown.Allow("u2", now.Add(12*time.Second)))
}

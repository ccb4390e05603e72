package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketExhaustion(t *testing.T) {
	bucket := NewTokenBucket(3, 1, time.Hour)

	for i := 0; i < 3; i++ {
		allowed, _ := bucket.Allow()
		assert.True(t, allowed, "request %d should pass", i+1)
	}

	allowed, wait := bucket.Allow()
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))
}

func TestTokenBucketRefill(t *testing.T) {
	bucket := NewTokenBucket(1, 1, 10*time.Millisecond)

	allowed, _ := bucket.Allow()
	assert.True(t, allowed)
	allowed, _ = bucket.Allow()
	assert.False(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, _ = bucket.Allow()
	assert.True(t, allowed)
}

func TestRateLimiterIsolatesUsersAndActions(t *testing.T) {
	rl := NewRateLimiter()

	// Drain alice's room creation allowance.
	for i := 0; i < 5; i++ {
		allowed, _ := rl.Allow("alice", "create_room")
		assert.True(t, allowed)
	}
	allowed, _ := rl.Allow("alice", "create_room")
	assert.False(t, allowed)

	// Other actions and other users keep their own buckets.
	allowed, _ = rl.Allow("alice", "send_message")
	assert.True(t, allowed)
	allowed, _ = rl.Allow("bob", "create_room")
	assert.True(t, allowed)
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter()

	rl.Allow("alice", "send_message")
	rl.buckets["alice:send_message"].lastRefill = time.Now().Add(-2 * time.Hour)
	rl.Allow("bob", "send_message")

	rl.Cleanup()

	assert.NotContains(t, rl.buckets, "alice:send_message")
	assert.Contains(t, rl.buckets, "bob:send_message")
}

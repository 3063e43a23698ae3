package ratelimit_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/supp-dex/instance-api/internal/mocks"
	"github.com/supp-dex/instance-api/internal/ratelimit"
)

func TestFixedWindow_Allow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mockClock := mocks.NewMockClock(ctrl)
	mockClock.EXPECT().Now().DoAndReturn(func() time.Time { return now }).AnyTimes()

	limiter := ratelimit.NewFixedWindow(ratelimit.Config{
		Max:     3,
		Window:  time.Minute,
		MaxKeys: 16,
	}, mockClock)

	// First three calls within the window pass
	for i := 0; i < 3; i++ {
		allowed, retryAfter := limiter.Allow("sid:1.2.3.4")
		assert.True(t, allowed, "call %d should be allowed", i+1)
		assert.Zero(t, retryAfter)
	}

	// The fourth is denied with the time remaining in the window
	now = now.Add(10 * time.Second)
	allowed, retryAfter := limiter.Allow("sid:1.2.3.4")
	assert.False(t, allowed)
	assert.Equal(t, 50*time.Second, retryAfter)

	// A different key is unaffected
	allowed, _ = limiter.Allow("other:1.2.3.4")
	assert.True(t, allowed)

	// Same session from a different origin is a different key
	allowed, _ = limiter.Allow("sid:5.6.7.8")
	assert.True(t, allowed)

	// After the window elapses the quota resets
	now = now.Add(time.Minute)
	allowed, retryAfter = limiter.Allow("sid:1.2.3.4")
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}

func TestFixedWindow_Defaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mockClock := mocks.NewMockClock(ctrl)
	mockClock.EXPECT().Now().DoAndReturn(func() time.Time { return now }).AnyTimes()

	// Zero config falls back to 3 calls per minute
	limiter := ratelimit.NewFixedWindow(ratelimit.Config{}, mockClock)

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow("k")
		assert.True(t, allowed)
	}
	allowed, retryAfter := limiter.Allow("k")
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, retryAfter)
}

func TestFixedWindow_Concurrent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mockClock := mocks.NewMockClock(ctrl)
	mockClock.EXPECT().Now().DoAndReturn(func() time.Time { return now }).AnyTimes()

	limiter := ratelimit.NewFixedWindow(ratelimit.Config{
		Max:     5,
		Window:  time.Minute,
		MaxKeys: 16,
	}, mockClock)

	results := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		go func() {
			allowed, _ := limiter.Allow("shared")
			results <- allowed
		}()
	}

	allowedCount := 0
	for i := 0; i < 20; i++ {
		if <-results {
			allowedCount++
		}
	}
	assert.Equal(t, 5, allowedCount, "quota must hold under concurrent callers")
}

func TestFixedWindow_KeyEviction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mockClock := mocks.NewMockClock(ctrl)
	mockClock.EXPECT().Now().DoAndReturn(func() time.Time { return now }).AnyTimes()

	limiter := ratelimit.NewFixedWindow(ratelimit.Config{
		Max:     1,
		Window:  time.Minute,
		MaxKeys: 4,
	}, mockClock)

	// Exhaust the quota for one key, then push it out of the bounded map
	allowed, _ := limiter.Allow("victim")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("victim")
	assert.False(t, allowed)

	for i := 0; i < 8; i++ {
		limiter.Allow(fmt.Sprintf("filler-%d", i))
	}

	// Eviction resets the window; this is the accepted tradeoff of bounding
	// the tracked key set
	allowed, _ = limiter.Allow("victim")
	assert.True(t, allowed)
}

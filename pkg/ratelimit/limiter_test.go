package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFixedDelayWaitsFullDelay(t *testing.T) {
	clock := NewManualClock(epoch)
	limiter := NewFixedDelay(time.Second, clock)

	done := make(chan error, 1)
	go func() { done <- limiter.Wait(context.Background()) }()

	require.Eventually(t, func() bool { return clock.Waiters() == 1 }, time.Second, time.Millisecond)

	clock.Advance(500 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Wait returned before the delay elapsed")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(500 * time.Millisecond)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the delay elapsed")
	}
}

func TestFixedDelayZeroDoesNotBlock(t *testing.T) {
	limiter := NewFixedDelay(0, NewManualClock(epoch))
	assert.NoError(t, limiter.Wait(context.Background()))
}

func TestFixedDelayCancellation(t *testing.T) {
	clock := NewManualClock(epoch)
	limiter := NewFixedDelay(time.Hour, clock)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- limiter.Wait(ctx) }()
	require.Eventually(t, func() bool { return clock.Waiters() == 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Wait ignored cancellation")
	}
}

func TestTokenBucketAllowsBurstThenThrottles(t *testing.T) {
	clock := NewManualClock(epoch)
	tb := NewTokenBucket(60, 2, clock)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "bucket should be empty after burst")

	clock.Advance(time.Second)
	assert.True(t, tb.Allow(), "one token refills per second at 60 rpm")
	assert.False(t, tb.Allow())
}

func TestTokenBucketWaitUsesClock(t *testing.T) {
	clock := NewManualClock(epoch)
	tb := NewTokenBucket(60, 1, clock)

	require.NoError(t, tb.Wait(context.Background()))
	assert.Equal(t, time.Second, tb.Delay())

	done := make(chan error, 1)
	go func() { done <- tb.Wait(context.Background()) }()
	require.Eventually(t, func() bool { return clock.Waiters() == 1 }, time.Second, time.Millisecond)

	clock.Advance(time.Second)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after refill")
	}
}

func TestTokenBucketUnlimited(t *testing.T) {
	tb := NewTokenBucket(0, 1, NewManualClock(epoch))
	for i := 0; i < 100; i++ {
		require.NoError(t, tb.Wait(context.Background()))
	}
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Wait(context.Background()))
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces callers. Wait blocks until the caller may proceed or ctx is
// done.
type Limiter interface {
	Wait(ctx context.Context) error
}

// FixedDelay pauses for the same duration on every call.
type FixedDelay struct {
	delay time.Duration
	clock Clock
}

// NewFixedDelay creates a fixed-delay limiter. A nil clock uses real time.
func NewFixedDelay(delay time.Duration, clock Clock) *FixedDelay {
	if clock == nil {
		clock = RealClock()
	}
	return &FixedDelay{delay: delay, clock: clock}
}

// Delay returns the configured pause.
func (f *FixedDelay) Delay() time.Duration { return f.delay }

func (f *FixedDelay) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.delay <= 0 {
		return nil
	}
	select {
	case <-f.clock.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TokenBucket allows requestsPerMinute requests per minute with a burst of
// burst requests.
type TokenBucket struct {
	limiter *rate.Limiter
	clock   Clock
}

// NewTokenBucket creates a token bucket limiter. A nil clock uses real time.
func NewTokenBucket(requestsPerMinute, burst int, clock Clock) *TokenBucket {
	if clock == nil {
		clock = RealClock()
	}
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &TokenBucket{limiter: rate.NewLimiter(limit, burst), clock: clock}
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (tb *TokenBucket) Allow() bool {
	return tb.limiter.AllowN(tb.clock.Now(), 1)
}

// Wait blocks until a token is available.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := tb.clock.Now()
	r := tb.limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("rate limiter cannot grant a token")
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	select {
	case <-tb.clock.After(delay):
		return nil
	case <-ctx.Done():
		r.CancelAt(tb.clock.Now())
		return ctx.Err()
	}
}

// Delay reports how long a caller would wait for the next token without
// consuming one.
func (tb *TokenBucket) Delay() time.Duration {
	now := tb.clock.Now()
	r := tb.limiter.ReserveN(now, 1)
	defer r.CancelAt(now)
	return r.DelayFrom(now)
}

// Nop never blocks.
type Nop struct{}

func (Nop) Wait(ctx context.Context) error { return ctx.Err() }

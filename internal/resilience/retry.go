// Package resilience provides retry, rate limiting and circuit breaking for
// calls to external services.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff controls retry attempts with exponential delay and jitter.
type Backoff struct {
	// Attempts is the total number of tries, including the first. Default: 3.
	Attempts int

	// Min is the delay before the first retry. Default: 4s.
	Min time.Duration

	// Max caps any single delay. Default: 10s.
	Max time.Duration

	// Multiplier scales the delay after each attempt. Default: 2.
	Multiplier float64

	// Jitter is the random spread as a fraction of the delay. Default: 0.
	Jitter float64

	// Retryable decides whether err is worth another attempt. Defaults to
	// IsTransient.
	Retryable func(err error) bool

	// OnRetry runs before each sleep.
	OnRetry func(attempt int, delay time.Duration, err error)

	// sleep waits for d or until ctx ends; swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultBackoff mirrors the ads archive's guidance: three tries, 4s to 10s.
func DefaultBackoff() Backoff {
	return Backoff{
		Attempts:   3,
		Min:        4 * time.Second,
		Max:        10 * time.Second,
		Multiplier: 2,
	}
}

func (b Backoff) normalized() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.Min <= 0 {
		b.Min = 4 * time.Second
	}
	if b.Max < b.Min {
		b.Max = b.Min
	}
	if b.Multiplier < 1 {
		b.Multiplier = 2
	}
	if b.Jitter < 0 {
		b.Jitter = 0
	}
	if b.Retryable == nil {
		b.Retryable = IsTransient
	}
	if b.sleep == nil {
		b.sleep = sleepCtx
	}
	return b
}

// Delay returns the wait before retry number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	b = b.normalized()
	d := float64(b.Min) * math.Pow(b.Multiplier, float64(attempt))
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx ends. The last error is returned.
func Retry[T any](ctx context.Context, b Backoff, fn func(ctx context.Context) (T, error)) (T, error) {
	b = b.normalized()

	var zero T
	var err error
	for attempt := 0; attempt < b.Attempts; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !b.Retryable(err) || attempt == b.Attempts-1 {
			return zero, err
		}

		delay := b.Delay(attempt)
		if b.OnRetry != nil {
			b.OnRetry(attempt+1, delay, err)
		}
		if serr := b.sleep(ctx, delay); serr != nil {
			return zero, err
		}
	}
	return zero, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// LogRetry returns an OnRetry hook that logs through the global logger.
func LogRetry(service, operation string) func(int, time.Duration, error) {
	return func(attempt int, delay time.Duration, err error) {
		zap.L().Warn("resilience: retrying",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
}

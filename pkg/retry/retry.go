package retry

import (
	"context"
	"math"
	"time"
)

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	return timerSleeper{}.Sleep(ctx, d)
}

// Policy describes exponential backoff: attempt i waits BaseDelay * 2^i.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Retryable decides whether an error is worth another attempt.
	// Nil retries every error.
	Retryable func(error) bool
	Sleeper   Sleeper
}

func (p Policy) delay(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * p.BaseDelay
}

// Do runs op until it succeeds, the error is not retryable, attempts run out
// or ctx is done. The last error is returned.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(1, p.MaxAttempts)
	sleeper := p.Sleeper
	if sleeper == nil {
		sleeper = timerSleeper{}
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err
		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}
		if i == attempts-1 {
			break
		}
		if serr := sleeper.Sleep(ctx, p.delay(i)); serr != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

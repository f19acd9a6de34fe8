package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Guard retries a call with exponential backoff behind a Breaker.
type Guard struct {
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	// Retryable decides whether err deserves another attempt. Nil retries everything.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, the attempts run out, ctx ends or the breaker opens.
func (g Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(g.MaxAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if g.Breaker != nil && !g.Breaker.Allow(ctx) {
			if lastErr != nil {
				return errors.Join(ErrOpenCircuit, lastErr)
			}
			return ErrOpenCircuit
		}
		err := fn(ctx)
		if g.Breaker != nil {
			g.Breaker.Report(ctx, err == nil)
		}
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == attempts || (g.Retryable != nil && !g.Retryable(err)) {
			break
		}
		timer := time.NewTimer(Backoff(g.BaseBackoff, attempt, g.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return lastErr
}

// Backoff returns base doubled per attempt, spread by a jitter fraction (0.2 is 20%).
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(min(attempt-1, 16))
	if jitter <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * jitter
	return d + time.Duration(delta)
}

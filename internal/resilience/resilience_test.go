package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(target string) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker(target, 2, 0.5, time.Minute)
	b.now = clock.now
	return b, clock
}

func TestBreakerTransitions(t *testing.T) {
	b, clock := newTestBreaker("kafka-test")
	ctx := context.Background()

	require.True(t, b.Allow(ctx))
	b.Report(ctx, true)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow(ctx))

	clock.t = clock.t.Add(time.Minute)
	require.True(t, b.Allow(ctx))
	require.Equal(t, HalfOpen, b.State())
	require.False(t, b.Allow(ctx), "only one probe while half-open")

	b.Report(ctx, true)
	require.Equal(t, Closed, b.State())

	require.Equal(t, 1.0, testutil.ToFloat64(breakerOpened.WithLabelValues("kafka-test")))
	require.Equal(t, 1.0, testutil.ToFloat64(breakerTransitions.WithLabelValues("kafka-test", "half_open", "closed")))
	require.Equal(t, 0.0, testutil.ToFloat64(breakerState.WithLabelValues("kafka-test")))
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker("kafka-reopen")
	ctx := context.Background()
	b.Report(ctx, false)
	b.Report(ctx, false)
	clock.t = clock.t.Add(time.Minute)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, Open, b.State())
	require.Equal(t, 2.0, testutil.ToFloat64(breakerOpened.WithLabelValues("kafka-reopen")))
}

func TestGuardRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Guard{MaxAttempts: 3, BaseBackoff: time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("leader not available")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestGuardStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("message too large")
	calls := 0
	err := Guard{
		MaxAttempts: 5,
		BaseBackoff: time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, permanent) },
	}.Do(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestGuardShedsWhenOpen(t *testing.T) {
	b, _ := newTestBreaker("kafka-shed")
	boom := errors.New("broker down")
	g := Guard{Breaker: b, MaxAttempts: 5, BaseBackoff: time.Millisecond}

	calls := 0
	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, ErrOpenCircuit)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)

	err = g.Do(context.Background(), func(context.Context) error {
		t.Fatal("must not call through an open breaker")
		return nil
	})
	require.ErrorIs(t, err, ErrOpenCircuit)
}

func TestGuardHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Guard{MaxAttempts: 3, BaseBackoff: time.Hour}.Do(ctx, func(context.Context) error {
		cancel()
		return errors.New("timeout")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	require.Equal(t, 100*time.Millisecond, Backoff(0, 1, 0))
	require.Equal(t, 400*time.Millisecond, Backoff(100*time.Millisecond, 3, 0))
	for range 20 {
		d := Backoff(100*time.Millisecond, 2, 0.2)
		require.GreaterOrEqual(t, d, 160*time.Millisecond)
		require.LessOrEqual(t, d, 240*time.Millisecond)
	}
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowAllow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := SlidingWindow{Client: client, Prefix: "test:"}

	ctx := context.Background()
	window := 2 * time.Second
	max := 2

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "key", window, max)
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i)
		require.Equal(t, max-(i+1), remaining)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)

	mr.FastForward(window)

	allowed, _, _, err = limiter.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestFixedWindowAllow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewFixedWindow(client, "promo-validate")
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "ip:1.2.3.4", time.Minute, 3)
		require.NoError(t, err)
		require.True(t, allowed)
		require.Equal(t, 3-(i+1), remaining)
	}
	allowed, _, reset, err := limiter.Allow(ctx, "ip:1.2.3.4", time.Minute, 3)
	require.NoError(t, err)
	require.False(t, allowed)
	require.True(t, reset.After(time.Now().Add(-time.Second)))

	allowed, _, _, err = limiter.Allow(ctx, "ip:5.6.7.8", time.Minute, 3)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestNilBackendsAllow(t *testing.T) {
	allowed, _, _, err := SlidingWindow{}.Allow(context.Background(), "k", time.Second, 1)
	require.NoError(t, err)
	require.True(t, allowed)
	allowed, _, _, err = FixedWindow{}.Allow(context.Background(), "k", time.Second, 1)
	require.NoError(t, err)
	require.True(t, allowed)
}

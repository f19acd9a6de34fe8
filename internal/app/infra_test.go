package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0", RedisOptions{Tracing: true}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "promo:code:SAVE10", "x", 0).Err())
	require.True(t, mr.Exists("promo:code:SAVE10"))
}

func TestOpenRedisRejectsBadURL(t *testing.T) {
	_, err := OpenRedis(context.Background(), "://nope", RedisOptions{}, zerolog.Nop())
	require.Error(t, err)
}

func TestOpenPostgresRejectsBadURL(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "postgres://%zz", "bookstore-test")
	require.Error(t, err)
}

func TestTaskRedis(t *testing.T) {
	opt, err := TaskRedis("redis://localhost:6379/2")
	require.NoError(t, err)
	clientOpt, ok := opt.(asynq.RedisClientOpt)
	require.True(t, ok)
	require.Equal(t, "localhost:6379", clientOpt.Addr)
	require.Equal(t, 2, clientOpt.DB)

	_, err = TaskRedis("memcache://localhost")
	require.Error(t, err)
}

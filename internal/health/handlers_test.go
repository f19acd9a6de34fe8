package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/guna684/book-shop-project-sub001/internal/health"
)

func okProbe(name string) health.Probe {
	return health.Probe{Name: name, Check: func(context.Context) error { return nil }}
}

func failingProbe(name string, err error) health.Probe {
	return health.Probe{Name: name, Check: func(context.Context) error { return err }}
}

func readyStatus(t *testing.T, handler health.Handler) (int, map[string]string) {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var status map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	return rr.Code, status
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReadySuccess(t *testing.T) {
	code, status := readyStatus(t, health.Handler{Probes: []health.Probe{okProbe("db"), okProbe("redis")}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]string{"db": "ok", "redis": "ok"}, status)
}

func TestReadyFailure(t *testing.T) {
	code, status := readyStatus(t, health.Handler{Probes: []health.Probe{
		failingProbe("db", errors.New("connection refused")),
		okProbe("redis"),
	}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "connection refused", status["db"])
	require.Equal(t, "ok", status["redis"])
}

func TestReadyProbeTimeout(t *testing.T) {
	slow := health.Probe{Name: "db", Timeout: 10 * time.Millisecond, Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	code, status := readyStatus(t, health.Handler{Probes: []health.Probe{slow}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, context.DeadlineExceeded.Error(), status["db"])
}

func TestReadinessAfterShutdown(t *testing.T) {
	handler := health.Handler{Probes: []health.Probe{okProbe("db")}}
	t.Cleanup(func() { health.SetReady(true) })

	health.SetReady(true)
	code, _ := readyStatus(t, handler)
	require.Equal(t, http.StatusOK, code)

	health.SetReady(false)
	code, status := readyStatus(t, handler)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "draining", status["status"])
}

func TestRedisProbe(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	code, _ := readyStatus(t, health.Handler{Probes: []health.Probe{health.RedisProbe(client, time.Second)}})
	require.Equal(t, http.StatusOK, code)

	mr.Close()
	code, status := readyStatus(t, health.Handler{Probes: []health.Probe{health.RedisProbe(client, 200*time.Millisecond)}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.NotEqual(t, "ok", status["redis"])
}

func TestPostgresProbeWithoutPool(t *testing.T) {
	code, status := readyStatus(t, health.Handler{Probes: []health.Probe{health.PostgresProbe(nil, time.Second)}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "db not configured", status["db"])
}

package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func TestCheckHealthy(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hc := NewHealthChecker(&fakePinger{}, client, "1.0.0")
	status := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, "1.0.0", status.Version)
	assert.Contains(t, status.Dependencies, "identity_provider")
	assert.Contains(t, status.Dependencies, "redis")
}

func TestCheckProviderDownIsUnhealthy(t *testing.T) {
	hc := NewHealthChecker(&fakePinger{err: errors.New("connection refused")}, nil, "")
	status := hc.Check(context.Background())

	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, StatusUnhealthy, status.Dependencies["identity_provider"].Status)
	assert.Contains(t, status.Dependencies["identity_provider"].Message, "connection refused")
}

func TestCheckRedisDownIsDegraded(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	hc := NewHealthChecker(&fakePinger{}, client, "")
	status := hc.Check(context.Background())

	assert.Equal(t, StatusDegraded, status.Status)
}

func TestLiveness(t *testing.T) {
	hc := NewHealthChecker(nil, nil, "")

	rec := httptest.NewRecorder()
	hc.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), StatusHealthy)
}

func TestReadiness(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		hc := NewHealthChecker(&fakePinger{}, nil, "")

		rec := httptest.NewRecorder()
		hc.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		hc := NewHealthChecker(&fakePinger{err: errors.New("down")}, nil, "")

		rec := httptest.NewRecorder()
		hc.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

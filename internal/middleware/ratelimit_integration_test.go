//go:build integration

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/common/ut"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"FieldForce/config"
	"FieldForce/storage/redis"
)

func startRedis(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client, err := redis.Open(ctx, config.Config{RedisAddr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	client := startRedis(t)
	cfg := RateLimitConfig{
		KeyPrefix:     "test:rate",
		Window:        time.Minute,
		BlockDuration: time.Minute,
		MaxRequests:   2,
	}
	engine := newLimitedEngine(client, cfg, 42)

	for i := 0; i < 2; i++ {
		resp := ut.PerformRequest(engine, http.MethodPost, "/attendances", nil).Result()
		require.Equal(t, http.StatusCreated, resp.StatusCode())
	}

	resp := ut.PerformRequest(engine, http.MethodPost, "/attendances", nil).Result()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode())
	assert.Equal(t, "0", string(resp.Header.Peek("X-RateLimit-Remaining")))

	// 封禁期内直接拒绝
	resp = ut.PerformRequest(engine, http.MethodPost, "/attendances", nil).Result()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode())

	// 其他员工不受影响
	other := newLimitedEngine(client, cfg, 43)
	resp = ut.PerformRequest(other, http.MethodPost, "/attendances", nil).Result()
	assert.Equal(t, http.StatusCreated, resp.StatusCode())
}

//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"FieldForce/internal/model"
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

	client := goredis.NewClient(&goredis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestLockerExcludesSecondHolder(t *testing.T) {
	client := startRedis(t)
	locker := NewLocker(client, "test")
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "attendance:42:2025-03-14", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "attendance:42:2025-03-14", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// 错误的 token 不能释放
	require.NoError(t, locker.Unlock(ctx, "attendance:42:2025-03-14", "someone-else"))
	_, ok, err = locker.TryLock(ctx, "attendance:42:2025-03-14", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Unlock(ctx, "attendance:42:2025-03-14", token))
	_, ok, err = locker.TryLock(ctx, "attendance:42:2025-03-14", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTodayCacheRoundTrip(t *testing.T) {
	client := startRedis(t)
	cache := NewTodayCache(client, "test")
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, 42, "2025-03-14")
	require.NoError(t, err)
	assert.False(t, ok)

	start := time.Date(2025, 3, 14, 4, 0, 0, 0, time.UTC)
	session := &model.AttendanceSession{
		BaseModel:     model.BaseModel{ID: 9001},
		EmployeeID:    42,
		WorkDate:      "2025-03-14",
		Timezone:      "Asia/Kolkata",
		Status:        model.AttendanceStatusPresent,
		StartTime:     &start,
		StartLocation: &model.GeoPoint{Type: model.GeoJSONPoint, Coordinates: [2]float64{77.59, 12.97}},
	}
	require.NoError(t, cache.Set(ctx, session, time.Minute))

	got, ok, err := cache.Get(ctx, 42, "2025-03-14")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(9001), got.ID)
	assert.True(t, got.StartTime.Equal(start))
	assert.Equal(t, model.SessionStateCheckedIn, got.State())

	ttl, err := client.TTL(ctx, "test:attendance:today:42:2025-03-14").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Delete(ctx, 42, "2025-03-14"))
	_, ok, err = cache.Get(ctx, 42, "2025-03-14")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTodayCacheSetIfAbsentKeepsNewerEntry(t *testing.T) {
	client := startRedis(t)
	cache := NewTodayCache(client, "test")
	ctx := context.Background()

	start := time.Date(2025, 3, 14, 4, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	checkedIn := &model.AttendanceSession{
		BaseModel:  model.BaseModel{ID: 9001},
		EmployeeID: 42,
		WorkDate:   "2025-03-14",
		Status:     model.AttendanceStatusPresent,
		StartTime:  &start,
	}
	checkedOut := *checkedIn
	checkedOut.EndTime = &end

	require.NoError(t, cache.Set(ctx, &checkedOut, time.Minute))

	written, err := cache.SetIfAbsent(ctx, checkedIn, time.Minute)
	require.NoError(t, err)
	assert.False(t, written)

	got, ok, err := cache.Get(ctx, 42, "2025-03-14")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.SessionStateCheckedOut, got.State())

	require.NoError(t, cache.Delete(ctx, 42, "2025-03-14"))
	written, err = cache.SetIfAbsent(ctx, checkedIn, time.Minute)
	require.NoError(t, err)
	assert.True(t, written)
}

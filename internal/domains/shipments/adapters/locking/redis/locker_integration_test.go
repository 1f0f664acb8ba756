//go:build integration
// +build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

func setupRedisContainer(t *testing.T) (*goredis.Client, func()) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := goredis.NewClient(&goredis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())

	return client, func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	}
}

func TestOrderLocker_SecondHolderIsBusyUntilRelease(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client, cleanup := setupRedisContainer(t)
	defer cleanup()

	locker := NewOrderLocker(redislock.New(client), WithRetry(2, 20*time.Millisecond))
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "order-1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "order-1")
	require.ErrorIs(t, err, ports.ErrOrderBusy)

	other, err := locker.Acquire(ctx, "order-2")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	again, err := locker.Acquire(ctx, "order-1")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
	require.NoError(t, release(ctx))
}

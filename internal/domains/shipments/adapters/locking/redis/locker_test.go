package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

type fakeLockClient struct {
	err  error
	key  string
	ttl  time.Duration
	opts *redislock.Options
}

func (f *fakeLockClient) Obtain(_ context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error) {
	f.key, f.ttl, f.opts = key, ttl, opt
	return nil, f.err
}

func TestAcquire_NotObtainedMapsToOrderBusy(t *testing.T) {
	client := &fakeLockClient{err: redislock.ErrNotObtained}
	locker := newOrderLocker(client, WithTTL(10*time.Second), WithRetry(3, 50*time.Millisecond))

	_, err := locker.Acquire(context.Background(), "order-7")
	require.ErrorIs(t, err, ports.ErrOrderBusy)
	require.Equal(t, "shipments:order:order-7", client.key)
	require.Equal(t, 10*time.Second, client.ttl)
	require.NotNil(t, client.opts.RetryStrategy)
}

func TestAcquire_TransportErrorIsNotBusy(t *testing.T) {
	locker := newOrderLocker(&fakeLockClient{err: errors.New("connection refused")})
	_, err := locker.Acquire(context.Background(), "order-7")
	require.Error(t, err)
	require.NotErrorIs(t, err, ports.ErrOrderBusy)
}

func TestAcquire_Unconfigured(t *testing.T) {
	var locker *OrderLocker
	_, err := locker.Acquire(context.Background(), "order-7")
	require.Error(t, err)
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

const (
	defaultTTL        = 30 * time.Second
	defaultRetryDelay = 100 * time.Millisecond
	defaultRetries    = 20
	keyPrefix         = "shipments:order:"
)

type lockClient interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

var _ ports.OrderLocker = (*OrderLocker)(nil)

// OrderLocker serializes shipments of one order across API replicas with a Redis lock.
type OrderLocker struct {
	client  lockClient
	ttl     time.Duration
	retries int
	delay   time.Duration
}

// Option configures the locker.
type Option func(*OrderLocker)

// WithTTL bounds how long a crashed holder can block the order.
func WithTTL(ttl time.Duration) Option {
	return func(l *OrderLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithRetry sets the linear retry schedule used while the lock is held elsewhere.
func WithRetry(retries int, delay time.Duration) Option {
	return func(l *OrderLocker) {
		if retries >= 0 {
			l.retries = retries
		}
		if delay > 0 {
			l.delay = delay
		}
	}
}

// NewOrderLocker wraps a redislock client.
func NewOrderLocker(client *redislock.Client, opts ...Option) *OrderLocker {
	return newOrderLocker(client, opts...)
}

func newOrderLocker(client lockClient, opts ...Option) *OrderLocker {
	l := &OrderLocker{client: client, ttl: defaultTTL, retries: defaultRetries, delay: defaultRetryDelay}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Acquire obtains the order lock or returns ports.ErrOrderBusy once retries are exhausted.
func (l *OrderLocker) Acquire(ctx context.Context, orderID string) (func(context.Context) error, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("redis order locker not configured")
	}
	lock, err := l.client.Obtain(ctx, Key(orderID), l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.delay), l.retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ports.ErrOrderBusy, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain order lock: %w", err)
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}

// Key is the Redis key guarding an order.
func Key(orderID string) string {
	return keyPrefix + orderID
}

package redis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"
)

// Connect dials Redis and verifies connectivity with a PING.
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		PoolSize: 100,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// LockerFromEnv builds a redislock client from REDIS_ADDRESS.
// When the variable is missing or Redis is unreachable it logs and returns nil with a no-op cleanup.
func LockerFromEnv(ctx context.Context, logger *slog.Logger) (*redislock.Client, func()) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
	if addr == "" {
		if logger != nil {
			logger.Info("REDIS_ADDRESS not set, order locks rely on the database only")
		}
		return nil, func() {}
	}
	client, err := Connect(ctx, addr)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to connect to redis, order locks rely on the database only",
				slog.String("redis.addr", addr), slog.String("error", err.Error()))
		}
		return nil, func() {}
	}
	if logger != nil {
		logger.Info("redis connection established", slog.String("redis.addr", addr))
	}
	return redislock.New(client), func() { _ = client.Close() }
}

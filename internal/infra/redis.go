package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis only backs the view cache, and every cache call sits behind a circuit
// breaker. Timeouts are short so a dead server opens the breaker within a few
// requests instead of holding each one for the go-redis defaults.
const (
	cacheDialTimeout = 500 * time.Millisecond
	cacheIOTimeout   = 200 * time.Millisecond
	cachePingTimeout = 2 * time.Second
)

// NewRedis parses redisURL, applies the cache timeouts and pings the server once.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	applyCacheTimeouts(opts)

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cachePingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

func applyCacheTimeouts(opts *redis.Options) {
	opts.DialTimeout = cacheDialTimeout
	opts.ReadTimeout = cacheIOTimeout
	opts.WriteTimeout = cacheIOTimeout
	opts.MaxRetries = 1
}

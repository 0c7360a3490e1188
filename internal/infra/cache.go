package infra

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ViewCache is a Redis read-through cache for the allocation views.
// Every call goes through the circuit breaker: once Redis keeps failing, reads
// turn into misses and writes are skipped until the breaker closes again.
// A nil client makes every call a no-op.
//
// Generation counters live under "<scope>:gen". They outlive every view key
// (genTTL > ttl, refreshed on read and bump), so a counter only resets once
// nothing written under an older generation can still be alive.
type ViewCache struct {
	rdb    *redis.Client
	cb     *CircuitBreaker
	ttl    time.Duration
	genTTL time.Duration
}

func NewViewCache(rdb *redis.Client, cb *CircuitBreaker, ttl time.Duration) *ViewCache {
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	genTTL := 24 * time.Hour
	if genTTL < 2*ttl {
		genTTL = 2 * ttl
	}
	return &ViewCache{rdb: rdb, cb: cb, ttl: ttl, genTTL: genTTL}
}

func genKey(scope string) string { return scope + ":gen" }

// Breaker exposes the breaker state for the health endpoint.
func (c *ViewCache) Breaker() *CircuitBreaker { return c.cb }

// Get decodes the cached value of key into dst and reports whether it was found.
func (c *ViewCache) Get(ctx context.Context, key string, dst any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	var raw []byte
	err := c.cb.Execute(func() error {
		b, err := c.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			raw = nil
			return nil
		}
		raw = b
		return err
	})
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache get failed")
		return false
	}
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache entry undecodable, dropping")
		c.Delete(ctx, key)
		return false
	}
	return true
}

// Set stores v under key with the configured TTL. Best effort.
func (c *ViewCache) Set(ctx context.Context, key string, v any) {
	if c == nil || c.rdb == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cb.Execute(func() error {
		return c.rdb.Set(ctx, key, b, c.ttl).Err()
	}); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Delete removes keys outright. Used for entries that no longer decode.
func (c *ViewCache) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.cb.Execute(func() error {
		return c.rdb.Del(ctx, keys...).Err()
	}); err != nil {
		log.Debug().Err(err).Strs("keys", keys).Msg("cache delete failed")
	}
}

// Generation returns the current generation of scope, 0 when it was never
// bumped. It reports false when Redis is unavailable.
func (c *ViewCache) Generation(ctx context.Context, scope string) (int64, bool) {
	if c == nil || c.rdb == nil {
		return 0, false
	}
	var gen int64
	err := c.cb.Execute(func() error {
		n, err := c.rdb.GetEx(ctx, genKey(scope), c.genTTL).Int64()
		if errors.Is(err, redis.Nil) {
			gen = 0
			return nil
		}
		gen = n
		return err
	})
	if err != nil {
		log.Debug().Err(err).Str("scope", scope).Msg("cache generation read failed")
		return 0, false
	}
	return gen, true
}

// Invalidate bumps the generation of every scope in one round trip. A failed
// bump is logged as a warning since readers may see a stale view until the TTL
// expires.
func (c *ViewCache) Invalidate(ctx context.Context, scopes ...string) {
	if c == nil || c.rdb == nil || len(scopes) == 0 {
		return
	}
	if err := c.cb.Execute(func() error {
		_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, scope := range scopes {
				pipe.Incr(ctx, genKey(scope))
				pipe.Expire(ctx, genKey(scope), c.genTTL)
			}
			return nil
		})
		return err
	}); err != nil {
		log.Warn().Err(err).Strs("scopes", scopes).Msg("cache invalidation failed")
	}
}

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ── API rate limiter ─────────────────────────────────────────────────────────
// Fixed window per caller. Authenticated callers are keyed by user so pickers
// sharing one warehouse NAT do not throttle each other; anonymous ones by IP.

type rateEntry struct {
	count     int
	windowEnd time.Time
}

type rateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*rateEntry
	limit     int
	window    time.Duration
	lastPurge time.Time
}

const purgeInterval = 5 * time.Minute

// RateLimiter returns a rate limiter allowing limit requests per window per
// caller. limit <= 0 disables it.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	rl := &rateLimiter{
		entries:   make(map[string]*rateEntry),
		limit:     limit,
		window:    window,
		lastPurge: time.Now(),
	}
	return rl.handle
}

func (rl *rateLimiter) handle(c *gin.Context) {
	key := "ip:" + c.ClientIP()
	if claims := GetClaims(c); claims != nil {
		key = "user:" + claims.UserID
	}

	allowed, retryAt := rl.allow(key, time.Now())
	if !allowed {
		c.Header("Retry-After", retryAt.UTC().Format(http.TimeFormat))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Too many requests, try again shortly"))
		return
	}
	c.Next()
}

func (rl *rateLimiter) allow(key string, now time.Time) (bool, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastPurge) >= purgeInterval {
		rl.purge(now)
	}

	entry, ok := rl.entries[key]
	if !ok || now.After(entry.windowEnd) {
		entry = &rateEntry{windowEnd: now.Add(rl.window)}
		rl.entries[key] = entry
	}
	entry.count++
	return entry.count <= rl.limit, entry.windowEnd
}

// purge drops expired windows (must be called under lock).
func (rl *rateLimiter) purge(now time.Time) {
	purged := 0
	for k, e := range rl.entries {
		if now.After(e.windowEnd) {
			delete(rl.entries, k)
			purged++
		}
	}
	rl.lastPurge = now
	if purged > 0 {
		log.Debug().
			Int("entries_purged", purged).
			Int("entries_remaining", len(rl.entries)).
			Msg("rate limiter purged")
	}
}

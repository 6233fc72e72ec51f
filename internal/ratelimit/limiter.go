package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one quota check.
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetAt   int64 `json:"reset_at"` // epoch milliseconds
}

// Limiter enforces a fixed-window quota per client identity. When a
// Redis client is configured it is the source of truth (and the only
// backing safe across processes); any Redis failure falls open to the
// in-memory store for that single check rather than rejecting the
// request.
type Limiter struct {
	base   int
	window time.Duration
	rdb    *redis.Client
	mem    *memoryStore
}

// New builds a limiter. An empty redisURL selects the in-memory
// backing only; an unparseable URL is logged and treated the same.
func New(redisURL string, base int, window time.Duration) *Limiter {
	l := &Limiter{
		base:   base,
		window: window,
		mem:    newMemoryStore(),
	}

	if redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Printf("invalid redis URL, using in-memory rate limiting: %v", err)
		} else {
			l.rdb = redis.NewClient(opt)
		}
	}
	return l
}

func (l *Limiter) Close() error {
	if l.rdb != nil {
		return l.rdb.Close()
	}
	return nil
}

// quotaFor scales the base quota by plan tier. Paid tiers get 5x the
// base; anything unrecognized is treated as free.
func (l *Limiter) quotaFor(plan string) int {
	switch plan {
	case "pro", "active", "trialing":
		return l.base * 5
	default:
		return l.base
	}
}

// Check consumes one request from the identity's window and reports
// whether it was within quota.
func (l *Limiter) Check(ctx context.Context, identity, plan string) Result {
	limit := l.quotaFor(plan)

	if l.rdb != nil {
		res, err := l.checkRedis(ctx, identity, limit)
		if err == nil {
			return res
		}
		log.Printf("redis rate limit check failed, falling back to memory: %v", err)
	}

	return l.mem.check(identity, limit, l.window)
}

// checkRedis uses the increment-and-expire pattern: the first INCR in
// a window pins the window start by setting the TTL, and the TTL read
// on the rejection path yields the reset time.
func (l *Limiter) checkRedis(ctx context.Context, identity string, limit int) (Result, error) {
	key := "ratelimit:" + identity

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return Result{}, err
		}
	}

	if count > int64(limit) {
		resetAt := time.Now().Add(l.window).UnixMilli()
		if ttl, err := l.rdb.PTTL(ctx, key).Result(); err == nil && ttl > 0 {
			resetAt = time.Now().Add(ttl).UnixMilli()
		}
		return Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt}, nil
	}

	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count),
		ResetAt:   time.Now().Add(l.window).UnixMilli(),
	}, nil
}

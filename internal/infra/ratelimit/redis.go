// Package ratelimit holds the redis client and a fixed-window limiter for
// submission attempts.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns nil when addr is empty or the server does not answer
// a ping; callers disable limiting in that case.
func NewRedisClient(addr, password string, db int, log *slog.Logger) *redis.Client {
	if addr == "" {
		log.Info("REDIS_ADDR not set, rate limiting disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, rate limiting disabled", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Limiter allows Limit hits per key per Window.
type Limiter struct {
	rdb    redis.Cmdable
	Limit  int
	Window time.Duration
	Prefix string
}

func NewLimiter(rdb redis.Cmdable, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, Limit: limit, Window: window, Prefix: "rl:submit:"}
}

// Allow records one hit for key. It returns the hits left in the window and,
// when blocked, how long until the window resets. A disabled limiter always
// allows.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, int, time.Duration, error) {
	if l == nil || l.rdb == nil || l.Limit <= 0 {
		return true, -1, 0, nil
	}
	k := l.Prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.ExpireNX(ctx, k, l.Window)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return true, -1, 0, err
	}

	n := int(incr.Val())
	if n > l.Limit {
		retry := ttl.Val()
		if retry <= 0 {
			retry = l.Window
		}
		return false, 0, retry, nil
	}
	return true, l.Limit - n, 0, nil
}

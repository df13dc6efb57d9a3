package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript increments the counter and starts the window on the first hit.
// It returns {count, pttl}.
var incrScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return { count, ttl }
`)

// Redis is a limiter whose counters live in Redis so every instance sees
// the same attempts.
type Redis struct {
	rdb    redis.Scripter
	del    func(ctx context.Context, key string) error
	prefix string
	max    int
	window time.Duration
	now    func() time.Time
}

func NewRedis(rdb *redis.Client, prefix string, max int, w time.Duration) *Redis {
	if max < 1 {
		max = 1
	}
	return &Redis{
		rdb:    rdb,
		del:    func(ctx context.Context, key string) error { return rdb.Del(ctx, key).Err() },
		prefix: prefix,
		max:    max,
		window: w,
		now:    time.Now,
	}
}

func (r *Redis) Max() int { return r.max }

func (r *Redis) key(k string) string { return r.prefix + ":" + k }

func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	vals, err := incrScript.Run(ctx, r.rdb, []string{r.key(key)}, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("ratelimit: unexpected script result %v", vals)
	}
	count, ttl := int(vals[0]), time.Duration(vals[1])*time.Millisecond
	res := Result{
		Allowed:   count <= r.max,
		Remaining: r.max - count,
		ResetAt:   r.now().Add(ttl),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	return res, nil
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	return r.del(ctx, r.key(key))
}

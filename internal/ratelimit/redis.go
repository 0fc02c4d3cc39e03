package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// INCR + PEXPIRE on first hit; returns 1 while the window has budget.
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RedisLimiter is a fixed window counter shared by every bot replica.
// Keys are actor ids under a purpose prefix (telegram:inbound:<actor_id>),
// so one chatty actor never spends the budget of another. Redis failures
// fail open: losing the limiter must not take the bot down with it.
type RedisLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
	script *redis.Script
}

func NewRedisLimiter(client redis.Scripter, limit int, window time.Duration, prefix string) *RedisLimiter {
	if client == nil {
		return nil
	}
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
		script: redis.NewScript(fixedWindowScript),
	}
}

func (l *RedisLimiter) key(actor string) string {
	if l.prefix == "" {
		return actor
	}
	return l.prefix + ":" + actor
}

// Allow spends one unit of the actor's budget for the current window.
func (l *RedisLimiter) Allow(actor string) bool {
	if l == nil || actor == "" || l.limit <= 0 || l.window <= 0 {
		return true
	}
	windowMillis := max(l.window.Milliseconds(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{l.key(actor)}, windowMillis, l.limit).Int64()
	if err != nil {
		return true
	}
	return allowed == 1
}

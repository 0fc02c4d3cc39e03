package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter admits or rejects one unit of work for a key.
type Limiter interface {
	Allow(key string) bool
}

type NoopLimiter struct{}

func (NoopLimiter) Allow(string) bool { return true }

// New returns a redis backed limiter when a client is available, an
// in-process one otherwise, and a no-op limiter for a non-positive limit.
func New(client redis.Scripter, limit int, window time.Duration, prefix string) Limiter {
	if limit <= 0 || window <= 0 {
		return NoopLimiter{}
	}
	if client != nil {
		return NewRedisLimiter(client, limit, window, prefix)
	}
	return NewMemoryLimiter(limit, window)
}

// MemoryLimiter keeps a token bucket per key and evicts idle buckets.
type MemoryLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu    sync.Mutex
	byKey map[string]*bucket
	hits  uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter allows limit events per window with a burst of limit.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	return &MemoryLimiter{
		limit:   rate.Limit(float64(limit) / window.Seconds()),
		burst:   limit,
		idleTTL: 10 * window,
		now:     time.Now,
		byKey:   make(map[string]*bucket),
	}
}

func (l *MemoryLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byKey[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}
	return allowed
}

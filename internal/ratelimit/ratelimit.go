package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultLimit  = 25
	DefaultWindow = time.Hour
	windowLayout  = "2006010215"
)

// Counter increments a windowed key and returns the new count. ttl is applied
// when the key is first created.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	Limit      int
}

// Limiter is a fixed-window counter keyed by client and hour.
type Limiter struct {
	counter Counter
	scope   string
	limit   int
	now     func() time.Time
}

func NewLimiter(counter Counter, scope string, limit int) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Limiter{counter: counter, scope: scope, limit: limit, now: time.Now}
}

func (l *Limiter) Limit() int { return l.limit }

func (l *Limiter) Key(clientID string, at time.Time) string {
	return fmt.Sprintf("rl:%s:%s:%s", l.scope, clientID, at.UTC().Format(windowLayout))
}

func (l *Limiter) Allow(ctx context.Context, clientID string) (Result, error) {
	now := l.now().UTC()
	windowStart := now.Truncate(DefaultWindow)
	retryAfter := windowStart.Add(DefaultWindow).Sub(now)

	count, err := l.counter.Incr(ctx, l.Key(clientID, now), 2*DefaultWindow)
	if err != nil {
		err = fmt.Errorf("rate limit counter: %w", err)
		if count <= 0 {
			return Result{Allowed: true, Remaining: l.limit, Limit: l.limit}, err
		}
	}
	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:    count <= int64(l.limit),
		Remaining:  remaining,
		RetryAfter: retryAfter,
		Limit:      l.limit,
	}, err
}

type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr runs INCR and EXPIRE NX in one transaction, so a key that missed its
// TTL gets one on the next hit and an existing TTL is never extended. An
// EXPIRE failure is returned alongside the valid count.
func (c *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	var expire *redis.BoolCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		expire = pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if incr == nil || incr.Err() != nil {
		if incr != nil {
			err = incr.Err()
		}
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if err := expire.Err(); err != nil {
		return incr.Val(), fmt.Errorf("expire %s: %w", key, err)
	}
	return incr.Val(), nil
}

// MemoryCounter is a process-local Counter for single-instance deployments.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	count   int64
	expires time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || now.After(e.expires) {
		e = memoryEntry{expires: now.Add(ttl)}
	}
	e.count++
	c.entries[key] = e
	c.sweep(now)
	return e.count, nil
}

func (c *MemoryCounter) sweep(now time.Time) {
	if len(c.entries) < 1024 {
		return
	}
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
}

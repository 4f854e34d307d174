package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/deepgram/voxchat/pkg/logger"
)

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// MemoryLimiter keeps one token bucket per key in process memory. Each bucket
// holds maxHits tokens and refills over window.
type MemoryLimiter struct {
	mu      sync.Mutex
	limits  map[string]*rate.Limiter
	every   rate.Limit
	maxHits int
}

func NewLimiter(window time.Duration, maxHits int) *MemoryLimiter {
	if maxHits < 1 {
		maxHits = 1
	}
	return &MemoryLimiter{
		limits:  make(map[string]*rate.Limiter),
		every:   rate.Every(window / time.Duration(maxHits)),
		maxHits: maxHits,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	limiter, exists := l.limits[key]
	if !exists {
		limiter = rate.NewLimiter(l.every, l.maxHits)
		l.limits[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// Counter counts hits per key in fixed windows shared across processes
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// CounterLimiter allows maxHits per key per fixed window using a shared
// counter. When the counter fails, the decision is delegated to fallback.
type CounterLimiter struct {
	counter  Counter
	fallback Limiter
	prefix   string
	window   time.Duration
	maxHits  int
}

func NewCounterLimiter(counter Counter, fallback Limiter, prefix string, window time.Duration, maxHits int) *CounterLimiter {
	return &CounterLimiter{
		counter:  counter,
		fallback: fallback,
		prefix:   prefix,
		window:   window,
		maxHits:  maxHits,
	}
}

func (l *CounterLimiter) Allow(ctx context.Context, key string) bool {
	hits, err := l.counter.Hit(ctx, l.prefix+key, l.window)
	if err != nil {
		logger.Warn(logger.MIDDLEWARE, "Rate limit counter unavailable, using in-memory limit: %v", err)
		return l.fallback.Allow(ctx, key)
	}
	return hits <= int64(l.maxHits)
}

package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Limit configures the per-client rate limiter. Burst is the bucket capacity;
// zero means same as PerMinute.
type Limit struct {
	PerMinute int
	Burst     int
}

// Buckets idle longer than bucketIdleMax are dropped during a sweep so the
// per-IP map does not grow without bound.
const (
	sweepEvery    = 5 * time.Minute
	bucketIdleMax = 10 * time.Minute
)

// RateLimiter enforces a token bucket per client IP.
type RateLimiter struct {
	limit     Limit
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a limiter from config.
func NewRateLimiter(limit Limit) *RateLimiter {
	if limit.PerMinute <= 0 {
		limit.PerMinute = 60
	}
	if limit.Burst <= 0 {
		limit.Burst = limit.PerMinute
	}
	return &RateLimiter{
		limit:     limit,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Middleware returns the gin handler enforcing the limit per client IP.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if key == "" {
			key = "unknown"
		}
		if !l.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests",
			})
			return
		}
		c.Next()
	}
}

// Allow consumes one token for the key, refilling at PerMinute up to Burst.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > sweepEvery {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.limit.Burst), last: now}
		l.buckets[key] = b
	}
	b.tokens += now.Sub(b.last).Minutes() * float64(l.limit.PerMinute)
	if b.tokens > float64(l.limit.Burst) {
		b.tokens = float64(l.limit.Burst)
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *RateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.last) > bucketIdleMax {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

package middleware

import (
	"math"
	"sync"
	"time"

	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const minLimiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter hands out one token bucket per key. Buckets idle long
// enough to have refilled are dropped, so the map stays bounded by the set of
// recently active keys.
type KeyedRateLimiter struct {
	limiters  map[string]*limiterEntry
	mu        sync.Mutex
	r         rate.Limit // requests per second
	b         int        // burst
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters:  make(map[string]*limiterEntry),
		r:         r,
		b:         b,
		idleTTL:   limiterIdleTTL(r, b),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// limiterIdleTTL is at least the time an empty bucket takes to refill.
func limiterIdleTTL(r rate.Limit, b int) time.Duration {
	if r <= 0 || r == rate.Inf {
		return minLimiterIdleTTL
	}
	refill := float64(b) / float64(r) * float64(time.Second)
	if refill >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	if d := time.Duration(refill); d > minLimiterIdleTTL {
		return d
	}
	return minLimiterIdleTTL
}

func (l *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}

	entry, exists := l.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter
}

func (l *KeyedRateLimiter) sweep(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// Len reports how many keys currently hold a bucket.
func (l *KeyedRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func RateLimitByIP(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewKeyedRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}

func tooManyRequests(c *gin.Context) {
	errObj := apperror.ErrTooManyRequests
	response.Error(c, errObj.HTTPStatus, errObj.Code, errObj.Message, nil)
	c.Abort()
}

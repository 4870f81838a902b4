package middleware

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestKeyedRateLimiter_EvictsIdleKeys(t *testing.T) {
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	l := NewKeyedRateLimiter(rate.Limit(10), 5)
	l.now = func() time.Time { return now }
	l.lastSweep = now

	for i := 0; i < 100; i++ {
		l.GetLimiter(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Equal(t, 100, l.Len())

	now = now.Add(minLimiterIdleTTL / 2)
	active := l.GetLimiter("10.0.0.1")

	now = now.Add(minLimiterIdleTTL / 2)
	assert.Same(t, active, l.GetLimiter("10.0.0.1"))
	assert.Equal(t, 1, l.Len())
}

func TestLimiterIdleTTL(t *testing.T) {
	assert.Equal(t, minLimiterIdleTTL, limiterIdleTTL(rate.Limit(10), 20))
	assert.Equal(t, 2000*time.Second, limiterIdleTTL(rate.Limit(0.5), 1000))
	assert.Equal(t, minLimiterIdleTTL, limiterIdleTTL(rate.Inf, 1))
}

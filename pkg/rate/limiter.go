package rate

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter limits operations per key, such as a fee payer address.
type Limiter interface {
	Allow(key string) bool
}

type localLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLocalLimiter returns an in memory limiter allowing perSecond operations
// per key, with bursts of up to burst operations. A non-positive perSecond
// disables limiting.
func NewLocalLimiter(perSecond float64, burst int) Limiter {
	if perSecond <= 0 {
		return NoLimiter{}
	}
	if burst < 1 {
		burst = 1
	}

	return &localLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *localLimiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// NoLimiter never limits operations
type NoLimiter struct{}

func (NoLimiter) Allow(string) bool {
	return true
}

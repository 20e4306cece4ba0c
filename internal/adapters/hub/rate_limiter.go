package hub

import (
	"sync"

	"github.com/dkeye/voicecall/internal/domain"
	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket per user over call events.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[domain.UserID]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[domain.UserID]*rate.Limiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

func (rl *RateLimiter) Allow(uid domain.UserID) bool {
	rl.mu.Lock()
	b, ok := rl.buckets[uid]
	if !ok {
		b = rate.NewLimiter(rl.limit, rl.burst)
		rl.buckets[uid] = b
	}
	rl.mu.Unlock()
	return b.Allow()
}


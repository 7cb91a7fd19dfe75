package processor

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrThrottled is returned when an instance receives submissions faster than
// the configured rate. Nothing is evaluated or recorded.
var ErrThrottled = errors.New("processor: submission rate exceeded")

// idleAfter is how long an instance limiter may go unused before it is
// dropped.
const idleAfter = 3 * time.Minute

// instanceLimiter keeps one token bucket per instance.
type instanceLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket
	now     func() time.Time
	swept   time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newInstanceLimiter(perSecond float64, burst int) *instanceLimiter {
	if burst < 1 {
		burst = 1
	}
	return &instanceLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// allow takes a token for id. Idle buckets are swept at most once per
// idleAfter.
func (l *instanceLimiter) allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.swept) > idleAfter {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > idleAfter {
				delete(l.buckets, k)
			}
		}
		l.swept = now
	}

	b, ok := l.buckets[id]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[id] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (l *instanceLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

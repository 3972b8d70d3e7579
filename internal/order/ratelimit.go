package order

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxLimiterKeys bounds the number of tracked order ids.
const maxLimiterKeys = 10000

// keyedLimiter throttles redemption attempts per order id. Idle entries are
// swept periodically, and when the map is full every entry whose bucket has
// refilled is dropped, since a fresh limiter behaves the same.
type keyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	lastGC   time.Time
	maxKeys  int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newKeyedLimiter(perSecond float64, burst int) *keyedLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &keyedLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		idle:     10 * time.Minute,
		lastGC:   time.Now(),
		maxKeys:  maxLimiterKeys,
	}
}

func (k *keyedLimiter) Allow(key string) bool {
	if k.limit == rate.Inf {
		return true
	}
	now := time.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	if now.Sub(k.lastGC) > k.idle {
		for key, entry := range k.limiters {
			if now.Sub(entry.lastSeen) > k.idle {
				delete(k.limiters, key)
			}
		}
		k.lastGC = now
	}

	entry, ok := k.limiters[key]
	if !ok {
		if len(k.limiters) >= k.maxKeys {
			k.pruneFull(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (k *keyedLimiter) pruneFull(now time.Time) {
	for key, entry := range k.limiters {
		if entry.limiter.TokensAt(now) >= float64(k.burst) {
			delete(k.limiters, key)
		}
	}
}

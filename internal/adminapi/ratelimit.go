package adminapi

import (
	"sync"
	"time"

	"github.com/rtxbroker/fixcore/config"
)

// endpointLimiter holds one token bucket per named admin endpoint, the
// same per-key bucket-map shape as the teacher's
// notifications.RateLimiter, but refilling continuously by rate rather
// than counting requests in sliding per-minute/hour/day windows — a
// better fit for an admin console than notification-channel quotas.
type endpointLimiter struct {
	cfg      config.RateLimitConfig
	mu       sync.Mutex
	buckets  map[string]*tokenBucket
	fallback *tokenBucket
}

type tokenBucket struct {
	rate     float64 // tokens added per second
	burst    float64 // bucket capacity
	tokens   float64
	lastFill time.Time
}

func newTokenBucket(ratePerSecond float64, burst int) *tokenBucket {
	if burst <= 0 {
		burst = 1
	}
	return &tokenBucket{rate: ratePerSecond, burst: float64(burst), tokens: float64(burst), lastFill: time.Now()}
}

func (b *tokenBucket) allow() bool {
	now := time.Now()
	elapsed := now.Sub(b.lastFill).Seconds()
	b.lastFill = now
	b.tokens += elapsed * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func newEndpointLimiter(cfg config.RateLimitConfig) *endpointLimiter {
	l := &endpointLimiter{
		cfg:      cfg,
		buckets:  make(map[string]*tokenBucket),
		fallback: newTokenBucket(cfg.RequestsPerSecond, cfg.BurstSize),
	}
	for name, e := range cfg.Endpoints {
		l.buckets[name] = newTokenBucket(e.RequestsPerSecond, e.BurstSize)
	}
	return l
}

// Allow reports whether a request against endpoint may proceed,
// consuming a token if so.
func (l *endpointLimiter) Allow(endpoint string) bool {
	if !l.cfg.Enabled {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[endpoint]; ok {
		return b.allow()
	}
	return l.fallback.allow()
}

package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/DocScanAPI/internal/config"
	"golang.org/x/time/rate"
)

var limiterInstance = NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type IPRateLimiter struct {
	ips       map[string]*visitor
	mu        sync.Mutex
	rateLimit rate.Limit
	burstRate int
	now       func() time.Time
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{ips: make(map[string]*visitor), rateLimit: r, burstRate: b, now: time.Now}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, exists := i.ips[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(i.rateLimit, i.burstRate)}
		i.ips[ip] = v
	}
	v.lastSeen = i.now()
	return v.limiter
}

// Sweep forgets addresses not seen for idle and returns how many were dropped.
func (i *IPRateLimiter) Sweep(idle time.Duration) int {
	cutoff := i.now().Add(-idle)
	i.mu.Lock()
	defer i.mu.Unlock()
	dropped := 0
	for ip, v := range i.ips {
		if v.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
			dropped++
		}
	}
	return dropped
}

// RunLimiterSweep keeps the shared limiter table bounded until ctx is done.
func RunLimiterSweep(ctx context.Context) {
	ticker := time.NewTicker(config.RateLimiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiterInstance.Sweep(config.RateLimiterIdleTTL)
		}
	}
}

//TODO: when the users grow
// I must offload this key-value to redis

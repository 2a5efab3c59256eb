package infrastructure

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SendPacer spaces outbound sends per key (one client's broadcast). Each key
// gets a token bucket refilled once per interval with a burst of one.
type SendPacer struct {
	mu       sync.Mutex
	limiters map[string]*pacedLimiter
	interval time.Duration
	idleTTL  time.Duration
}

type pacedLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

func NewSendPacer(interval time.Duration) *SendPacer {
	return &SendPacer{
		limiters: make(map[string]*pacedLimiter),
		interval: interval,
		idleTTL:  10 * time.Minute,
	}
}

func (p *SendPacer) limiter(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	l, ok := p.limiters[key]
	if !ok {
		limit := rate.Inf
		if p.interval > 0 {
			limit = rate.Every(p.interval)
		}
		l = &pacedLimiter{limiter: rate.NewLimiter(limit, 1)}
		p.limiters[key] = l
	}
	l.lastUsed = now

	// Drop limiters nobody used for a while.
	for k, other := range p.limiters {
		if now.Sub(other.lastUsed) > p.idleTTL {
			delete(p.limiters, k)
		}
	}
	return l.limiter
}

// Wait blocks until key may send again or ctx is done.
func (p *SendPacer) Wait(ctx context.Context, key string) error {
	return p.limiter(key).Wait(ctx)
}

// Active returns the number of tracked keys.
func (p *SendPacer) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}

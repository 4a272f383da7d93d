// Package ratelimit keeps one token bucket per client key.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds the rate limiting settings.
type Config struct {
	Requests  int           // Max requests per duration
	Burst     int           // Burst size, Requests when not positive
	Duration  time.Duration // Duration window (e.g., 1 minute)
	ExpiresIn time.Duration // Visitor entry expiration
}

// DefaultConfig returns 100 requests per second with a matching burst and
// one hour of visitor retention.
func DefaultConfig() Config {
	return Config{
		Requests:  100,
		Burst:     100,
		Duration:  time.Second,
		ExpiresIn: time.Hour,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Requests <= 0 {
		c.Requests = def.Requests
	}
	if c.Duration <= 0 {
		c.Duration = def.Duration
	}
	if c.Burst <= 0 {
		c.Burst = c.Requests
	}
	if c.ExpiresIn <= 0 {
		c.ExpiresIn = def.ExpiresIn
	}
	return c
}

// visitor is a client with its bucket and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks visitors by key.
type Limiter struct {
	cfg      Config
	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

// New creates a Limiter. Zero fields of cfg take their defaults.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:      cfg.withDefaults(),
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Config returns the effective configuration.
func (l *Limiter) Config() Config { return l.cfg }

// newBucket spaces tokens Duration/Requests apart.
func (l *Limiter) newBucket() *rate.Limiter {
	interval := l.cfg.Duration / time.Duration(l.cfg.Requests)
	return rate.NewLimiter(rate.Every(interval), l.cfg.Burst)
}

// Allow takes a token from key's bucket. When none is available it returns
// false and how long the client should wait before retrying.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: l.newBucket()}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, l.cfg.Duration
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Len returns the number of tracked visitors.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Cleanup removes visitors not seen within ExpiresIn and returns how many
// were removed.
func (l *Limiter) Cleanup() int {
	cutoff := l.now().Add(-l.cfg.ExpiresIn)
	removed := 0

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup periodically until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	// Use a shorter cleanup interval for short expiration times
	interval := time.Minute
	if l.cfg.ExpiresIn < time.Minute {
		interval = l.cfg.ExpiresIn / 2
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

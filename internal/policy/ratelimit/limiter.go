// Package ratelimit implements a per-domain token bucket so bulk jobs never hammer one site.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/leadhunter-enricher/internal/metrics"
)

// DefaultMaxDomains caps the number of buckets held when Config.MaxDomains is unset.
const DefaultMaxDomains = 10000

// Limiter manages per-domain rate limits. Buckets live in an LRU so a long
// stream of distinct websites evicts the least recently used domains.
type Limiter struct {
	mu           sync.Mutex
	limiters     *lru.Cache[string, *rate.Limiter]
	defaultRate  rate.Limit
	defaultBurst int
}

// Config holds rate limiter configuration. A non-positive DefaultRPS disables limiting.
type Config struct {
	DefaultRPS   float64
	DefaultBurst int
	// MaxDomains bounds how many domain buckets are retained.
	MaxDomains   int
}

// New creates a new Limiter.
func New(cfg Config) (*Limiter, error) {
	r := rate.Limit(cfg.DefaultRPS)
	if cfg.DefaultRPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.DefaultBurst
	if burst <= 0 {
		burst = 1
	}
	size := cfg.MaxDomains
	if size <= 0 {
		size = DefaultMaxDomains
	}
	cache, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, fmt.Errorf("create limiter cache: %w", err)
	}
	return &Limiter{
		limiters:     cache,
		defaultRate:  r,
		defaultBurst: burst,
	}, nil
}

// Wait blocks until a token is available for the website's domain, respecting the context.
// Scheme-less websites are accepted.
func (l *Limiter) Wait(ctx context.Context, website string) error {
	domain := metrics.SanitizeSite(website)
	limiter := l.limiterFor(domain)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(waited)
	}
	return nil
}

// Domains reports how many distinct domains currently hold a bucket.
func (l *Limiter) Domains() int {
	return l.limiters.Len()
}

func (l *Limiter) limiterFor(domain string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters.Get(domain); ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters.Add(domain, limiter)
	return limiter
}

package gonote

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by all translation requests sent to
// one backend.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	burst      float64
	perSecond  float64
	lastRefill time.Time
	now        func() time.Time
}

// RateLimitConfig configures a RateLimiter. Zero values fall back to 30
// requests per minute with a burst of 5.
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// RateLimitConfigFor returns the request budget used for a backend.
// Self-hosted LibreTranslate gets the loosest budget; OpenAI the tightest.
func RateLimitConfigFor(service TranslationService) RateLimitConfig {
	switch service {
	case ServiceLibreTranslate:
		return RateLimitConfig{RequestsPerMinute: 60, BurstSize: 10}
	case ServiceOpenAI:
		return RateLimitConfig{RequestsPerMinute: 20, BurstSize: 3}
	default:
		return RateLimitConfig{RequestsPerMinute: 30, BurstSize: 5}
	}
}

// NewRateLimiter creates a limiter that starts with a full bucket.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return newRateLimiter(cfg, time.Now)
}

func newRateLimiter(cfg RateLimitConfig, now func() time.Time) *RateLimiter {
	rpm := float64(cfg.RequestsPerMinute)
	if rpm <= 0 {
		rpm = 30
	}
	burst := float64(cfg.BurstSize)
	if burst <= 0 {
		burst = 5
	}

	return &RateLimiter{
		tokens:     burst,
		burst:      burst,
		perSecond:  rpm / 60,
		lastRefill: now(),
		now:        now,
	}
}

// Wait blocks until a token is taken or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		delay, ok := r.take()
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire takes a token if one is available.
func (r *RateLimiter) TryAcquire() bool {
	_, ok := r.take()
	return ok
}

// take removes a token, or reports how long until one is available.
func (r *RateLimiter) take() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		return 0, true
	}

	missing := 1 - r.tokens
	return time.Duration(missing / r.perSecond * float64(time.Second)), false
}

// refill must be called with mu held.
func (r *RateLimiter) refill() {
	now := r.now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now

	r.tokens += elapsed * r.perSecond
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
}

// Available returns the current number of tokens.
func (r *RateLimiter) Available() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	return r.tokens
}

// RateLimitedProvider throttles a Provider with a RateLimiter.
type RateLimitedProvider struct {
	provider Provider
	limiter  *RateLimiter
}

// NewRateLimitedProvider wraps provider with a limiter built from cfg.
func NewRateLimitedProvider(provider Provider, cfg RateLimitConfig) *RateLimitedProvider {
	return &RateLimitedProvider{provider: provider, limiter: NewRateLimiter(cfg)}
}

// Translate waits for a token, then forwards the request. A request whose
// context ends while queued never reaches the backend.
func (p *RateLimitedProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", &ProviderError{
			Provider: "ratelimit",
			Message:  "cancelled while waiting for a request slot",
			Cause:    err,
		}
	}
	return p.provider.Translate(ctx, req)
}

// Limiter returns the underlying limiter.
func (p *RateLimitedProvider) Limiter() *RateLimiter {
	return p.limiter
}

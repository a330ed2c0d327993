package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vpr16/jobminer/internal/model"
)

// HostLimiter enforces a minimum delay between requests to the same host.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter // key: hostname
	minDelay time.Duration
}

// NewHostLimiter creates a limiter allowing one request per minDelay per host.
func NewHostLimiter(minDelay time.Duration) *HostLimiter {
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		minDelay: minDelay,
	}
}

func (h *HostLimiter) limiterFor(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	if lim, ok := h.limiters[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Every(h.minDelay), 1)
	h.limiters[host] = lim
	return lim
}

// Wait blocks until a request to rawURL's host is allowed.
// Returns an error if the context is cancelled while waiting.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	host := "_"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	if err := h.limiterFor(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", host, err)
	}
	return nil
}

// RateLimitedFetcher is a decorator that enforces host-level rate limiting
// before delegating to the wrapped DescriptionFetcher.
type RateLimitedFetcher struct {
	inner   model.DescriptionFetcher
	limiter *HostLimiter
}

// NewRateLimitedFetcher wraps a DescriptionFetcher with host-level rate limiting.
func NewRateLimitedFetcher(inner model.DescriptionFetcher, limiter *HostLimiter) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		inner:   inner,
		limiter: limiter,
	}
}

// FetchDescription waits for the limiter to allow a request, then delegates.
func (f *RateLimitedFetcher) FetchDescription(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx, url); err != nil {
		return "", err
	}
	return f.inner.FetchDescription(ctx, url)
}

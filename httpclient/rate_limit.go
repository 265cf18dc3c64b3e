package httpclient

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures client-side pacing of outgoing attempts.
// Retries draw from the same bucket as first attempts.
type RateLimitConfig struct {
	// RequestsPerSecond is the maximum sustained request rate.
	RequestsPerSecond float64

	// Burst is the maximum number of requests allowed in a burst.
	Burst int

	// WaitOnLimit determines behavior when the bucket is empty.
	// If true, requests wait for a token (respecting context deadline).
	// If false, requests immediately fail with ErrLocalRateLimit.
	WaitOnLimit bool
}

// DefaultRateLimitConfig returns 10 requests per second with a burst of 5,
// waiting for tokens rather than failing.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             5,
		WaitOnLimit:       true,
	}
}

// ErrLocalRateLimit is returned when the client-side limiter rejects a request.
// It is unrelated to 429 answers from the backend, which surface as ErrRateLimited.
var ErrLocalRateLimit = errors.New("client-side rate limit exceeded")

// rateLimitTransport implements http.RoundTripper with rate limiting.
type rateLimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
	wait    bool
}

// newRateLimitTransport creates a rate-limited transport wrapper.
func newRateLimitTransport(next http.RoundTripper, cfg *RateLimitConfig) http.RoundTripper {
	if cfg == nil || cfg.RequestsPerSecond <= 0 {
		return next
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &rateLimitTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		wait:    cfg.WaitOnLimit,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.wait {
		if err := t.limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, ErrLocalRateLimit
		}
	} else if !t.limiter.Allow() {
		return nil, ErrLocalRateLimit
	}

	return t.next.RoundTrip(req)
}

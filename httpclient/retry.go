package httpclient

import (
	"net/http"
	"time"
)

// RetryConfig holds the retry behavior configuration.
// Use DefaultRetryConfig() for the standard schedule, then modify as needed.
//
// Retries are tracked per endpoint rather than per request: the n-th retry
// against an endpoint waits BackoffDelay × 2^n, no matter which logical
// request triggered it. The bookkeeping for an endpoint is cleared when a
// request succeeds, when retries are exhausted, or when its last entry is
// older than StaleAfter.
//
// Example usage:
//
//	cfg := httpclient.DefaultRetryConfig()
//	cfg.BackoffDelay = 250 * time.Millisecond
//	client := httpclient.New(
//	    httpclient.WithRetryConfig(cfg),
//	)
type RetryConfig struct {
	// Enabled turns the retry path on. When false, the first failure is final.
	// Default: true
	Enabled bool

	// MaxAttempts is the number of retries after the initial attempt.
	// Default: 3
	MaxAttempts uint

	// BackoffDelay is the base delay; retry n waits BackoffDelay × 2^n.
	// Default: 1s (1s, 2s, 4s)
	BackoffDelay time.Duration

	// StaleAfter resets an endpoint's retry bookkeeping when its last entry
	// is older than this.
	// Default: 5m
	StaleAfter time.Duration

	// RetryNonIdempotent allows POST and PATCH to be resubmitted.
	// Default: false
	RetryNonIdempotent bool
}

// Default values for RetryConfig.
const (
	DefaultMaxAttempts  = 3
	DefaultBackoffDelay = 1 * time.Second
	DefaultStaleAfter   = 5 * time.Minute
)

// DefaultRetryConfig returns the standard retry schedule: three retries
// after 1s, 2s and 4s, for idempotent methods only.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Enabled:      true,
		MaxAttempts:  DefaultMaxAttempts,
		BackoffDelay: DefaultBackoffDelay,
		StaleAfter:   DefaultStaleAfter,
	}
}

// NoRetryConfig returns configuration that disables retries entirely.
func NoRetryConfig() RetryConfig {
	return RetryConfig{
		StaleAfter: DefaultStaleAfter,
	}
}

// IsEnabled returns true if retries are enabled.
func (c RetryConfig) IsEnabled() bool {
	return c.Enabled && c.MaxAttempts > 0
}

// allows reports whether a request with the given method may be resubmitted.
func (c RetryConfig) allows(method string) bool {
	if !c.IsEnabled() {
		return false
	}
	if c.RetryNonIdempotent {
		return true
	}
	return isIdempotent(method)
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

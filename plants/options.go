package plants

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultAlertTTL is how long an alert list is cached. Alerts change faster
// than the rest of the plant data.
const DefaultAlertTTL = 30 * time.Second

type config struct {
	logger   zerolog.Logger
	fallback Fallback
	alertTTL time.Duration
}

// Option configures a Service.
type Option func(*config)

// WithLogger sets the logger for fallback events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithFallback sets the source of synthetic data used when a read fails.
// Without it, failed reads return only the error.
func WithFallback(f Fallback) Option {
	return func(c *config) {
		c.fallback = f
	}
}

// WithAlertTTL overrides the cache TTL of alert lists.
// Default: 30s
func WithAlertTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.alertTTL = ttl
	}
}

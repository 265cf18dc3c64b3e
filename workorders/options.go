package workorders

import "github.com/rs/zerolog"

type config struct {
	logger   zerolog.Logger
	fallback Fallback
}

// Option configures a Service.
type Option func(*config)

// WithLogger sets the logger for write and fallback events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithFallback sets the source of synthetic data used when a read fails.
func WithFallback(f Fallback) Option {
	return func(c *config) {
		c.fallback = f
	}
}

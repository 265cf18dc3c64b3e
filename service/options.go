package service

import (
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scope = "github.com/kroma-labs/solarops/service"

type config struct {
	logger        zerolog.Logger
	meterProvider metric.MeterProvider
	now           func() time.Time

	cacheEnabled bool
	cacheTTL     time.Duration
	cacheSize    int

	backoffInitial time.Duration
	backoffMax     time.Duration
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		logger:         zerolog.Nop(),
		meterProvider:  otel.GetMeterProvider(),
		now:            time.Now,
		cacheEnabled:   true,
		cacheTTL:       DefaultCacheTTL,
		cacheSize:      DefaultCacheSize,
		backoffInitial: DefaultBackoffInitial,
		backoffMax:     DefaultBackoffMax,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures a Base.
type Option func(*config)

// WithLogger sets the logger for cache, dedup and backoff events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMeterProvider sets the OpenTelemetry MeterProvider.
// If not called, the global provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = mp
	}
}

// WithClock sets the clock used for cache expiry and failure backoff.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithCacheTTL sets the default TTL of cached GET responses.
// Default: 5m
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.cacheTTL = ttl
	}
}

// WithCacheSize bounds the number of cached responses.
// Default: 1000
func WithCacheSize(n int) Option {
	return func(c *config) {
		c.cacheSize = n
	}
}

// WithCacheDisabled turns caching off for every call of the service.
func WithCacheDisabled() Option {
	return func(c *config) {
		c.cacheEnabled = false
	}
}

// WithFailureBackoff sets the first and the largest failure backoff window.
// Default: 30s and 5m
func WithFailureBackoff(initial, ceiling time.Duration) Option {
	return func(c *config) {
		c.backoffInitial = initial
		c.backoffMax = ceiling
	}
}

// callOptions are the per-call settings of Get.
type callOptions struct {
	useCache bool
	ttl      time.Duration
	query    url.Values
}

// CallOption adjusts a single Get.
type CallOption func(*callOptions)

// WithoutCache bypasses the cache for this call: no lookup, no store.
func WithoutCache() CallOption {
	return func(o *callOptions) {
		o.useCache = false
	}
}

// WithTTL overrides the cache TTL for the response of this call.
func WithTTL(ttl time.Duration) CallOption {
	return func(o *callOptions) {
		o.ttl = ttl
	}
}

// WithQuery adds query parameters to the endpoint. They take part in the
// cache and dedup keys.
func WithQuery(q url.Values) CallOption {
	return func(o *callOptions) {
		if o.query == nil {
			o.query = make(url.Values)
		}
		for k, v := range q {
			o.query[k] = append(o.query[k], v...)
		}
	}
}

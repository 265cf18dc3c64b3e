package httpserver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Defaults applied by New.
const (
	DefaultAddr            = ":2112"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultReadTimeout     = 5 * time.Second
)

type namedCheck struct {
	name  string
	check HealthCheck
}

type config struct {
	addr            string
	serviceName     string
	version         string
	logger          zerolog.Logger
	gatherer        prometheus.Gatherer
	readiness       []namedCheck
	status          func() any
	shutdownTimeout time.Duration
	readTimeout     time.Duration
	quietPaths      []string
}

func newConfig(opts ...Option) config {
	cfg := config{
		addr:            DefaultAddr,
		serviceName:     "plantctl",
		version:         "dev",
		logger:          zerolog.Nop(),
		shutdownTimeout: DefaultShutdownTimeout,
		readTimeout:     DefaultReadTimeout,
		quietPaths:      []string{"/livez", "/readyz", "/metrics"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures a Server.
type Option func(*config)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *config) {
		if addr != "" {
			c.addr = addr
		}
	}
}

// WithServiceName sets the service name reported by the health endpoints.
func WithServiceName(name string) Option {
	return func(c *config) {
		c.serviceName = name
	}
}

// WithVersion sets the version reported by the health endpoints.
func WithVersion(version string) Option {
	return func(c *config) {
		c.version = version
	}
}

// WithLogger sets the logger for lifecycle events and access logs.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithGatherer serves g on /metrics. Without it /metrics is not routed.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *config) {
		c.gatherer = g
	}
}

// WithReadinessCheck adds a named check to /readyz.
func WithReadinessCheck(name string, check HealthCheck) Option {
	return func(c *config) {
		c.readiness = append(c.readiness, namedCheck{name: name, check: check})
	}
}

// WithStatus serves the value returned by fn on /status.
func WithStatus(fn func() any) Option {
	return func(c *config) {
		c.status = fn
	}
}

// WithShutdownTimeout bounds the wait for in-flight requests on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// WithQuietPaths replaces the paths that are served without access logs.
func WithQuietPaths(paths ...string) Option {
	return func(c *config) {
		c.quietPaths = paths
	}
}

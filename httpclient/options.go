package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/solarops/httpclient"

	// EnvironmentProduction is the environment name in which the function key
	// header is attached to outgoing requests.
	EnvironmentProduction = "production"
)

// =============================================================================
// Config - HTTP Transport Configuration
// =============================================================================

// Config holds the HTTP transport configuration parameters.
// Use DefaultConfig() to get a properly initialized configuration,
// then modify specific fields as needed.
//
// Example:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.Timeout = 10 * time.Second
//
//	client := httpclient.New(
//	    httpclient.WithConfig(cfg),
//	    httpclient.WithBaseURL("https://api.solarops.example"),
//	)
type Config struct {
	// Timeout bounds a single attempt: connection, request write, and reading
	// the response body. Retries each get a fresh budget. Zero disables it.
	//
	// Default: 30s
	Timeout time.Duration

	// MaxIdleConns controls the maximum number of idle (keep-alive)
	// connections across all hosts combined.
	//
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost controls the maximum idle connections to keep
	// for each host. The backend is usually a single host, so keep this
	// close to MaxIdleConns.
	//
	// Default: 20
	MaxIdleConnsPerHost int

	// MaxConnsPerHost limits the total number of connections (idle + active)
	// per host. Zero means unlimited.
	//
	// Default: 100
	MaxConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool.
	//
	// Default: 90s
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout is the maximum time to wait for a TLS handshake.
	//
	// Default: 10s
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout is the time to wait for response headers
	// after the request is fully written. Zero falls back to Timeout.
	ResponseHeaderTimeout time.Duration

	// DialTimeout is the maximum time to wait for a TCP connection.
	//
	// Default: 5s
	DialTimeout time.Duration

	// KeepAlive specifies the TCP keep-alive interval.
	//
	// Default: 30s
	KeepAlive time.Duration

	// DisableCompression disables the "Accept-Encoding: gzip" header.
	//
	// Default: true
	DisableCompression bool
}

// DefaultConfig returns the transport configuration used by New.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout: 10 * time.Second,

		DialTimeout: 5 * time.Second,
		KeepAlive:   30 * time.Second,

		DisableCompression: true,
	}
}

// =============================================================================
// Internal Configuration
// =============================================================================

// internalConfig holds all configuration including HTTP transport and OTel settings.
type internalConfig struct {
	// HTTP transport configuration
	httpConfig Config

	// BaseURL is prefixed to every request path.
	BaseURL string

	// basePath is the path component of BaseURL, stripped from endpoint keys.
	basePath string

	// === OpenTelemetry Configuration ===

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *metrics

	// ServiceName identifies the HTTP client in traces and breaker names.
	ServiceName string

	// Logger receives retry, breaker and request debug events.
	Logger zerolog.Logger

	// === Resilience ===

	RetryConfig     RetryConfig
	RetryClassifier RetryClassifier
	BreakerConfig   *BreakerConfig
	RateLimit       *RateLimitConfig

	// === Request headers ===

	TokenSource     oauth2.TokenSource
	APIKey          string
	Environment     string
	ClientVersion   string
	ClientPlatform  string
	RequestIDFunc   func() string
	DefaultHeaders  http.Header
	Interceptors    *InterceptorChain
	OnUnauthorized  UnauthorizedHandler
	HeartbeatParams bool

	// === Advanced Settings ===

	TLSConfig *tls.Config

	// baseTransport replaces the network transport, typically with a MockTransport.
	baseTransport http.RoundTripper

	// now is the clock used for heartbeat params and retry bookkeeping.
	now func() time.Time
}

// newConfig creates a new internal config with defaults and applies options.
func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		httpConfig:      DefaultConfig(),
		TracerProvider:  otel.GetTracerProvider(),
		MeterProvider:   otel.GetMeterProvider(),
		Logger:          zerolog.Nop(),
		RetryConfig:     DefaultRetryConfig(),
		Environment:     "development",
		ClientPlatform:  "web",
		RequestIDFunc:   uuid.NewString,
		DefaultHeaders:  make(http.Header),
		Interceptors:    NewInterceptorChain(),
		HeartbeatParams: true,
		now:             time.Now,
	}

	breaker := DefaultBreakerConfig()
	cfg.BreakerConfig = &breaker

	for _, opt := range opts {
		opt(cfg)
	}

	if u, err := url.Parse(cfg.BaseURL); err == nil {
		cfg.basePath = strings.TrimSuffix(u.Path, "/")
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// Metrics stay nil on registration failure; every recorder is nil-safe.
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// buildTransport creates the network transport from the configuration.
func (cfg *internalConfig) buildTransport() http.RoundTripper {
	if cfg.baseTransport != nil {
		return cfg.baseTransport
	}

	hc := cfg.httpConfig

	dialer := &net.Dialer{
		Timeout:   hc.DialTimeout,
		KeepAlive: hc.KeepAlive,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          hc.MaxIdleConns,
		MaxIdleConnsPerHost:   hc.MaxIdleConnsPerHost,
		MaxConnsPerHost:       hc.MaxConnsPerHost,
		IdleConnTimeout:       hc.IdleConnTimeout,
		TLSHandshakeTimeout:   hc.TLSHandshakeTimeout,
		ResponseHeaderTimeout: hc.ResponseHeaderTimeout,
		DisableCompression:    hc.DisableCompression,
		TLSClientConfig:       cfg.TLSConfig,
	}
}

// baseAttributes returns common attributes for all spans and metrics.
func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 1)
	if cfg.ServiceName != "" {
		attrs = append(attrs, attribute.String("http.client.name", cfg.ServiceName))
	}
	return attrs
}

// endpointKey derives the breaker and retry key for a request URL,
// relative to the configured base URL.
func (cfg *internalConfig) endpointKey(u *url.URL) string {
	path := u.Path
	if cfg.basePath != "" {
		path = strings.TrimPrefix(path, cfg.basePath)
	}
	return EndpointKey(path)
}

// =============================================================================
// Options - Functional Options for Client Configuration
// =============================================================================

// Option configures the HTTP client.
type Option func(*internalConfig)

// UnauthorizedHandler is invoked when the backend answers 401. It is the hook
// where applications clear their local session state and send the user back
// to the login screen.
type UnauthorizedHandler func(req *http.Request)

// WithConfig sets the HTTP transport configuration.
func WithConfig(c Config) Option {
	return func(cfg *internalConfig) {
		cfg.httpConfig = c
	}
}

// WithBaseURL sets the backend base URL. Request paths are appended to it.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.solarops.example/api"),
//	)
func WithBaseURL(baseURL string) Option {
	return func(cfg *internalConfig) {
		cfg.BaseURL = baseURL
	}
}

// WithServiceName sets an identifier for this HTTP client in traces.
// This value is added as the "http.client.name" attribute on all spans.
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.ServiceName = name
	}
}

// WithTracerProvider sets a custom OpenTelemetry TracerProvider.
// If not called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom OpenTelemetry MeterProvider.
// If not called, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		cfg.MeterProvider = mp
	}
}

// WithLogger sets the logger used for retry, breaker and request debug events.
// The default logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = logger
	}
}

// WithRetryConfig sets the retry behavior.
//
// Example - disable retries:
//
//	client := httpclient.New(
//	    httpclient.WithRetryConfig(httpclient.NoRetryConfig()),
//	)
func WithRetryConfig(rc RetryConfig) Option {
	return func(cfg *internalConfig) {
		cfg.RetryConfig = rc
	}
}

// WithRetryClassifier replaces DefaultClassifier.
func WithRetryClassifier(c RetryClassifier) Option {
	return func(cfg *internalConfig) {
		cfg.RetryClassifier = c
	}
}

// WithBreakerConfig sets the per-endpoint circuit breaker configuration.
func WithBreakerConfig(bc BreakerConfig) Option {
	return func(cfg *internalConfig) {
		cfg.BreakerConfig = &bc
	}
}

// WithoutBreaker disables the circuit breaker entirely.
func WithoutBreaker() Option {
	return func(cfg *internalConfig) {
		cfg.BreakerConfig = nil
	}
}

// WithRateLimit paces outgoing attempts with a client-side token bucket.
func WithRateLimit(rl RateLimitConfig) Option {
	return func(cfg *internalConfig) {
		cfg.RateLimit = &rl
	}
}

// WithTokenSource sets the source of bearer tokens. The token is fetched
// for each logical request; an empty access token sends no Authorization header.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(cfg *internalConfig) {
		cfg.TokenSource = ts
	}
}

// WithAPIKey sets the function key sent as x-functions-key in production.
func WithAPIKey(key string) Option {
	return func(cfg *internalConfig) {
		cfg.APIKey = key
	}
}

// WithEnvironment sets the deployment environment reported in X-Environment.
// Default: "development"
func WithEnvironment(env string) Option {
	return func(cfg *internalConfig) {
		cfg.Environment = env
	}
}

// WithClientVersion sets the X-Client-Version header value.
func WithClientVersion(version string) Option {
	return func(cfg *internalConfig) {
		cfg.ClientVersion = version
	}
}

// WithClientPlatform sets the X-Client-Platform header value.
// Default: "web"
func WithClientPlatform(platform string) Option {
	return func(cfg *internalConfig) {
		cfg.ClientPlatform = platform
	}
}

// WithRequestIDGenerator replaces the uuid generator used for X-Request-ID.
func WithRequestIDGenerator(fn func() string) Option {
	return func(cfg *internalConfig) {
		cfg.RequestIDFunc = fn
	}
}

// WithDefaultHeader adds a header sent on every request.
func WithDefaultHeader(key, value string) Option {
	return func(cfg *internalConfig) {
		cfg.DefaultHeaders.Set(key, value)
	}
}

// WithRequestInterceptor appends a request interceptor. Custom interceptors
// run after the built-in header interceptors.
func WithRequestInterceptor(i RequestInterceptor) Option {
	return func(cfg *internalConfig) {
		cfg.Interceptors.AddRequestInterceptor(i)
	}
}

// WithResponseInterceptor appends a response interceptor.
func WithResponseInterceptor(i ResponseInterceptor) Option {
	return func(cfg *internalConfig) {
		cfg.Interceptors.AddResponseInterceptor(i)
	}
}

// WithUnauthorizedHandler sets the hook invoked on 401 responses.
func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(cfg *internalConfig) {
		cfg.OnUnauthorized = h
	}
}

// WithoutHeartbeat stops the client from adding date, time and timestamp
// query parameters.
func WithoutHeartbeat() Option {
	return func(cfg *internalConfig) {
		cfg.HeartbeatParams = false
	}
}

// WithTLSConfig sets a custom TLS configuration.
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(cfg *internalConfig) {
		cfg.TLSConfig = tlsCfg
	}
}

// WithBaseTransport replaces the network transport. The resilience chain is
// still built on top of it.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(cfg *internalConfig) {
		cfg.baseTransport = rt
	}
}

// WithClock sets the clock used for heartbeat params and retry bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(cfg *internalConfig) {
		cfg.now = now
	}
}

package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/kroma-labs/solarops/httpclient"
	"github.com/kroma-labs/solarops/service"
)

// ClientOptions translates the configuration into httpclient options. It
// fails when the CA bundle cannot be read.
func (c *Config) ClientOptions() ([]httpclient.Option, error) {
	api := c.API
	res := c.Resilience

	hc := httpclient.DefaultConfig()
	hc.Timeout = api.Timeout

	opts := []httpclient.Option{
		httpclient.WithBaseURL(api.BaseURL),
		httpclient.WithEnvironment(api.Environment),
		httpclient.WithConfig(hc),
	}
	if api.APIKey != "" {
		opts = append(opts, httpclient.WithAPIKey(api.APIKey))
	}
	if api.Token != "" {
		opts = append(opts, httpclient.WithTokenSource(
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: api.Token}),
		))
	}
	if api.ClientVersion != "" {
		opts = append(opts, httpclient.WithClientVersion(api.ClientVersion))
	}
	if api.ClientPlatform != "" {
		opts = append(opts, httpclient.WithClientPlatform(api.ClientPlatform))
	}

	tlsCfg, err := api.TLSConfig()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		opts = append(opts, httpclient.WithTLSConfig(tlsCfg))
	}

	if res.EnableRetryLogic {
		rc := httpclient.DefaultRetryConfig()
		rc.MaxAttempts = res.MaxRetries
		rc.BackoffDelay = res.BackoffDelay
		opts = append(opts, httpclient.WithRetryConfig(rc))
	} else {
		opts = append(opts, httpclient.WithRetryConfig(httpclient.NoRetryConfig()))
	}

	if res.EnableCircuitBreaker {
		bc := httpclient.DefaultBreakerConfig()
		bc.FailureThreshold = res.FailureThreshold
		bc.OpenTimeout = res.OpenTimeout
		opts = append(opts, httpclient.WithBreakerConfig(bc))
	} else {
		opts = append(opts, httpclient.WithoutBreaker())
	}

	if res.RateLimit > 0 {
		opts = append(opts, httpclient.WithRateLimit(httpclient.RateLimitConfig{
			RequestsPerSecond: res.RateLimit,
			Burst:             res.RateBurst,
			WaitOnLimit:       true,
		}))
	}

	return opts, nil
}

// TLSConfig builds the client TLS settings, or returns nil when the system
// defaults apply.
func (c APIConfig) TLSConfig() (*tls.Config, error) {
	if c.CAFile == "" && !c.InsecureSkipVerify {
		return nil, nil
	}

	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.InsecureSkipVerify, //nolint:gosec // opt-in, refused in production
	}
	if c.CAFile == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("ca file: no certificates found")
	}
	cfg.RootCAs = pool
	return cfg, nil
}

// ServiceOptions translates the configuration into service options.
func (c *Config) ServiceOptions() []service.Option {
	opts := []service.Option{
		service.WithCacheTTL(c.Cache.CacheDuration),
		service.WithCacheSize(c.Cache.Size),
		service.WithFailureBackoff(c.Cache.BackoffInitial, c.Cache.BackoffMax),
	}
	if !c.Cache.Enabled {
		opts = append(opts, service.WithCacheDisabled())
	}
	return opts
}

// NewLogger builds the root logger writing to w.
func (c LoggingConfig) NewLogger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	if c.Format == LogFormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

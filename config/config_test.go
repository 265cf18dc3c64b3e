package config

import (
	"bytes"
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/solarops/httpclient"
	"github.com/kroma-labs/solarops/service"
)

const testYAML = `
api:
  base_url: "https://api.solarops.example/v1"
  environment: staging
  client_version: "2.4.1"
resilience:
  max_retries: 5
  backoff_delay: 500ms
  open_timeout: 30s
cache:
  duration: 2m
logging:
  level: debug
  format: console
fallback:
  enabled: true
  plants: 4
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solarops.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_File(t *testing.T) {
	fs := newFlags(t, "--config", writeConfig(t, testYAML))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, "https://api.solarops.example/v1", cfg.API.BaseURL)
	assert.Equal(t, EnvStaging, cfg.API.Environment)
	assert.Equal(t, "2.4.1", cfg.API.ClientVersion)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout, "default kept")

	assert.True(t, cfg.Resilience.EnableRetryLogic)
	assert.Equal(t, uint(5), cfg.Resilience.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Resilience.BackoffDelay)
	assert.True(t, cfg.Resilience.EnableCircuitBreaker)
	assert.Equal(t, uint32(5), cfg.Resilience.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Resilience.OpenTimeout)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Cache.CacheDuration)
	assert.Equal(t, 30*time.Second, cfg.Cache.BackoffInitial)

	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatConsole, cfg.Logging.Format)
	assert.True(t, cfg.Fallback.Enabled)
	assert.Equal(t, 4, cfg.Fallback.Plants)

	assert.Empty(t, cfg.Tracing.Endpoint)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio, "default kept")
}

func TestLoad_Precedence(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		args   []string
		assert func(t *testing.T, cfg *Config)
	}{
		{
			name: "given env vars, then they override the file",
			env: map[string]string{
				"SOLAROPS_CACHE_DURATION":                    "10m",
				"SOLAROPS_RESILIENCE_ENABLE_RETRY_LOGIC":     "false",
				"SOLAROPS_RESILIENCE_ENABLE_CIRCUIT_BREAKER": "false",
			},
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 10*time.Minute, cfg.Cache.CacheDuration)
				assert.False(t, cfg.Resilience.EnableRetryLogic)
				assert.False(t, cfg.Resilience.EnableCircuitBreaker)
			},
		},
		{
			name: "given flags, then they override env and file",
			env:  map[string]string{"SOLAROPS_CACHE_DURATION": "10m"},
			args: []string{"--cache-duration", "45s", "--no-breaker", "--log-level", "warn"},
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 45*time.Second, cfg.Cache.CacheDuration)
				assert.False(t, cfg.Resilience.EnableCircuitBreaker)
				assert.True(t, cfg.Resilience.EnableRetryLogic)
				assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
			},
		},
		{
			name: "given unset flags, then their defaults do not override the file",
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2*time.Minute, cfg.Cache.CacheDuration)
				assert.Equal(t, EnvStaging, cfg.API.Environment)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			args := append([]string{"--config", writeConfig(t, testYAML)}, tt.args...)

			cfg, err := Load(newFlags(t, args...))

			require.NoError(t, err)
			tt.assert(t, cfg)
		})
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SOLAROPS_API_BASE_URL", "https://api.solarops.example")

	cfg, err := Load(nil)

	require.NoError(t, err)
	assert.Equal(t, "https://api.solarops.example", cfg.API.BaseURL)
	assert.Equal(t, EnvDevelopment, cfg.API.Environment)
	assert.Equal(t, 5*time.Minute, cfg.Cache.CacheDuration)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "absent.yaml")))
	assert.ErrorContains(t, err, "read config")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			API: APIConfig{
				BaseURL:     "https://api.solarops.example",
				Environment: EnvDevelopment,
				Timeout:     30 * time.Second,
			},
			Resilience: ResilienceConfig{
				EnableRetryLogic:     true,
				MaxRetries:           3,
				BackoffDelay:         time.Second,
				EnableCircuitBreaker: true,
				FailureThreshold:     5,
				OpenTimeout:          time.Minute,
			},
			Cache: CacheConfig{
				Enabled:        true,
				CacheDuration:  5 * time.Minute,
				Size:           1000,
				BackoffInitial: 30 * time.Second,
				BackoffMax:     5 * time.Minute,
			},
			Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatJSON},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "given defaults, then valid", mutate: func(*Config) {}},
		{
			name:    "given no base url, then invalid",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: "BaseURL",
		},
		{
			name:    "given unknown environment, then invalid",
			mutate:  func(c *Config) { c.API.Environment = "qa" },
			wantErr: "Environment",
		},
		{
			name: "given production skipping certificate checks, then invalid",
			mutate: func(c *Config) {
				c.API.Environment = EnvProduction
				c.API.APIKey = "fn-key"
				c.API.InsecureSkipVerify = true
			},
			wantErr: "InsecureSkipVerify",
		},
		{
			name: "given staging skipping certificate checks, then valid",
			mutate: func(c *Config) {
				c.API.Environment = EnvStaging
				c.API.InsecureSkipVerify = true
			},
		},
		{
			name:    "given production without api key, then invalid",
			mutate:  func(c *Config) { c.API.Environment = EnvProduction },
			wantErr: "APIKey",
		},
		{
			name: "given retries disabled, then zero retry settings allowed",
			mutate: func(c *Config) {
				c.Resilience.EnableRetryLogic = false
				c.Resilience.MaxRetries = 0
				c.Resilience.BackoffDelay = 0
			},
		},
		{
			name:    "given backoff max below initial, then invalid",
			mutate:  func(c *Config) { c.Cache.BackoffMax = time.Second },
			wantErr: "BackoffMax",
		},
		{
			name:    "given rate limit without burst, then invalid",
			mutate:  func(c *Config) { c.Resilience.RateLimit = 5 },
			wantErr: "RateBurst",
		},
		{
			name:    "given unknown log level, then invalid",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "Level",
		},
		{
			name:   "given a collector address, then valid",
			mutate: func(c *Config) { c.Tracing.Endpoint = "otel-collector:4317" },
		},
		{
			name:    "given a collector address without port, then invalid",
			mutate:  func(c *Config) { c.Tracing.Endpoint = "otel-collector" },
			wantErr: "Endpoint",
		},
		{
			name:    "given a sample ratio above one, then invalid",
			mutate:  func(c *Config) { c.Tracing.SampleRatio = 1.5 },
			wantErr: "SampleRatio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_ClientOptions(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			BaseURL:       "https://api.solarops.example",
			Environment:   EnvProduction,
			APIKey:        "fn-key",
			Token:         "tok",
			ClientVersion: "2.4.1",
		},
		Resilience: ResilienceConfig{
			EnableRetryLogic:     false,
			EnableCircuitBreaker: false,
		},
	}

	mock := httpclient.NewMockTransport().StubResponse(http.StatusInternalServerError, "")
	opts, err := cfg.ClientOptions()
	require.NoError(t, err)
	client := httpclient.New(append(opts,
		httpclient.WithMockTransport(mock),
		httpclient.WithoutHeartbeat(),
	)...)

	for range 6 {
		_, err := client.Call(context.Background(), http.MethodGet, "/plants", nil)
		require.ErrorIs(t, err, httpclient.ErrTransient)
	}

	assert.Equal(t, 6, mock.RequestCount(), "no retries, no breaker")
	assert.False(t, client.IsOpen("/plants"))

	req := mock.LastRequest()
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Equal(t, "fn-key", req.Header.Get(httpclient.HeaderFunctionsKey))
	assert.Equal(t, EnvProduction, req.Header.Get(httpclient.HeaderEnvironment))
	assert.Equal(t, "2.4.1", req.Header.Get(httpclient.HeaderClientVersion))
}

func TestConfig_ClientOptions_Resilience(t *testing.T) {
	cfg := &Config{
		API: APIConfig{BaseURL: "https://api.solarops.example", Environment: EnvDevelopment},
		Resilience: ResilienceConfig{
			EnableRetryLogic:     true,
			MaxRetries:           1,
			BackoffDelay:         time.Millisecond,
			EnableCircuitBreaker: true,
			FailureThreshold:     2,
			OpenTimeout:          time.Minute,
		},
	}

	mock := httpclient.NewMockTransport().StubResponse(http.StatusBadGateway, "")
	opts, err := cfg.ClientOptions()
	require.NoError(t, err)
	client := httpclient.New(append(opts,
		httpclient.WithMockTransport(mock),
		httpclient.WithoutHeartbeat(),
	)...)

	for range 2 {
		_, err := client.Call(context.Background(), http.MethodGet, "/plants", nil)
		require.ErrorIs(t, err, httpclient.ErrServiceUnavailable)
	}

	assert.Equal(t, 4, mock.RequestCount(), "one retry per call")
	assert.True(t, client.IsOpen("/plants"), "tripped after two failed calls")
}

func TestConfig_ClientOptions_TLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(caFile, pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: srv.Certificate().Raw,
	}), 0o600))

	tests := []struct {
		name    string
		api     func(*APIConfig)
		wantErr bool
	}{
		{name: "given no tls settings, then the test certificate is rejected", api: func(*APIConfig) {}, wantErr: true},
		{name: "given the server's ca file, then the call succeeds", api: func(a *APIConfig) { a.CAFile = caFile }},
		{name: "given skipped verification, then the call succeeds", api: func(a *APIConfig) { a.InsecureSkipVerify = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{API: APIConfig{BaseURL: srv.URL, Environment: EnvDevelopment}}
			tt.api(&cfg.API)

			opts, err := cfg.ClientOptions()
			require.NoError(t, err)
			client := httpclient.New(append(opts, httpclient.WithoutHeartbeat())...)

			_, err = client.Call(context.Background(), http.MethodGet, "/plants", nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAPIConfig_TLSConfig(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))

	tests := []struct {
		name    string
		api     APIConfig
		wantNil bool
		wantErr string
	}{
		{name: "given nothing set, then system defaults", wantNil: true},
		{name: "given a missing ca file, then error", api: APIConfig{CAFile: filepath.Join(dir, "missing.pem")}, wantErr: "read ca file"},
		{name: "given a file without certificates, then error", api: APIConfig{CAFile: garbage}, wantErr: "no certificates found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.api.TLSConfig()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNil, got == nil)
		})
	}
}

func TestConfig_ServiceOptions(t *testing.T) {
	tests := []struct {
		name      string
		cache     CacheConfig
		wantCalls int
	}{
		{
			name:      "given cache enabled, then second read is cached",
			cache:     CacheConfig{Enabled: true, CacheDuration: time.Minute, Size: 10, BackoffInitial: time.Second, BackoffMax: time.Minute},
			wantCalls: 1,
		},
		{
			name:      "given cache disabled, then every read hits the backend",
			cache:     CacheConfig{Enabled: false, BackoffInitial: time.Second, BackoffMax: time.Minute},
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Cache: tt.cache}
			mock := httpclient.NewMockTransport().StubResponse(http.StatusOK, `[]`)
			client := httpclient.New(
				httpclient.WithBaseURL("https://api.solarops.example"),
				httpclient.WithMockTransport(mock),
			)
			base := service.New("plants", client, cfg.ServiceOptions()...)

			for range 2 {
				_, err := base.Get(context.Background(), "/plants")
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantCalls, mock.RequestCount())
		})
	}
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := LoggingConfig{Level: LogLevelWarn, Format: LogFormatJSON}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	_, err = LoggingConfig{Level: "loud"}.NewLogger(&buf)
	assert.Error(t, err)
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SOLAROPS"

// Deployment environments.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Log levels and formats.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// APIConfig describes the backend and how the client identifies itself.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Environment    string        `mapstructure:"environment"`
	APIKey         string        `mapstructure:"api_key"`
	Token          string        `mapstructure:"token"`
	ClientVersion  string        `mapstructure:"client_version"`
	ClientPlatform string        `mapstructure:"client_platform"`
	Timeout        time.Duration `mapstructure:"timeout"`

	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile string `mapstructure:"ca_file"`
	// InsecureSkipVerify disables certificate checks. Refused in production.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// ResilienceConfig holds the transport's retry, breaker and pacing settings.
type ResilienceConfig struct {
	EnableRetryLogic     bool          `mapstructure:"enable_retry_logic"`
	MaxRetries           uint          `mapstructure:"max_retries"`
	BackoffDelay         time.Duration `mapstructure:"backoff_delay"`
	EnableCircuitBreaker bool          `mapstructure:"enable_circuit_breaker"`
	FailureThreshold     uint32        `mapstructure:"failure_threshold"`
	OpenTimeout          time.Duration `mapstructure:"open_timeout"`

	// RateLimit is the sustained request rate per second. Zero disables pacing.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// CacheConfig holds the service layer's cache and failure backoff settings.
type CacheConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	CacheDuration  time.Duration `mapstructure:"duration"`
	Size           int           `mapstructure:"size"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the diagnostics listener serving /metrics, /livez,
// /readyz and /status. An empty Address disables it.
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// TracingConfig controls span export over OTLP/gRPC. An empty Endpoint
// disables it.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// FallbackConfig controls synthetic data for failed reads.
type FallbackConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Plants  int  `mapstructure:"plants"`
}

// Config is the complete configuration.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Fallback   FallbackConfig   `mapstructure:"fallback"`
}

var defaults = map[string]any{
	"api.environment":     EnvDevelopment,
	"api.client_platform": "cli",
	"api.timeout":         30 * time.Second,

	"resilience.enable_retry_logic":     true,
	"resilience.max_retries":            3,
	"resilience.backoff_delay":          time.Second,
	"resilience.enable_circuit_breaker": true,
	"resilience.failure_threshold":      5,
	"resilience.open_timeout":           60 * time.Second,
	"resilience.rate_limit":             0,
	"resilience.rate_burst":             5,

	"cache.enabled":         true,
	"cache.duration":        5 * time.Minute,
	"cache.size":            1000,
	"cache.backoff_initial": 30 * time.Second,
	"cache.backoff_max":     5 * time.Minute,

	"logging.level":  LogLevelInfo,
	"logging.format": LogFormatJSON,

	"metrics.address": "",

	"tracing.endpoint":     "",
	"tracing.insecure":     false,
	"tracing.sample_ratio": 1.0,

	"fallback.enabled": false,
	"fallback.plants":  3,

	// Keys without a default would be invisible to env lookup during Unmarshal.
	"api.base_url":       "",
	"api.api_key":        "",
	"api.token":          "",
	"api.client_version": "",
	"api.ca_file":        "",

	"api.insecure_skip_verify": false,
}

// flagKeys maps command line flags to configuration keys. --config,
// --no-retry and --no-breaker are handled by Load itself.
var flagKeys = map[string]string{
	"base-url":        "api.base_url",
	"environment":     "api.environment",
	"request-timeout": "api.timeout",
	"ca-file":         "api.ca_file",
	"log-level":       "logging.level",
	"log-format":      "logging.format",
	"metrics-address": "metrics.address",
	"otlp-endpoint":   "tracing.endpoint",
	"cache-duration":  "cache.duration",
	"fallback":        "fallback.enabled",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML configuration file")
	fs.String("base-url", "", "backend base URL")
	fs.String("ca-file", "", "PEM bundle of extra certificate authorities for the backend")
	fs.String("environment", EnvDevelopment, "deployment environment (development, staging, production)")
	fs.String("log-level", LogLevelInfo, "log level (debug, info, warn, error)")
	fs.String("log-format", LogFormatJSON, "log format (json, console)")
	fs.String("metrics-address", "", "serve metrics, health and status on this address")
	fs.String("otlp-endpoint", "", "export traces to this OTLP/gRPC collector (host:port)")
	fs.Duration("cache-duration", 5*time.Minute, "how long GET responses are cached")
	fs.Duration("request-timeout", 30*time.Second, "timeout of a single request attempt")
	fs.Bool("fallback", false, "serve synthetic data when a read fails")
	fs.Bool("no-retry", false, "disable transport retries")
	fs.Bool("no-breaker", false, "disable circuit breakers")
}

// Load builds the Config from defaults, the config file, the environment and
// fs, which may be nil. Only flags that were set on the command line
// override the other sources.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindFlags(v, fs); err != nil {
		return nil, err
	}

	if err := readFile(v, fs); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if fs != nil {
		if off, _ := fs.GetBool("no-retry"); off {
			cfg.Resilience.EnableRetryLogic = false
		}
		if off, _ := fs.GetBool("no-breaker"); off {
			cfg.Resilience.EnableCircuitBreaker = false
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// readFile reads the file named by --config, or solarops.yaml from the
// working directory or ./config when present.
func readFile(v *viper.Viper, fs *pflag.FlagSet) error {
	var path string
	if fs != nil {
		path, _ = fs.GetString("config")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("solarops")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && (path != "" || !errors.As(err, &notFound)) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.API),
		validation.Field(&c.Resilience),
		validation.Field(&c.Cache),
		validation.Field(&c.Logging),
		validation.Field(&c.Tracing),
		validation.Field(&c.Fallback),
	)
}

func (c APIConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Environment,
			validation.Required,
			validation.In(EnvDevelopment, EnvStaging, EnvProduction),
		),
		validation.Field(&c.APIKey,
			validation.When(c.Environment == EnvProduction, validation.Required),
		),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.InsecureSkipVerify,
			validation.When(c.Environment == EnvProduction, validation.Empty.Error("must not be set in production")),
		),
	)
}

func (c ResilienceConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxRetries, validation.When(c.EnableRetryLogic, validation.Required)),
		validation.Field(&c.BackoffDelay, validation.When(c.EnableRetryLogic, validation.Required)),
		validation.Field(&c.FailureThreshold, validation.When(c.EnableCircuitBreaker, validation.Required)),
		validation.Field(&c.OpenTimeout, validation.When(c.EnableCircuitBreaker, validation.Required)),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.RateBurst, validation.When(c.RateLimit > 0, validation.Required, validation.Min(1))),
	)
}

func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CacheDuration, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Size, validation.When(c.Enabled, validation.Required, validation.Min(1))),
		validation.Field(&c.BackoffInitial, validation.Required),
		validation.Field(&c.BackoffMax, validation.Required, validation.Min(c.BackoffInitial)),
	)
}

func (c LoggingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
		validation.Field(&c.Format, validation.In(LogFormatJSON, LogFormatConsole)),
	)
}

func (c TracingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Endpoint, is.DialString),
		validation.Field(&c.SampleRatio, validation.Min(0.0), validation.Max(1.0)),
	)
}

func (c FallbackConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Plants, validation.When(c.Enabled, validation.Min(1))),
	)
}

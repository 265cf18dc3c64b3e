// Package config loads the typed configuration of the solarops stack.
//
// Values come, in increasing order of precedence, from built-in defaults, a
// YAML file, SOLAROPS_* environment variables and command line flags:
//
//	resilience.enable_retry_logic  ->  SOLAROPS_RESILIENCE_ENABLE_RETRY_LOGIC
//	cache.duration                 ->  SOLAROPS_CACHE_DURATION
//
// The loaded Config is validated once and then handed to the constructors
// through ClientOptions and ServiceOptions; nothing reads the environment
// after startup.
package config

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// CircuitBreaker is the interface used by the circuit breaker transport.
// It matches the gobreaker.CircuitBreaker method set.
type CircuitBreaker interface {
	Execute(req func() (interface{}, error)) (interface{}, error)
	State() gobreaker.State
	Counts() gobreaker.Counts
}

// BreakerClassifier determines if a request outcome should count as a
// breaker failure. Returns true for failures.
type BreakerClassifier func(resp *http.Response, err error) bool

// BreakerConfig holds the per-endpoint circuit breaker configuration.
//
// Concepts:
//   - Closed: Normal state, requests allowed.
//   - Open: Failing state, requests rejected immediately without a network call.
//   - Half-Open: After OpenTimeout, one trial request is let through.
//     Success closes the breaker, failure opens it again.
//
// Each endpoint path gets its own breaker, so a failing /alerts endpoint
// does not block /plants.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips the
	// breaker. Any success resets the count.
	// Default: 5
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before allowing a trial.
	// Default: 60s
	OpenTimeout time.Duration

	// HalfOpenRequests is the number of trial requests allowed while half-open.
	// Default: 1
	HalfOpenRequests uint32

	// Classifier determines which outcomes count as failures.
	// Default: DefaultBreakerClassifier
	Classifier BreakerClassifier

	// Exclusion determines which outcomes are left out of the breaker
	// entirely. An excluded outcome neither extends nor resets the streak.
	// Default: DefaultBreakerExclusion
	Exclusion BreakerClassifier

	// OnStateChange is invoked with the endpoint key when a breaker changes state.
	OnStateChange func(endpoint string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns the standard breaker: trip after 5
// consecutive failures, try again after 60 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      60 * time.Second,
		HalfOpenRequests: 1,
		Classifier:       DefaultBreakerClassifier,
		Exclusion:        DefaultBreakerExclusion,
	}
}

// DefaultBreakerClassifier counts server errors, client errors and transport
// failures against the endpoint. Outcomes matched by DefaultBreakerExclusion
// never reach it.
func DefaultBreakerClassifier(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode >= http.StatusBadRequest
}

// DefaultBreakerExclusion leaves 401, 429, caller cancellation and the local
// rate limiter out of the breaker. None of them say anything about the
// endpoint's health, and none of them reset a running failure streak.
func DefaultBreakerExclusion(resp *http.Response, err error) bool {
	if err != nil {
		return errors.Is(err, context.Canceled) || errors.Is(err, ErrLocalRateLimit)
	}
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusTooManyRequests:
		return true
	}
	return false
}

// BreakerState is a snapshot of one endpoint's breaker.
type BreakerState struct {
	State       gobreaker.State
	Failures    uint32
	LastFailure time.Time
}

// endpointBreaker pairs a breaker with the failure bookkeeping exposed by
// BreakerStatus. gobreaker clears its counts on every state change, so the
// failure streak is tracked here as well.
type endpointBreaker struct {
	cb CircuitBreaker

	mu          sync.Mutex
	failures    uint32
	lastFailure time.Time
}

func (b *endpointBreaker) recordFailure(at time.Time) {
	b.mu.Lock()
	b.failures++
	b.lastFailure = at
	b.mu.Unlock()
}

func (b *endpointBreaker) recordSuccess() {
	b.mu.Lock()
	b.failures = 0
	b.mu.Unlock()
}

func (b *endpointBreaker) snapshot() BreakerState {
	state := b.cb.State()
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerState{
		State:       state,
		Failures:    b.failures,
		LastFailure: b.lastFailure,
	}
}

// breakerRegistry lazily creates one breaker per endpoint key.
type breakerRegistry struct {
	cfg *internalConfig
	bc  BreakerConfig

	mu       sync.RWMutex
	breakers map[string]*endpointBreaker
}

func newBreakerRegistry(cfg *internalConfig) *breakerRegistry {
	bc := *cfg.BreakerConfig
	defaults := DefaultBreakerConfig()
	if bc.FailureThreshold == 0 {
		bc.FailureThreshold = defaults.FailureThreshold
	}
	if bc.OpenTimeout <= 0 {
		bc.OpenTimeout = defaults.OpenTimeout
	}
	if bc.HalfOpenRequests == 0 {
		bc.HalfOpenRequests = defaults.HalfOpenRequests
	}
	if bc.Classifier == nil {
		bc.Classifier = defaults.Classifier
	}
	if bc.Exclusion == nil {
		bc.Exclusion = defaults.Exclusion
	}

	return &breakerRegistry{
		cfg:      cfg,
		bc:       bc,
		breakers: make(map[string]*endpointBreaker),
	}
}

// get returns the breaker for endpoint, creating it on first use.
func (r *breakerRegistry) get(endpoint string) *endpointBreaker {
	r.mu.RLock()
	if b, ok := r.breakers[endpoint]; ok {
		r.mu.RUnlock()
		return b
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[endpoint]; ok {
		return b
	}

	b := &endpointBreaker{cb: gobreaker.NewCircuitBreaker[interface{}](r.settings(endpoint))}
	r.breakers[endpoint] = b
	return b
}

// lookup returns the breaker for endpoint without creating one.
func (r *breakerRegistry) lookup(endpoint string) (*endpointBreaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.breakers[endpoint]
	return b, ok
}

func (r *breakerRegistry) settings(endpoint string) gobreaker.Settings {
	threshold := r.bc.FailureThreshold
	return gobreaker.Settings{
		Name:        endpoint,
		MaxRequests: r.bc.HalfOpenRequests,
		Interval:    0,
		Timeout:     r.bc.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, errExcluded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.cfg.Metrics.recordBreakerState(context.Background(), name, int64(to))
			r.cfg.Logger.Info().
				Str("endpoint", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if r.bc.OnStateChange != nil {
				r.bc.OnStateChange(name, from, to)
			}
		},
	}
}

// status snapshots every breaker created so far.
func (r *breakerRegistry) status() map[string]BreakerState {
	r.mu.RLock()
	keys := make([]string, 0, len(r.breakers))
	for k := range r.breakers {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)

	out := make(map[string]BreakerState, len(keys))
	for _, k := range keys {
		if b, ok := r.lookup(k); ok {
			out[k] = b.snapshot()
		}
	}
	return out
}

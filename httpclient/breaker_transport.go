package httpclient

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// circuitBreakerTransport is a RoundTripper that runs each request through
// the breaker of its endpoint. It sits outside the retry transport, so a
// request that exhausts its retries counts as one failure.
type circuitBreakerTransport struct {
	registry   *breakerRegistry
	next       http.RoundTripper
	classifier BreakerClassifier
	exclusion  BreakerClassifier
	cfg        *internalConfig
}

// errSyntheticFailure is a sentinel error used to signal the circuit breaker
// that a request failed (e.g. 500 status) even if the underlying RoundTrip returned no error.
// It is intercepted by the transport before returning to the caller.
var errSyntheticFailure = errors.New("synthetic failure")

// errExcluded marks an outcome the breaker must not count either way. Like
// errSyntheticFailure it never reaches the caller.
var errExcluded = errors.New("excluded from breaker")

// newCircuitBreakerTransport creates a new circuit breaker transport.
func newCircuitBreakerTransport(next http.RoundTripper, registry *breakerRegistry) *circuitBreakerTransport {
	return &circuitBreakerTransport{
		registry:   registry,
		next:       next,
		classifier: registry.bc.Classifier,
		exclusion:  registry.bc.Exclusion,
		cfg:        registry.cfg,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *circuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := t.cfg.endpointKey(req.URL)
	eb := t.registry.get(endpoint)

	var (
		resp  *http.Response
		rtErr error
	)

	_, err := eb.cb.Execute(func() (interface{}, error) {
		resp, rtErr = t.next.RoundTrip(req) //nolint:bodyclose // returned to caller

		if t.exclusion(resp, rtErr) {
			return nil, errExcluded
		}
		if t.classifier(resp, rtErr) {
			return nil, errSyntheticFailure
		}
		return nil, nil
	})

	switch {
	case err == nil:
		eb.recordSuccess()
		t.cfg.Metrics.recordBreakerRequest(ctx, endpoint, "success")
		return resp, rtErr

	case errors.Is(err, errExcluded):
		t.cfg.Metrics.recordBreakerRequest(ctx, endpoint, "excluded")
		return resp, rtErr

	case errors.Is(err, errSyntheticFailure):
		eb.recordFailure(t.cfg.now())
		t.cfg.Metrics.recordBreakerRequest(ctx, endpoint, "failure")
		return resp, rtErr

	default:
		// ErrOpenState or ErrTooManyRequests: nothing was sent.
		t.cfg.Metrics.recordBreakerRequest(ctx, endpoint, "rejected")
		t.cfg.Logger.Debug().
			Str("method", req.Method).
			Str("endpoint", endpoint).
			Bool("half_open", errors.Is(err, gobreaker.ErrTooManyRequests)).
			Msg("request rejected by circuit breaker")
		return nil, err
	}
}

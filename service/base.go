package service

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/kroma-labs/solarops/httpclient"
)

//go:generate mockery --name Doer --output ./mocks --outpkg mocks --with-expecter

// Doer sends one logical request and returns the body of a successful
// answer. *httpclient.Client implements it.
type Doer interface {
	Call(ctx context.Context, method, endpoint string, body any) ([]byte, error)
}

var _ Doer = (*httpclient.Client)(nil)

// Base is the cache, dedup and failure backoff layer of one domain service.
// All state is owned by the Base and lives as long as it does.
type Base struct {
	name    string
	doer    Doer
	cfg     *config
	logger  zerolog.Logger
	metrics *metrics

	group   singleflight.Group
	cache   *responseCache
	tracker *FailureTracker
}

// New creates the Base for the service called name. The name prefixes every
// cache key and labels logs and metrics.
func New(name string, doer Doer, opts ...Option) *Base {
	cfg := newConfig(opts...)

	// Metrics stay nil on registration failure; every recorder is nil-safe.
	m, _ := newMetrics(cfg.meterProvider.Meter(scope))

	return &Base{
		name:    name,
		doer:    doer,
		cfg:     cfg,
		logger:  cfg.logger.With().Str("service", name).Logger(),
		metrics: m,
		cache:   newResponseCache(name+":", cfg.cacheSize, cfg.now),
		tracker: NewFailureTracker(cfg.backoffInitial, cfg.backoffMax, cfg.now),
	}
}

// Name returns the service name.
func (b *Base) Name() string {
	return b.name
}

// Get fetches endpoint. While the endpoint is backing off the call fails fast
// without touching the network, even if a cached response exists. Otherwise a
// live cached response is returned, or the response is fetched and cached.
// Neither the backoff refusal nor a cache hit waits on a call in flight;
// concurrent identical fetches share one request.
//
// The returned slice may be shared with other callers and must not be modified.
func (b *Base) Get(ctx context.Context, endpoint string, opts ...CallOption) ([]byte, error) {
	co := callOptions{useCache: b.cfg.cacheEnabled, ttl: b.cfg.cacheTTL}
	for _, opt := range opts {
		opt(&co)
	}

	target := withQuery(endpoint, co.query)
	key := callKey(http.MethodGet, target)

	if err := b.gate(ctx, http.MethodGet, target); err != nil {
		return nil, err
	}

	if co.useCache {
		data, ok := b.cache.get(key)
		b.metrics.recordCache(ctx, b.name, ok)
		if ok {
			b.logger.Debug().Str("endpoint", target).Msg("cache hit")
			return data, nil
		}
	}

	return b.shared(ctx, key, func(ctx context.Context) ([]byte, error) {
		// A flight for key may have filled the cache after the lookup above.
		if co.useCache {
			if data, ok := b.cache.get(key); ok {
				return data, nil
			}
		}

		data, err := b.send(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}

		if co.useCache {
			b.cache.set(key, data, co.ttl)
		}
		return data, nil
	})
}

// Post sends body to endpoint. Concurrent Posts to the same endpoint share
// one request regardless of their bodies.
func (b *Base) Post(ctx context.Context, endpoint string, body any) ([]byte, error) {
	return b.shared(ctx, callKey(http.MethodPost, endpoint), func(ctx context.Context) ([]byte, error) {
		return b.mutate(ctx, http.MethodPost, endpoint, body)
	})
}

// Put sends body to endpoint.
func (b *Base) Put(ctx context.Context, endpoint string, body any) ([]byte, error) {
	return b.mutate(ctx, http.MethodPut, endpoint, body)
}

// Patch sends body to endpoint.
func (b *Base) Patch(ctx context.Context, endpoint string, body any) ([]byte, error) {
	return b.mutate(ctx, http.MethodPatch, endpoint, body)
}

// Delete removes endpoint.
func (b *Base) Delete(ctx context.Context, endpoint string) ([]byte, error) {
	return b.mutate(ctx, http.MethodDelete, endpoint, nil)
}

// ClearCache drops every cached response of the service.
func (b *Base) ClearCache() {
	b.cache.clear()
}

// InvalidateCache drops the cached responses whose key matches pattern and
// returns how many were dropped. Keys have the form "GET:/path?query".
func (b *Base) InvalidateCache(pattern *regexp.Regexp) int {
	return b.cache.invalidate(pattern)
}

// FailureStatus returns the failure bookkeeping of every endpoint that
// failed since its last success.
func (b *Base) FailureStatus() map[string]EndpointStatus {
	return b.tracker.Status()
}

// ResetFailures ends every backoff.
func (b *Base) ResetFailures() {
	b.tracker.Reset()
}

// shared runs fn once per key at a time. The call is detached from the
// cancellation of whichever caller started it; a caller whose context ends
// stops waiting but leaves the call running for the others.
func (b *Base) shared(ctx context.Context, key string, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	detached := context.WithoutCancel(ctx)

	ch := b.group.DoChan(key, func() (any, error) {
		data, err := fn(detached)
		return data, err
	})

	select {
	case res := <-ch:
		if res.Shared {
			b.metrics.recordShared(ctx, b.name)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		data, _ := res.Val.([]byte)
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// gate refuses the call when its endpoint is backing off.
func (b *Base) gate(ctx context.Context, method, target string) error {
	endpoint := httpclient.EndpointKey(target)
	remaining := b.tracker.Remaining(endpoint)
	if remaining <= 0 {
		return nil
	}

	b.metrics.recordBackoffRejection(ctx, b.name, endpoint)
	b.logger.Debug().
		Str("endpoint", endpoint).
		Dur("remaining", remaining).
		Msg("endpoint backing off, call refused")

	return &Error{
		Kind:     KindBackingOff,
		Service:  b.name,
		Method:   method,
		Endpoint: endpoint,
		RetryIn:  remaining,
	}
}

// mutate sends a write and clears the cache when it succeeds.
func (b *Base) mutate(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	data, err := b.send(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	b.cache.clear()
	return data, nil
}

// send issues the request and feeds the outcome to the failure tracker.
func (b *Base) send(ctx context.Context, method, target string, body any) ([]byte, error) {
	endpoint := httpclient.EndpointKey(target)

	data, err := b.doer.Call(ctx, method, target, body)
	if err != nil {
		rec := b.tracker.RecordFailure(endpoint)
		b.metrics.recordFailure(ctx, b.name, endpoint)
		b.logger.Debug().
			Str("method", method).
			Str("endpoint", endpoint).
			Int("failures", rec.Failures).
			Time("backoff_until", rec.BackoffUntil).
			Err(err).
			Msg("call failed")
		return nil, b.mapError(method, endpoint, err)
	}

	b.tracker.RecordSuccess(endpoint)
	return data, nil
}

// withQuery appends q to endpoint. Query parameters come out sorted so that
// equivalent calls share cache and dedup keys.
func withQuery(endpoint string, q url.Values) string {
	path, rawQuery, _ := strings.Cut(endpoint, "?")
	merged, err := url.ParseQuery(rawQuery)
	if err != nil {
		if len(q) == 0 {
			return endpoint
		}
		merged = make(url.Values)
	}
	for k, v := range q {
		merged[k] = append(merged[k], v...)
	}
	if len(merged) == 0 {
		return path
	}
	return path + "?" + merged.Encode()
}

func callKey(method, target string) string {
	return method + ":" + target
}

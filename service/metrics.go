package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the instruments of one Base. Every recorder is nil-safe.
type metrics struct {
	cacheRequests     metric.Int64Counter
	sharedCalls       metric.Int64Counter
	backoffRejections metric.Int64Counter
	failures          metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.cacheRequests, err = meter.Int64Counter(
		"service.cache.requests",
		metric.WithDescription("Cache lookups by result (hit or miss)"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.sharedCalls, err = meter.Int64Counter(
		"service.dedup.shared",
		metric.WithDescription("Callers served by a call another caller started"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	m.backoffRejections, err = meter.Int64Counter(
		"service.backoff.rejections",
		metric.WithDescription("Calls refused because the endpoint is backing off"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	m.failures, err = meter.Int64Counter(
		"service.failures",
		metric.WithDescription("Failed calls recorded by the failure tracker"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metrics) recordCache(ctx context.Context, svc string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service.name", svc),
		attribute.String("cache.result", result),
	))
}

func (m *metrics) recordShared(ctx context.Context, svc string) {
	if m == nil {
		return
	}
	m.sharedCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("service.name", svc)))
}

func (m *metrics) recordBackoffRejection(ctx context.Context, svc, endpoint string) {
	if m == nil {
		return
	}
	m.backoffRejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service.name", svc),
		attribute.String("http.endpoint", endpoint),
	))
}

func (m *metrics) recordFailure(ctx context.Context, svc, endpoint string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service.name", svc),
		attribute.String("http.endpoint", endpoint),
	))
}

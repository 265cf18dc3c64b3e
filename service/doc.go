// Package service is the shared base of the domain services. A Base sits
// between a domain service and the HTTP transport and adds three things:
//
//   - a response cache with a TTL per entry, owned by the service
//   - deduplication of identical in-flight calls
//   - a FailureTracker that rests an endpoint after failures, with an
//     exponential window of 30s, 60s, 120s and so on, capped at 5 minutes
//
// The FailureTracker is independent from the transport's circuit breaker.
// The breaker protects the shared transport for every consumer; the tracker
// protects one service's cache and dedup layer. They use different thresholds
// and reset rules, so an endpoint can be resting here while its breaker is
// closed, and the other way round.
//
// # Usage
//
//	base := service.New("plants", httpClient,
//	    service.WithLogger(logger),
//	    service.WithCacheTTL(5*time.Minute),
//	)
//
//	body, err := base.Get(ctx, "/plants/7/weather",
//	    service.WithQuery(url.Values{"date": {"2024-03-05"}}),
//	)
//
// A successful Post, Put, Patch or Delete clears the whole service cache.
package service

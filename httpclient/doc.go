// Package httpclient is the HTTP transport for the solar operations backend,
// with built-in resilience and OpenTelemetry instrumentation.
//
// # Features
//
//   - Standard headers on every request: X-Request-ID, bearer token,
//     client version/platform/environment, and the function key in production
//   - Date normalization of query params and JSON bodies (package normalize)
//   - Heartbeat query params: date, time and timestamp in UTC
//   - Per-endpoint circuit breakers (sony/gobreaker)
//   - Per-endpoint retry schedule for idempotent methods (cenkalti/backoff)
//   - A timeout per attempt rather than per logical request
//   - Typed errors: Authentication, RateLimited, Transient,
//     ServiceUnavailable, ClientError
//   - OpenTelemetry tracing and metrics for requests, retries and breakers
//
// # Quick Start
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.solarops.example/api"),
//	    httpclient.WithTokenSource(tokenSource),
//	    httpclient.WithUnauthorizedHandler(func(*http.Request) { session.Clear() }),
//	)
//
//	var weather Weather
//	_, err := client.Request("GetWeather").
//	    Path("/plants/{id}/weather").
//	    PathParam("id", "7").
//	    Query("date", "2024-03-05"). // sent as 05-03-2024
//	    Decode(&weather).
//	    Get(ctx)
//
// # Request Lifecycle
//
// A logical request passes through, in order:
//
//  1. Request interceptors (headers).
//  2. The endpoint's circuit breaker. An open breaker fails the request
//     immediately with "Service temporarily unavailable for <endpoint>".
//  3. The retry loop. 5xx answers, network errors and attempt timeouts are
//     retried after 1s, 2s and 4s (by default) when the method is
//     idempotent. Retry counts are shared by all requests to an endpoint.
//  4. Status mapping. 401 calls the UnauthorizedHandler and fails with
//     "Authentication required"; 429 fails with the Retry-After hint; other
//     4xx fail as ClientError carrying status and body.
//
// The breaker records one outcome per logical request. 401, 429 and caller
// cancellation are left out: they neither extend nor reset a failure streak.
//
// # Error Handling
//
//	_, err := client.Call(ctx, http.MethodGet, "/plants", nil)
//	switch {
//	case errors.Is(err, httpclient.ErrAuthenticationRequired):
//	    // session already cleared by the handler
//	case errors.Is(err, httpclient.ErrServiceUnavailable):
//	    // breaker open or retries exhausted
//	}
//
// # Diagnostics
//
// Client.IsOpen, Client.BreakerStatus and Client.RetryStatus expose the
// per-endpoint state for health pages and tests.
package httpclient

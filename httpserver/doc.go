// Package httpserver is the diagnostics listener of long-running plantctl
// sessions. It exposes what the resilience layer knows about the backend:
//
//	GET /metrics  Prometheus exposition of the client and service instruments
//	GET /livez    always 200 while the process serves requests
//	GET /readyz   200 when every readiness check passes, 503 otherwise
//	GET /status   breaker and backoff snapshot
//
// JSON answers use the same envelope as the backend:
//
//	{"success": true, "message": "all checks passed", "data": {...}}
//
// # Quick Start
//
//	srv := httpserver.New(
//	    httpserver.WithAddr(":2112"),
//	    httpserver.WithLogger(logger),
//	    httpserver.WithGatherer(registry),
//	    httpserver.WithReadinessCheck("breakers", breakersClosed),
//	    httpserver.WithStatus(func() any { return snapshot() }),
//	)
//
//	// Blocks until ctx is cancelled, then shuts down gracefully.
//	err := srv.ListenAndServe(ctx)
//
// Every request passes through Recovery, RequestID and AccessLog, in that
// order.
package httpserver

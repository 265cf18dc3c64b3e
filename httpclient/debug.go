package httpclient

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// logRequest logs the outgoing request at debug level. Credentials are never logged.
func logRequest(logger zerolog.Logger, req *http.Request, operation string) {
	logger.Debug().
		Str("operation", operation).
		Str("method", req.Method).
		Str("url", redactedURL(req)).
		Str("request_id", req.Header.Get(HeaderRequestID)).
		Bool("authenticated", req.Header.Get("Authorization") != "").
		Msg("HTTP request")
}

// logResponse logs the response details at debug level.
func logResponse(logger zerolog.Logger, req *http.Request, resp *http.Response, retries int, duration time.Duration) {
	logger.Debug().
		Str("method", req.Method).
		Str("request_id", req.Header.Get(HeaderRequestID)).
		Int("status", resp.StatusCode).
		Int("retries", retries).
		Dur("duration", duration).
		Msg("HTTP response")
}

// redactedURL returns the request URL without user info.
func redactedURL(req *http.Request) string {
	u := *req.URL
	u.User = nil
	return u.String()
}

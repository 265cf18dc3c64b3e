package httpclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// Kind classifies a failed request by how callers should react to it.
type Kind int

const (
	// KindUnknown is the zero Kind.
	KindUnknown Kind = iota

	// KindAuthentication means the backend rejected the credentials (401).
	KindAuthentication

	// KindRateLimited means the backend answered 429. Not retried.
	KindRateLimited

	// KindTransient is a 5xx or network failure that was not retried,
	// usually because the method is not idempotent.
	KindTransient

	// KindServiceUnavailable is returned when retries were exhausted or the
	// endpoint's circuit breaker is rejecting calls.
	KindServiceUnavailable

	// KindClientError is any other 4xx answer.
	KindClientError
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindClientError:
		return "client_error"
	default:
		return "unknown"
	}
}

// Sentinel errors matched by *Error through errors.Is.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrRateLimited            = errors.New("rate limited")
	ErrTransient              = errors.New("transient failure")
	ErrServiceUnavailable     = errors.New("service unavailable")
	ErrClientError            = errors.New("client error")
)

// maxErrorBody caps how much of an error response body is kept on *Error.
const maxErrorBody = 4 << 10

// Error describes a request that did not produce a successful response.
//
// Use errors.Is with the sentinel errors to branch on the Kind, and errors.As
// to reach the status code, body or retry hint:
//
//	var herr *httpclient.Error
//	if errors.As(err, &herr) && herr.StatusCode == http.StatusConflict {
//	    ...
//	}
type Error struct {
	Kind       Kind
	Method     string
	Endpoint   string
	StatusCode int

	// RetryAfter is the raw Retry-After header of a 429 answer.
	RetryAfter string

	// Retries is the number of retries performed before giving up.
	Retries int

	// Body holds at most the first 4 KiB of the error response.
	Body []byte

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAuthentication:
		return "Authentication required"
	case KindRateLimited:
		if e.RetryAfter != "" {
			return "rate limited: retry after " + e.RetryAfter
		}
		return "rate limited: retry later"
	case KindServiceUnavailable:
		if isBreakerRejection(e.Err) {
			return "Service temporarily unavailable for " + e.Endpoint
		}
		return fmt.Sprintf("service unavailable: %s %s failed after %d retries: %s",
			e.Method, e.Endpoint, e.Retries, e.cause())
	case KindTransient:
		return fmt.Sprintf("transient failure: %s %s: %s", e.Method, e.Endpoint, e.cause())
	default:
		msg := fmt.Sprintf("%s %s: %s", e.Method, e.Endpoint, e.cause())
		if len(e.Body) > 0 {
			msg += ": " + string(e.Body)
		}
		return msg
	}
}

func (e *Error) cause() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuthenticationRequired:
		return e.Kind == KindAuthentication
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrServiceUnavailable:
		return e.Kind == KindServiceUnavailable
	case ErrClientError:
		return e.Kind == KindClientError
	}
	return false
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var herr *Error
	if errors.As(err, &herr) {
		return herr.StatusCode
	}
	return 0
}

package service

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/kroma-labs/solarops/httpclient"
)

// Kind classifies a service error.
type Kind int

const (
	// KindTransport is any failure reported by the transport that has no
	// friendlier translation.
	KindTransport Kind = iota

	// KindNotFound is a 404 answer.
	KindNotFound

	// KindForbidden is a 403 answer.
	KindForbidden

	// KindBackingOff is a call refused locally because its endpoint is resting.
	KindBackingOff
)

// Sentinel errors matched by *Error through errors.Is.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrForbidden  = errors.New("access denied")
	ErrBackingOff = errors.New("endpoint is backing off")
)

// Error is returned by every Base operation. It unwraps to the transport
// error, so httpclient sentinels keep working:
//
//	if errors.Is(err, httpclient.ErrAuthenticationRequired) { ... }
type Error struct {
	Kind     Kind
	Service  string
	Method   string
	Endpoint string

	// RetryIn is the remaining rest of an endpoint that is backing off.
	RetryIn time.Duration

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return "Resource not found"
	case KindForbidden:
		return "Access denied"
	case KindBackingOff:
		secs := int(math.Ceil(e.RetryIn.Seconds()))
		return fmt.Sprintf("endpoint %s is backing off, retry in %ds", e.Endpoint, secs)
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s %s failed", e.Method, e.Endpoint)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the service sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrForbidden:
		return e.Kind == KindForbidden
	case ErrBackingOff:
		return e.Kind == KindBackingOff
	}
	return false
}

// mapError translates a transport error for callers.
func (b *Base) mapError(method, endpoint string, err error) error {
	e := &Error{
		Service:  b.name,
		Method:   method,
		Endpoint: endpoint,
		Err:      err,
	}
	switch httpclient.StatusCode(err) {
	case http.StatusNotFound:
		e.Kind = KindNotFound
	case http.StatusForbidden:
		e.Kind = KindForbidden
	}
	return e
}

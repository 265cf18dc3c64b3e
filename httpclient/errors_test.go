package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "given authentication kind, then returns fixed message",
			err:  &Error{Kind: KindAuthentication, StatusCode: http.StatusUnauthorized},
			want: "Authentication required",
		},
		{
			name: "given rate limited with retry after, then includes hint",
			err:  &Error{Kind: KindRateLimited, RetryAfter: "30"},
			want: "rate limited: retry after 30",
		},
		{
			name: "given rate limited without hint, then asks to retry later",
			err:  &Error{Kind: KindRateLimited},
			want: "rate limited: retry later",
		},
		{
			name: "given breaker rejection, then names the endpoint",
			err: &Error{
				Kind:     KindServiceUnavailable,
				Endpoint: "/plants",
				Err:      gobreaker.ErrOpenState,
			},
			want: "Service temporarily unavailable for /plants",
		},
		{
			name: "given exhausted retries, then reports retry count",
			err: &Error{
				Kind:       KindServiceUnavailable,
				Method:     http.MethodGet,
				Endpoint:   "/plants",
				StatusCode: http.StatusBadGateway,
				Retries:    3,
			},
			want: "service unavailable: GET /plants failed after 3 retries: HTTP 502 Bad Gateway",
		},
		{
			name: "given transient network failure, then includes cause",
			err: &Error{
				Kind:     KindTransient,
				Method:   http.MethodPost,
				Endpoint: "/workorders",
				Err:      errors.New("connection reset"),
			},
			want: "transient failure: POST /workorders: connection reset",
		},
		{
			name: "given client error with body, then appends body",
			err: &Error{
				Kind:       KindClientError,
				Method:     http.MethodGet,
				Endpoint:   "/plants/9",
				StatusCode: http.StatusNotFound,
				Body:       []byte(`{"error":"missing"}`),
			},
			want: `GET /plants/9: HTTP 404 Not Found: {"error":"missing"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Is(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		target error
	}{
		{name: "given authentication, then matches ErrAuthenticationRequired", kind: KindAuthentication, target: ErrAuthenticationRequired},
		{name: "given rate limited, then matches ErrRateLimited", kind: KindRateLimited, target: ErrRateLimited},
		{name: "given transient, then matches ErrTransient", kind: KindTransient, target: ErrTransient},
		{name: "given unavailable, then matches ErrServiceUnavailable", kind: KindServiceUnavailable, target: ErrServiceUnavailable},
		{name: "given client error, then matches ErrClientError", kind: KindClientError, target: ErrClientError},
	}

	all := []error{ErrAuthenticationRequired, ErrRateLimited, ErrTransient, ErrServiceUnavailable, ErrClientError}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &Error{Kind: tt.kind})

			for _, sentinel := range all {
				assert.Equal(t, sentinel == tt.target, errors.Is(err, sentinel), sentinel.Error())
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Kind: KindTransient, Err: cause}

	assert.ErrorIs(t, err, cause)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusCode(fmt.Errorf("x: %w", &Error{StatusCode: http.StatusConflict})))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "service_unavailable", KindServiceUnavailable.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

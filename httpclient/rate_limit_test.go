package httpclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitTransport(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *RateLimitConfig
		requests int
		wantErrs int
	}{
		{
			name:     "given no config, then passes everything through",
			requests: 5,
		},
		{
			name:     "given burst of two without waiting, then rejects the rest",
			cfg:      &RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2},
			requests: 4,
			wantErrs: 2,
		},
		{
			name:     "given waiting limiter, then paces requests",
			cfg:      &RateLimitConfig{RequestsPerSecond: 200, Burst: 1, WaitOnLimit: true},
			requests: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockTransport().StubResponse(http.StatusOK, "")
			rt := newRateLimitTransport(mock, tt.cfg)

			errs := 0
			for range tt.requests {
				req, _ := http.NewRequest(http.MethodGet, "http://example.com/plants", nil)
				resp, err := rt.RoundTrip(req)
				if err != nil {
					assert.ErrorIs(t, err, ErrLocalRateLimit)
					errs++
					continue
				}
				resp.Body.Close()
			}

			assert.Equal(t, tt.wantErrs, errs)
			assert.Equal(t, tt.requests-tt.wantErrs, mock.RequestCount())
		})
	}
}

func TestRateLimitTransport_ContextDeadline(t *testing.T) {
	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	rt := newRateLimitTransport(mock, &RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1, WaitOnLimit: true})

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/plants", nil)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	req, _ = http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com/plants", nil)

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocalRateLimit)
}

func TestClient_LocalRateLimitIsNotRetried(t *testing.T) {
	mock := NewMockTransport().StubResponse(http.StatusOK, `{}`)
	client := newTestClient(mock, WithRateLimit(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}))

	_, err := client.Call(context.Background(), http.MethodGet, "/plants", nil)
	require.NoError(t, err)

	_, err = client.Call(context.Background(), http.MethodGet, "/plants", nil)
	require.ErrorIs(t, err, ErrLocalRateLimit)
	assert.Equal(t, 1, mock.RequestCount())
	assert.False(t, client.IsOpen("/plants"))
}

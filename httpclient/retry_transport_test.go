package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRetryLedger_Next(t *testing.T) {
	clock := newFakeClock()
	ledger := newRetryLedger(clock.Now, DefaultStaleAfter)

	var delays []time.Duration
	for {
		d, ok := ledger.next("/plants", DefaultMaxAttempts, DefaultBackoffDelay)
		if !ok {
			break
		}
		delays = append(delays, d)
	}

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)

	st, ok := ledger.get("/plants")
	require.True(t, ok)
	assert.Equal(t, uint(3), st.Count)
	assert.Equal(t, clock.Now(), st.Timestamp)
}

func TestRetryLedger_Stale(t *testing.T) {
	tests := []struct {
		name      string
		bookings  []time.Duration
		want      time.Duration
		wantCount uint
	}{
		{
			name:      "given entry younger than five minutes, then continues schedule",
			bookings:  []time.Duration{0, 0, 4 * time.Minute},
			want:      4 * time.Second,
			wantCount: 3,
		},
		{
			name:      "given entry older than five minutes, then restarts schedule",
			bookings:  []time.Duration{0, 0, 5*time.Minute + time.Second},
			want:      time.Second,
			wantCount: 1,
		},
		{
			name:      "given retries keep arriving, then age is measured from the first one",
			bookings:  []time.Duration{0, 4 * time.Minute, 6 * time.Minute},
			want:      time.Second,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			start := clock.Now()
			ledger := newRetryLedger(clock.Now, DefaultStaleAfter)

			var (
				d  time.Duration
				ok bool
			)
			for _, at := range tt.bookings {
				clock.Advance(start.Add(at).Sub(clock.Now()))
				d, ok = ledger.next("/plants", 3, time.Second)
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, d)

			st, found := ledger.get("/plants")
			require.True(t, found)
			assert.Equal(t, tt.wantCount, st.Count)
			assert.Equal(t, start.Add(tt.bookings[len(tt.bookings)-int(tt.wantCount)]), st.Timestamp)
		})
	}
}

func TestRetryLedger_PerEndpoint(t *testing.T) {
	ledger := newRetryLedger(newFakeClock().Now, DefaultStaleAfter)

	ledger.next("/plants", 3, time.Second)
	ledger.next("/plants", 3, time.Second)

	d, ok := ledger.next("/alerts", 3, time.Second)
	require.True(t, ok)
	assert.Equal(t, time.Second, d)

	ledger.clear("/plants")
	_, ok = ledger.get("/plants")
	assert.False(t, ok)

	st, ok := ledger.get("/alerts")
	require.True(t, ok)
	assert.Equal(t, uint(1), st.Count)
}

func TestRetryTransport_RoundTrip(t *testing.T) {
	reset := errors.New("read: connection reset by peer")

	tests := []struct {
		name         string
		method       string
		replies      []MockReply
		retry        func(*RetryConfig)
		wantCalls    int
		wantErr      error
		wantStatus   int
		wantRetries  int
		wantLedger   bool
		wantLedgerAt uint
	}{
		{
			name:        "given 503 then 200, then retries and succeeds",
			method:      http.MethodGet,
			replies:     []MockReply{{Status: 503}, {Status: 503}, {Status: 200, Body: `[]`}},
			wantCalls:   3,
			wantRetries: 2,
		},
		{
			name:        "given persistent 503, then gives up after three retries",
			method:      http.MethodGet,
			replies:     []MockReply{{Status: 503}},
			wantCalls:   4,
			wantErr:     ErrServiceUnavailable,
			wantStatus:  503,
			wantRetries: 3,
		},
		{
			name:        "given persistent network error, then reports unavailable",
			method:      http.MethodDelete,
			replies:     []MockReply{{Err: reset}},
			wantCalls:   4,
			wantErr:     ErrServiceUnavailable,
			wantRetries: 3,
		},
		{
			name:       "given POST with 503, then does not retry",
			method:     http.MethodPost,
			replies:    []MockReply{{Status: 503}},
			wantCalls:  1,
			wantErr:    ErrTransient,
			wantStatus: 503,
		},
		{
			name:        "given POST with retries for non-idempotent enabled, then retries",
			method:      http.MethodPost,
			replies:     []MockReply{{Status: 502}, {Status: 201, Body: `{}`}},
			retry:       func(rc *RetryConfig) { rc.RetryNonIdempotent = true },
			wantCalls:   2,
			wantRetries: 1,
		},
		{
			name:       "given retries disabled, then first failure is final",
			method:     http.MethodGet,
			replies:    []MockReply{{Status: 500}},
			retry:      func(rc *RetryConfig) { rc.Enabled = false },
			wantCalls:  1,
			wantErr:    ErrTransient,
			wantStatus: 500,
		},
		{
			name:       "given 404, then does not retry",
			method:     http.MethodGet,
			replies:    []MockReply{{Status: 404}},
			wantCalls:  1,
			wantErr:    ErrClientError,
			wantStatus: 404,
		},
		{
			name:         "given permanent error after a retry, then keeps ledger entry",
			method:       http.MethodGet,
			replies:      []MockReply{{Status: 503}, {Err: errors.New("x509: certificate signed by unknown authority")}},
			wantCalls:    2,
			wantErr:      ErrTransient,
			wantRetries:  1,
			wantLedger:   true,
			wantLedgerAt: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockTransport().StubSequence("/plants", tt.replies...)

			rc := fastRetryConfig()
			if tt.retry != nil {
				tt.retry(&rc)
			}
			client := newTestClient(mock, WithRetryConfig(rc))

			resp, err := client.Request("test").Path("/plants").Body(map[string]int{"n": 1}).Send(context.Background(), tt.method)

			assert.Equal(t, tt.wantCalls, mock.RequestCount())

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)

				var herr *Error
				require.ErrorAs(t, err, &herr)
				assert.Equal(t, tt.wantStatus, herr.StatusCode)
				assert.Equal(t, tt.wantRetries, herr.Retries)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRetries, resp.Retries())
			}

			st, ok := client.RetryStatus("/plants")
			assert.Equal(t, tt.wantLedger, ok)
			if tt.wantLedger {
				assert.Equal(t, tt.wantLedgerAt, st.Count)
			}
		})
	}
}

func TestRetryTransport_SharedLedger(t *testing.T) {
	mock := NewMockTransport().StubPath("/plants", http.StatusServiceUnavailable, "")
	client := newTestClient(mock)

	// Another request already used up the endpoint's retries.
	for range DefaultMaxAttempts {
		client.retry.ledger.next("/plants", DefaultMaxAttempts, time.Millisecond)
	}

	_, err := client.Call(context.Background(), http.MethodGet, "/plants", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, 1, mock.RequestCount())

	_, ok := client.RetryStatus("/plants")
	assert.False(t, ok, "exhaustion clears the ledger")
}

func TestRetryTransport_ReplaysBody(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	mock := NewMockTransport().
		StubSequence("/workorders/4",
			MockReply{Status: 500},
			MockReply{Status: 200, Body: `{}`},
		).
		OnRequest(func(req *http.Request) {
			b, _ := io.ReadAll(req.Body)
			mu.Lock()
			bodies = append(bodies, string(b))
			mu.Unlock()
		})
	client := newTestClient(mock)

	_, err := client.Call(context.Background(), http.MethodPut, "/workorders/4", map[string]string{"status": "done"})
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"status":"done"}`, bodies[0])
	assert.Equal(t, bodies[0], bodies[1])
}

func TestRetryTransport_AttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	mock := NewMockTransport().
		StubPath("/plants", http.StatusOK, `[]`).
		OnRequest(func(req *http.Request) {
			if calls.Add(1) == 1 {
				<-req.Context().Done()
			}
		})

	hc := DefaultConfig()
	hc.Timeout = 20 * time.Millisecond
	client := newTestClient(mock, WithConfig(hc))

	resp, err := client.Request("test").Path("/plants").Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Retries())
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetryTransport_CallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := NewMockTransport().
		StubPath("/plants", http.StatusOK, `[]`).
		OnRequest(func(*http.Request) { cancel() })
	client := newTestClient(mock)

	_, err := client.Call(ctx, http.MethodGet, "/plants", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.RequestCount())
	assert.False(t, client.IsOpen("/plants"))
}

func TestRetryReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "given status error, then labels status", err: &retryableStatusError{statusCode: 503}, want: "http_Service Unavailable"},
		{name: "given attempt timeout, then labels timeout", err: ErrAttemptTimeout, want: "attempt_timeout"},
		{name: "given connection reset, then labels network", err: errors.New("connection reset"), want: "network_error"},
		{name: "given other error, then unknown", err: errors.New("weird"), want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryReason(tt.err))
		})
	}
}

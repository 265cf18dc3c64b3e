package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrAttemptTimeout marks an attempt that ran past Config.Timeout while the
// caller's own context was still live. Such attempts are retried.
var ErrAttemptTimeout = errors.New("attempt timed out")

// retryableStatusError carries a retryable HTTP status through backoff.Retry,
// which only understands errors.
type retryableStatusError struct {
	statusCode int
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.statusCode, http.StatusText(e.statusCode))
}

// RetryState is the retry bookkeeping for one endpoint. Timestamp is the
// time of the first retry booked since the entry was created.
type RetryState struct {
	Count     uint
	Timestamp time.Time
}

// retryLedger tracks retries per endpoint across logical requests.
type retryLedger struct {
	mu         sync.Mutex
	entries    map[string]*RetryState
	now        func() time.Time
	staleAfter time.Duration
}

func newRetryLedger(now func() time.Time, staleAfter time.Duration) *retryLedger {
	return &retryLedger{
		entries:    make(map[string]*RetryState),
		now:        now,
		staleAfter: staleAfter,
	}
}

// next books another retry for endpoint and returns the delay before it,
// or false once maxAttempts retries have been booked.
func (l *retryLedger) next(endpoint string, maxAttempts uint, base time.Duration) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	st, ok := l.entries[endpoint]
	if !ok || (l.staleAfter > 0 && now.Sub(st.Timestamp) > l.staleAfter) {
		st = &RetryState{Timestamp: now}
		l.entries[endpoint] = st
	}

	if st.Count >= maxAttempts {
		return 0, false
	}

	delay := base << st.Count
	st.Count++
	return delay, true
}

func (l *retryLedger) clear(endpoint string) {
	l.mu.Lock()
	delete(l.entries, endpoint)
	l.mu.Unlock()
}

func (l *retryLedger) get(endpoint string) (RetryState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.entries[endpoint]
	if !ok {
		return RetryState{}, false
	}
	return *st, true
}

// ledgerBackOff adapts the ledger to backoff.BackOff for one logical request.
type ledgerBackOff struct {
	ledger   *retryLedger
	endpoint string
	cfg      RetryConfig
}

func (b *ledgerBackOff) NextBackOff() time.Duration {
	delay, ok := b.ledger.next(b.endpoint, b.cfg.MaxAttempts, b.cfg.BackoffDelay)
	if !ok {
		return backoff.Stop
	}
	return delay
}

// Reset is a no-op: the schedule lives in the ledger, not in the request.
func (b *ledgerBackOff) Reset() {}

// attemptStats reports back to the client how many retries a request took.
type attemptStats struct {
	retries   int
	exhausted bool
}

type attemptStatsKey struct{}

func withAttemptStats(ctx context.Context, stats *attemptStats) context.Context {
	return context.WithValue(ctx, attemptStatsKey{}, stats)
}

func attemptStatsFrom(ctx context.Context) *attemptStats {
	if s, ok := ctx.Value(attemptStatsKey{}).(*attemptStats); ok {
		return s
	}
	return nil
}

// retryTransport wraps an http.RoundTripper with retry logic and the
// per-attempt timeout.
type retryTransport struct {
	base       http.RoundTripper
	cfg        *internalConfig
	classifier RetryClassifier
	ledger     *retryLedger
}

// newRetryTransport creates a new retry transport wrapper.
func newRetryTransport(base http.RoundTripper, cfg *internalConfig) *retryTransport {
	classifier := cfg.RetryClassifier
	if classifier == nil {
		classifier = DefaultClassifier
	}

	return &retryTransport{
		base:       base,
		cfg:        cfg,
		classifier: classifier,
		ledger:     newRetryLedger(cfg.now, cfg.RetryConfig.StaleAfter),
	}
}

// RoundTrip implements http.RoundTripper with automatic retries.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.cfg.RetryConfig.allows(req.Method) {
		return t.attempt(req)
	}

	ctx := req.Context()
	rc := t.cfg.RetryConfig
	endpoint := t.cfg.endpointKey(req.URL)

	// Capture request body for potential retries
	var bodyBytes []byte
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	span := trace.SpanFromContext(ctx)
	stats := attemptStatsFrom(ctx)

	var (
		last      *http.Response
		permanent bool
		attempt   int
		startTime = time.Now()
	)

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(&ledgerBackOff{ledger: t.ledger, endpoint: endpoint, cfg: rc}),
		backoff.WithMaxTries(rc.MaxAttempts + 1),
		backoff.WithNotify(func(err error, next time.Duration) {
			attempt++
			if stats != nil {
				stats.retries = attempt
			}
			t.recordRetryEvent(span, attempt, err, next)
			t.cfg.Metrics.recordRetryAttempt(ctx, t.cfg.baseAttributes(), attempt)
			t.cfg.Logger.Debug().
				Str("method", req.Method).
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("delay", next).
				Err(err).
				Msg("retrying request")
		}),
	}

	resp, err := backoff.Retry(ctx, func() (*http.Response, error) {
		reqClone := t.cloneRequest(req, bodyBytes)

		resp, err := t.attempt(reqClone)

		if t.classifier(resp, err) {
			if resp != nil {
				// Keep the last failed answer for the caller once retries run out.
				last = bufferResponse(resp)
				return nil, &retryableStatusError{statusCode: resp.StatusCode}
			}
			last = nil
			return nil, err
		}

		if err != nil {
			permanent = true
			return nil, backoff.Permanent(err)
		}

		return resp, nil
	}, retryOpts...)

	if attempt > 0 {
		span.SetAttributes(
			attribute.Int("http.retry_count", attempt),
			attribute.Bool("http.retry_success", err == nil),
		)
	}
	t.cfg.Metrics.recordRetryDuration(ctx, t.cfg.baseAttributes(), time.Since(startTime))

	if err == nil {
		t.ledger.clear(endpoint)
		return resp, nil
	}

	if permanent {
		var perr *backoff.PermanentError
		if errors.As(err, &perr) {
			return nil, perr.Unwrap()
		}
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, err
	}

	// Retries exhausted.
	if stats != nil {
		stats.exhausted = true
	}
	t.ledger.clear(endpoint)
	t.cfg.Metrics.recordRetryExhausted(ctx, t.cfg.baseAttributes())
	t.cfg.Logger.Warn().
		Str("method", req.Method).
		Str("endpoint", endpoint).
		Int("retries", attempt).
		Err(err).
		Msg("retries exhausted")

	var serr *retryableStatusError
	if errors.As(err, &serr) && last != nil {
		return last, nil
	}
	return nil, err
}

// attempt performs a single round trip bounded by the per-attempt timeout.
func (t *retryTransport) attempt(req *http.Request) (*http.Response, error) {
	timeout := t.cfg.httpConfig.Timeout
	if timeout <= 0 {
		return t.base.RoundTrip(req)
	}

	parent := req.Context()
	ctx, cancel := context.WithTimeout(parent, timeout)

	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		if parent.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", ErrAttemptTimeout, timeout, err)
		}
		return nil, err
	}

	resp.Body = newCancelOnCloseBody(resp.Body, cancel)
	return resp, nil
}

// cloneRequest creates a copy of the request with a fresh body.
func (t *retryTransport) cloneRequest(req *http.Request, bodyBytes []byte) *http.Request {
	clone := req.Clone(req.Context())

	if bodyBytes != nil {
		clone.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		clone.ContentLength = int64(len(bodyBytes))
	} else if req.GetBody != nil {
		var err error
		clone.Body, err = req.GetBody()
		if err != nil {
			clone.Body = req.Body
		}
	}

	return clone
}

// recordRetryEvent adds a span event for the retry attempt.
func (t *retryTransport) recordRetryEvent(
	span trace.Span,
	attempt int,
	err error,
	nextDelay time.Duration,
) {
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Int("retry.attempt", attempt),
		attribute.Int64("retry.delay_ms", nextDelay.Milliseconds()),
	}

	if err != nil {
		attrs = append(attrs, attribute.String("retry.reason", retryReason(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.AddEvent("http.retry", trace.WithAttributes(attrs...))
}

// bufferResponse reads the body into memory so the connection can be reused
// while the response itself stays readable.
func bufferResponse(resp *http.Response) *http.Response {
	if resp.Body == nil {
		return resp
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp
}

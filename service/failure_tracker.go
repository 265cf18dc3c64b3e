package service

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Defaults for the failure backoff window.
const (
	DefaultBackoffInitial = 30 * time.Second
	DefaultBackoffMax     = 5 * time.Minute
)

// Record is the failure bookkeeping for one endpoint.
type Record struct {
	Failures     int
	LastFailure  time.Time
	BackoffUntil time.Time
}

// EndpointStatus is the diagnostic view of one tracked endpoint.
type EndpointStatus struct {
	Record
	InBackoff bool
}

type trackedEndpoint struct {
	Record
	schedule *backoff.ExponentialBackOff
}

// FailureTracker rests endpoints after consecutive failures. The n-th
// consecutive failure opens a window of min(initial × 2^(n-1), ceiling). A
// success forgets the endpoint entirely.
//
// FailureTracker is safe for concurrent use.
type FailureTracker struct {
	mu        sync.Mutex
	endpoints map[string]*trackedEndpoint
	initial   time.Duration
	ceiling   time.Duration
	now       func() time.Time
}

// NewFailureTracker creates a tracker with the given window bounds. Zero
// values fall back to the defaults.
func NewFailureTracker(initial, ceiling time.Duration, now func() time.Time) *FailureTracker {
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if ceiling <= 0 {
		ceiling = DefaultBackoffMax
	}
	if now == nil {
		now = time.Now
	}
	return &FailureTracker{
		endpoints: make(map[string]*trackedEndpoint),
		initial:   initial,
		ceiling:   ceiling,
		now:       now,
	}
}

// newSchedule returns a jitter-free exponential schedule, so that the window
// is exactly reproducible.
func (t *FailureTracker) newSchedule() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     t.initial,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         t.ceiling,
	}
	b.Reset()
	return b
}

// InBackoff reports whether endpoint is resting.
func (t *FailureTracker) InBackoff(endpoint string) bool {
	return t.Remaining(endpoint) > 0
}

// Remaining returns how long endpoint keeps resting, or 0.
func (t *FailureTracker) Remaining(endpoint string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.endpoints[endpoint]
	if !ok {
		return 0
	}
	if d := e.BackoffUntil.Sub(t.now()); d > 0 {
		return d
	}
	return 0
}

// RecordFailure counts a failure and extends the endpoint's window.
func (t *FailureTracker) RecordFailure(endpoint string) Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.endpoints[endpoint]
	if !ok {
		e = &trackedEndpoint{schedule: t.newSchedule()}
		t.endpoints[endpoint] = e
	}

	now := t.now()
	e.Failures++
	e.LastFailure = now
	e.BackoffUntil = now.Add(e.schedule.NextBackOff())
	return e.Record
}

// RecordSuccess forgets endpoint.
func (t *FailureTracker) RecordSuccess(endpoint string) {
	t.mu.Lock()
	delete(t.endpoints, endpoint)
	t.mu.Unlock()
}

// Status returns a snapshot of every tracked endpoint.
func (t *FailureTracker) Status() map[string]EndpointStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	out := make(map[string]EndpointStatus, len(t.endpoints))
	for k, e := range t.endpoints {
		out[k] = EndpointStatus{
			Record:    e.Record,
			InBackoff: now.Before(e.BackoffUntil),
		}
	}
	return out
}

// Reset forgets every endpoint.
func (t *FailureTracker) Reset() {
	t.mu.Lock()
	t.endpoints = make(map[string]*trackedEndpoint)
	t.mu.Unlock()
}

package httpclient

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"
)

// MockTransport provides a configurable http.RoundTripper for testing code
// that uses a Client. Plug it in with WithMockTransport; the breaker, retry
// and error mapping still run on top of it.
//
//	mock := httpclient.NewMockTransport().
//	    StubSequence("/plants",
//	        httpclient.MockReply{Status: 503},
//	        httpclient.MockReply{Status: 200, Body: `[]`},
//	    )
//	client := httpclient.New(httpclient.WithMockTransport(mock))
type MockTransport struct {
	mu          sync.Mutex
	stubs       []*stub
	defaultResp *MockReply
	defaultErr  error
	requests    []*http.Request
	requestHook func(*http.Request)
}

// MockReply is one canned answer. A non-nil Err makes the round trip fail
// instead of returning a response.
type MockReply struct {
	Status int
	Body   string
	Header http.Header
	Err    error
}

type stub struct {
	matcher func(*http.Request) bool
	replies []MockReply
	next    int
}

// reply returns the stub's next reply; the last one repeats.
func (s *stub) reply() MockReply {
	r := s.replies[s.next]
	if s.next < len(s.replies)-1 {
		s.next++
	}
	return r
}

// NewMockTransport creates a new MockTransport for testing.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// StubResponse stubs all unmatched requests to return the given response.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResp = &MockReply{Status: statusCode, Body: body}
	return m
}

// StubError stubs all unmatched requests to fail with err.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultErr = err
	return m
}

// StubPath stubs requests for path to return the given response.
func (m *MockTransport) StubPath(path string, statusCode int, body string) *MockTransport {
	return m.StubSequence(path, MockReply{Status: statusCode, Body: body})
}

// StubSequence stubs requests for path to return replies in order, repeating
// the last one once the sequence is used up.
func (m *MockTransport) StubSequence(path string, replies ...MockReply) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.URL.Path == path
	}, replies...)
}

// StubFunc stubs requests matching the predicate. The first matching stub wins.
func (m *MockTransport) StubFunc(matcher func(*http.Request) bool, replies ...MockReply) *MockTransport {
	if len(replies) == 0 {
		replies = []MockReply{{Status: http.StatusOK}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, &stub{matcher: matcher, replies: replies})
	return m
}

// OnRequest sets a hook that is called for each request.
// Useful for assertions or capturing request details.
func (m *MockTransport) OnRequest(fn func(*http.Request)) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHook = fn
	return m
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	hook := m.requestHook
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.stubs {
		if s.matcher(req) {
			return s.reply().response(req)
		}
	}

	if m.defaultErr != nil {
		return nil, m.defaultErr
	}
	if m.defaultResp != nil {
		return m.defaultResp.response(req)
	}

	return nil, errors.New("no stub found for request: " + req.Method + " " + req.URL.String())
}

func (r MockReply) response(req *http.Request) (*http.Response, error) {
	if r.Err != nil {
		return nil, r.Err
	}

	header := make(http.Header)
	for k, v := range r.Header {
		header[k] = append([]string(nil), v...)
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}

	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}

	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Header:        header,
		Body:          io.NopCloser(bytes.NewBufferString(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}, nil
}

// Requests returns all requests made through this transport.
func (m *MockTransport) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request{}, m.requests...)
}

// RequestCount returns the number of requests made.
func (m *MockTransport) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil if none.
func (m *MockTransport) LastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears all recorded requests and stubs.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.stubs = nil
	m.defaultResp = nil
	m.defaultErr = nil
	m.requestHook = nil
}

// WithMockTransport is a convenience function to create a client with a mock transport.
func WithMockTransport(mock *MockTransport) Option {
	return WithBaseTransport(mock)
}

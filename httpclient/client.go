package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Client is the HTTP transport for the backend API: every request gets the
// standard headers, normalized dates and heartbeat params, and runs through
// its endpoint's circuit breaker and the retry schedule.
//
// Create a Client using New() and pass it to the services that need it:
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.solarops.example/api"),
//	    httpclient.WithTokenSource(ts),
//	)
//
//	var plants []Plant
//	_, err := client.Request("ListPlants").
//	    Path("/plants").
//	    Decode(&plants).
//	    Get(ctx)
type Client struct {
	// httpClient is the underlying HTTP client with transport chain.
	httpClient *http.Client

	// config holds all client configuration.
	config *internalConfig

	// interceptors run once per logical request.
	interceptors *InterceptorChain

	// breakers is nil when the circuit breaker is disabled.
	breakers *breakerRegistry

	// retry owns the per-endpoint retry ledger.
	retry *retryTransport
}

// New creates a Client with the full transport chain:
//
//	tracing → circuit breaker → retry → rate limit → network
//
// The breaker sits outside the retry loop, so one logical request records
// one breaker outcome no matter how many attempts it took.
//
// Example - with a shorter breaker timeout:
//
//	bc := httpclient.DefaultBreakerConfig()
//	bc.OpenTimeout = 30 * time.Second
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.solarops.example"),
//	    httpclient.WithBreakerConfig(bc),
//	)
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)

	paced := newRateLimitTransport(cfg.buildTransport(), cfg.RateLimit)
	retry := newRetryTransport(paced, cfg)

	var (
		next     http.RoundTripper = retry
		breakers *breakerRegistry
	)
	if cfg.BreakerConfig != nil {
		breakers = newBreakerRegistry(cfg)
		next = newCircuitBreakerTransport(retry, breakers)
	}

	// No client-wide Timeout: each attempt is bounded separately.
	httpClient := &http.Client{
		Transport: newOtelTransport(next, cfg),
	}

	return &Client{
		httpClient:   httpClient,
		config:       cfg,
		interceptors: builtinInterceptors(cfg),
		breakers:     breakers,
		retry:        retry,
	}
}

// HTTP returns the underlying *http.Client for advanced use cases.
// Requests sent through it skip interceptors, normalization and error mapping
// but still pass through the breaker and retry transports.
func (c *Client) HTTP() *http.Client {
	return c.httpClient
}

// Request creates a new RequestBuilder for the given operation name.
// The operation name identifies the request in debug logs.
func (c *Client) Request(operationName string) *RequestBuilder {
	return &RequestBuilder{
		client:        c,
		operationName: operationName,
		headers:       make(http.Header),
		pathParams:    make(map[string]string),
	}
}

// Call sends body (which may be nil) to endpoint and returns the response
// body of a successful answer. endpoint is a path relative to the base URL
// and may carry a query string.
func (c *Client) Call(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	resp, err := c.Request(method + " " + endpoint).
		Path(endpoint).
		Body(body).
		Send(ctx, method)
	if err != nil {
		return nil, err
	}
	return resp.Body()
}

// EndpointKey returns the breaker and retry key used for a request target.
func (c *Client) EndpointKey(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return EndpointKey(target)
	}
	return c.config.endpointKey(u)
}

// IsOpen reports whether the breaker for endpoint is rejecting requests.
// An open breaker whose timeout has elapsed reports false: it is half-open
// and will let a trial request through.
func (c *Client) IsOpen(endpoint string) bool {
	if c.breakers == nil {
		return false
	}
	b, ok := c.breakers.lookup(c.EndpointKey(endpoint))
	if !ok {
		return false
	}
	return b.cb.State() == gobreaker.StateOpen
}

// BreakerStatus returns a snapshot of every endpoint breaker created so far.
func (c *Client) BreakerStatus() map[string]BreakerState {
	if c.breakers == nil {
		return map[string]BreakerState{}
	}
	return c.breakers.status()
}

// RetryStatus returns the retry bookkeeping for endpoint, if any is held.
func (c *Client) RetryStatus(endpoint string) (RetryState, bool) {
	return c.retry.ledger.get(c.EndpointKey(endpoint))
}

// execute builds and sends the HTTP request.
func (c *Client) execute(ctx context.Context, rb *RequestBuilder, method string) (*Response, error) {
	targetURL, err := rb.buildURL()
	if err != nil {
		return nil, err
	}

	payload, err := rb.encodeBody()
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	stats := &attemptStats{}
	req, err := http.NewRequestWithContext(withAttemptStats(ctx, stats), method, targetURL, body)
	if err != nil {
		return nil, err
	}

	for k, v := range rb.headers {
		req.Header[k] = v
	}

	if err := c.interceptors.ApplyRequestInterceptors(req); err != nil {
		return nil, err
	}

	endpoint := c.config.endpointKey(req.URL)
	logRequest(c.config.Logger, req, rb.operationName)
	start := time.Now()

	//nolint:bodyclose // Caller closes via Response
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(req, endpoint, stats, err)
	}

	logResponse(c.config.Logger, req, httpResp, stats.retries, time.Since(start))

	resp := &Response{
		Response: httpResp,
		result:   rb.result,
		retries:  stats.retries,
	}

	if err := c.interceptors.ApplyResponseInterceptors(httpResp, req); err != nil {
		// Drain and close so the connection and the attempt timeout are
		// released; the body stays readable through resp.
		_, _ = resp.Body()
		return resp, err
	}

	if err := c.statusError(req, endpoint, stats, resp); err != nil {
		return resp, err
	}

	if err := resp.decode(); err != nil {
		return resp, err
	}

	return resp, nil
}

// transportError maps an error from the transport chain to the error kinds.
func (c *Client) transportError(req *http.Request, endpoint string, stats *attemptStats, err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	switch {
	case isBreakerRejection(err):
		return &Error{
			Kind:     KindServiceUnavailable,
			Method:   req.Method,
			Endpoint: endpoint,
			Err:      err,
		}
	case req.Context().Err() != nil, errors.Is(err, ErrLocalRateLimit):
		return err
	case stats.exhausted:
		return &Error{
			Kind:     KindServiceUnavailable,
			Method:   req.Method,
			Endpoint: endpoint,
			Retries:  stats.retries,
			Err:      err,
		}
	default:
		return &Error{
			Kind:     KindTransient,
			Method:   req.Method,
			Endpoint: endpoint,
			Retries:  stats.retries,
			Err:      err,
		}
	}
}

// statusError maps a non-2xx/3xx response to an *Error and runs the 401 hook.
func (c *Client) statusError(req *http.Request, endpoint string, stats *attemptStats, resp *Response) error {
	code := resp.StatusCode
	if code < http.StatusBadRequest {
		return nil
	}

	body, _ := resp.Body()
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	e := &Error{
		Method:     req.Method,
		Endpoint:   endpoint,
		StatusCode: code,
		Retries:    stats.retries,
		Body:       body,
	}

	switch {
	case code == http.StatusUnauthorized:
		e.Kind = KindAuthentication
		c.config.Logger.Warn().
			Str("endpoint", endpoint).
			Msg("request unauthorized, clearing session")
		if c.config.OnUnauthorized != nil {
			c.config.OnUnauthorized(req)
		}
	case code == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.RetryAfter = resp.Header.Get("Retry-After")
	case code >= http.StatusInternalServerError && stats.exhausted:
		e.Kind = KindServiceUnavailable
	case code >= http.StatusInternalServerError:
		e.Kind = KindTransient
	default:
		e.Kind = KindClientError
	}

	return e
}

package httpclient

import (
	"net/http"

	"golang.org/x/oauth2"
)

// Headers attached to every request by the built-in interceptors.
const (
	HeaderRequestID      = "X-Request-ID"
	HeaderFunctionsKey   = "x-functions-key"
	HeaderClientVersion  = "X-Client-Version"
	HeaderClientPlatform = "X-Client-Platform"
	HeaderEnvironment    = "X-Environment"
)

// RequestInterceptor allows modification of requests before they are sent.
// Interceptors are executed in the order they are added, once per logical
// request: retries resend the same headers, including X-Request-ID.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor allows inspection of responses after receipt and
// before status codes are mapped to errors.
type ResponseInterceptor func(resp *http.Response, req *http.Request) error

// InterceptorChain manages request and response interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates an empty interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(i RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, i)
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(i ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, i)
}

// ApplyRequestInterceptors runs all request interceptors in order.
// Returns an error if any interceptor fails.
func (c *InterceptorChain) ApplyRequestInterceptors(req *http.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(req); err != nil {
			return err
		}
	}
	return nil
}

// ApplyResponseInterceptors runs all response interceptors in order.
// Returns an error if any interceptor fails.
func (c *InterceptorChain) ApplyResponseInterceptors(resp *http.Response, req *http.Request) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(resp, req); err != nil {
			return err
		}
	}
	return nil
}

// builtinInterceptors assembles the standard header interceptors followed by
// the ones registered through options.
func builtinInterceptors(cfg *internalConfig) *InterceptorChain {
	chain := NewInterceptorChain()

	static := http.Header{}
	static.Set("Content-Type", "application/json")
	if cfg.ClientVersion != "" {
		static.Set(HeaderClientVersion, cfg.ClientVersion)
	}
	if cfg.ClientPlatform != "" {
		static.Set(HeaderClientPlatform, cfg.ClientPlatform)
	}
	if cfg.Environment != "" {
		static.Set(HeaderEnvironment, cfg.Environment)
	}
	for k, v := range cfg.DefaultHeaders {
		static[k] = v
	}
	chain.AddRequestInterceptor(StaticHeadersInterceptor(static))

	if cfg.RequestIDFunc != nil {
		chain.AddRequestInterceptor(CorrelationIDInterceptor(HeaderRequestID, cfg.RequestIDFunc))
	}
	if cfg.TokenSource != nil {
		chain.AddRequestInterceptor(TokenSourceInterceptor(cfg.TokenSource))
	}
	if cfg.Environment == EnvironmentProduction && cfg.APIKey != "" {
		chain.AddRequestInterceptor(APIKeyInterceptor(HeaderFunctionsKey, cfg.APIKey))
	}

	if cfg.Interceptors != nil {
		chain.requestInterceptors = append(chain.requestInterceptors, cfg.Interceptors.requestInterceptors...)
		chain.responseInterceptors = append(chain.responseInterceptors, cfg.Interceptors.responseInterceptors...)
	}
	return chain
}

// Common interceptor helpers

// StaticHeadersInterceptor sets each header unless the request already has it.
func StaticHeadersInterceptor(headers http.Header) RequestInterceptor {
	return func(req *http.Request) error {
		for k, v := range headers {
			if req.Header.Get(k) == "" {
				req.Header[k] = append([]string(nil), v...)
			}
		}
		return nil
	}
}

// TokenSourceInterceptor adds a Bearer token taken from ts. When no token is
// available the request goes out unauthenticated and the 401 path takes over.
func TokenSourceInterceptor(ts oauth2.TokenSource) RequestInterceptor {
	return func(req *http.Request) error {
		tok, err := ts.Token()
		if err != nil || tok == nil || tok.AccessToken == "" {
			return nil
		}
		tok.SetAuthHeader(req)
		return nil
	}
}

// APIKeyInterceptor creates an interceptor that adds an API key header.
func APIKeyInterceptor(headerName, apiKey string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set(headerName, apiKey)
		return nil
	}
}

// CorrelationIDInterceptor creates an interceptor that adds a correlation ID.
func CorrelationIDInterceptor(headerName string, idFunc func() string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set(headerName, idFunc())
		return nil
	}
}

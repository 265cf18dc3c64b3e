package httpclient

import "net/http"

//go:generate mockery --name RoundTripper --output ./mocks --outpkg mocks --with-expecter

// RoundTripper mirrors http.RoundTripper so that tests can put a mock below
// the breaker and retry transports.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

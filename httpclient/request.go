package httpclient

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/kroma-labs/solarops/normalize"
)

// RequestBuilder provides a fluent API for constructing HTTP requests.
//
// Create a RequestBuilder using Client.Request():
//
//	resp, err := client.Request("GetWeather").
//	    Path("/plants/{id}/weather").
//	    PathParam("id", plantID).
//	    Query("date", "2024-03-05").
//	    Get(ctx)
//
// Query values and the JSON body are normalized before sending: date-shaped
// values are rewritten to DD-MM-YYYY (see package normalize).
type RequestBuilder struct {
	client        *Client
	operationName string
	path          string
	pathParams    map[string]string
	queryParams   url.Values
	headers       http.Header
	body          any
	result        any
}

// Path sets the request path. It may carry a query string.
//
// The path is appended to the client's base URL. Path parameters
// can be specified using {name} syntax and filled with PathParam().
func (rb *RequestBuilder) Path(path string) *RequestBuilder {
	rb.path = path
	return rb
}

// PathParam sets a path parameter value.
func (rb *RequestBuilder) PathParam(key, value string) *RequestBuilder {
	rb.pathParams[key] = value
	return rb
}

// Query sets a single query parameter.
func (rb *RequestBuilder) Query(key, value string) *RequestBuilder {
	if rb.queryParams == nil {
		rb.queryParams = make(url.Values)
	}
	rb.queryParams.Set(key, value)
	return rb
}

// Queries adds every value in params.
func (rb *RequestBuilder) Queries(params url.Values) *RequestBuilder {
	if rb.queryParams == nil {
		rb.queryParams = make(url.Values)
	}
	for k, v := range params {
		for _, vv := range v {
			rb.queryParams.Add(k, vv)
		}
	}
	return rb
}

// Header sets a single request header.
func (rb *RequestBuilder) Header(key, value string) *RequestBuilder {
	rb.headers.Set(key, value)
	return rb
}

// Body sets the request body. Anything that marshals to JSON is accepted;
// []byte and json.RawMessage are taken as already-encoded JSON.
func (rb *RequestBuilder) Body(v any) *RequestBuilder {
	rb.body = v
	return rb
}

// Decode sets the target for automatic decoding of a 2xx response body.
func (rb *RequestBuilder) Decode(v any) *RequestBuilder {
	rb.result = v
	return rb
}

// Get executes a GET request.
func (rb *RequestBuilder) Get(ctx context.Context) (*Response, error) {
	return rb.Send(ctx, http.MethodGet)
}

// Post executes a POST request.
func (rb *RequestBuilder) Post(ctx context.Context) (*Response, error) {
	return rb.Send(ctx, http.MethodPost)
}

// Put executes a PUT request.
func (rb *RequestBuilder) Put(ctx context.Context) (*Response, error) {
	return rb.Send(ctx, http.MethodPut)
}

// Patch executes a PATCH request.
func (rb *RequestBuilder) Patch(ctx context.Context) (*Response, error) {
	return rb.Send(ctx, http.MethodPatch)
}

// Delete executes a DELETE request.
func (rb *RequestBuilder) Delete(ctx context.Context) (*Response, error) {
	return rb.Send(ctx, http.MethodDelete)
}

// Send executes the request with the given method.
func (rb *RequestBuilder) Send(ctx context.Context, method string) (*Response, error) {
	return rb.client.execute(ctx, rb, method)
}

// buildURL constructs the full URL from base URL, path and query params,
// normalizing the query and stamping the heartbeat params.
func (rb *RequestBuilder) buildURL() (string, error) {
	path := rb.path
	for k, v := range rb.pathParams {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}

	fullURL := path
	if base := rb.client.config.BaseURL; base != "" {
		fullURL = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	u, err := url.Parse(fullURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, v := range rb.queryParams {
		for _, vv := range v {
			q.Add(k, vv)
		}
	}
	normalize.Query(q)

	if rb.client.config.HeartbeatParams {
		applyHeartbeat(q, rb.client.config.now())
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// encodeBody marshals the body to JSON with date-shaped values normalized.
func (rb *RequestBuilder) encodeBody() ([]byte, error) {
	var raw []byte
	switch b := rb.body.(type) {
	case nil:
		return nil, nil
	case []byte:
		raw = b
	case json.RawMessage:
		raw = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		raw = data
	}

	var tree any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		// Not JSON: send as given.
		return raw, nil //nolint:nilerr
	}

	return json.Marshal(normalize.Value(tree))
}

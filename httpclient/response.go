package httpclient

import (
	"io"
	"net/http"

	json "github.com/goccy/go-json"
)

// Response wraps http.Response with convenience methods for body handling
// and automatic decoding.
//
// Response provides:
//   - Cached body reading (body is read once and reused)
//   - JSON decoding into the target set with RequestBuilder.Decode
//   - Success/error status helpers
//
// Example usage:
//
//	var plants []Plant
//	resp, err := client.Request("ListPlants").
//	    Path("/plants").
//	    Decode(&plants).
//	    Get(ctx)
type Response struct {
	// Response embeds the standard http.Response.
	*http.Response

	// body is the cached response body.
	body []byte

	// bodyRead tracks whether the body has been read and cached.
	bodyRead bool

	// result holds the decode target for 2xx responses.
	result any

	// retries is the number of retries it took to obtain this response.
	retries int
}

// Body returns the response body as bytes.
//
// The body is read and cached on first access. Subsequent calls
// return the cached value.
func (r *Response) Body() ([]byte, error) {
	if r.bodyRead {
		return r.body, nil
	}
	if r.Response.Body == nil {
		r.bodyRead = true
		return nil, nil
	}

	defer r.Response.Body.Close()
	body, err := io.ReadAll(r.Response.Body)
	if err != nil {
		return nil, err
	}

	r.body = body
	r.bodyRead = true
	return r.body, nil
}

// String returns the response body as a string.
func (r *Response) String() (string, error) {
	body, err := r.Body()
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Result returns the decode target set with RequestBuilder.Decode.
func (r *Response) Result() any {
	return r.result
}

// Retries returns how many retries preceded this response.
func (r *Response) Retries() int {
	return r.retries
}

// IsSuccess returns true if the response status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the response status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	body, err := r.Body()
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

// decode reads the body into the result target of a successful response.
func (r *Response) decode() error {
	if r.result == nil || !r.IsSuccess() {
		return nil
	}
	return r.Decode(r.result)
}

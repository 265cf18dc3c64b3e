package httpclient

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestBuilder_BuildURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		build   func(*RequestBuilder)
		want    string
	}{
		{
			name:    "given path params, then escapes and substitutes them",
			baseURL: "https://api.solarops.example/api/",
			build: func(rb *RequestBuilder) {
				rb.Path("/plants/{id}/weather").PathParam("id", "north field")
			},
			want: "https://api.solarops.example/api/plants/north%20field/weather",
		},
		{
			name:    "given query in path and builder, then merges and normalizes",
			baseURL: "https://api.solarops.example",
			build: func(rb *RequestBuilder) {
				rb.Path("/alerts?startDate=2024-01-31").Query("limit", "5")
			},
			want: "https://api.solarops.example/alerts?limit=5&startDate=31-01-2024",
		},
		{
			name:    "given no base URL, then uses path as is",
			baseURL: "",
			build: func(rb *RequestBuilder) {
				rb.Path("http://other.example/x")
			},
			want: "http://other.example/x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(WithBaseURL(tt.baseURL), WithoutHeartbeat())
			rb := client.Request("test")
			tt.build(rb)

			got, err := rb.buildURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestBuilder_EncodeBody(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
		raw  bool
	}{
		{
			name: "given nil body, then no payload",
			body: nil,
			want: "",
			raw:  true,
		},
		{
			name: "given struct, then normalizes date fields",
			body: struct {
				StartDate string `json:"startDate"`
				Count     int    `json:"count"`
			}{StartDate: "2024-05-06", Count: 3},
			want: `{"startDate":"06-05-2024","count":3}`,
		},
		{
			name: "given raw JSON, then normalizes it too",
			body: json.RawMessage(`{"completionDate":"2024-05-06T10:00:00Z","timestamp":"2024-05-06T10:00:00Z"}`),
			want: `{"completionDate":"06-05-2024","timestamp":"2024-05-06T10:00:00Z"}`,
		},
		{
			name: "given large numbers, then keeps precision",
			body: []byte(`{"id":9007199254740993}`),
			want: `{"id":9007199254740993}`,
		},
		{
			name: "given non-JSON bytes, then sends them unchanged",
			body: []byte("plain text"),
			want: "plain text",
			raw:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := New().Request("test").Body(tt.body)

			got, err := rb.encodeBody()
			require.NoError(t, err)

			if tt.raw {
				assert.Equal(t, tt.want, string(got))
				return
			}
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

package httpclient

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointKey(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{
			name:   "given absolute URL with query, then keeps path only",
			target: "https://api.solarops.example/plants/7?date=01-02-2024",
			want:   "/plants/7",
		},
		{
			name:   "given relative path without slash, then adds leading slash",
			target: "plants",
			want:   "/plants",
		},
		{
			name:   "given trailing slashes, then trims them",
			target: "/plants//",
			want:   "/plants",
		},
		{
			name:   "given root, then returns slash",
			target: "/",
			want:   "/",
		},
		{
			name:   "given empty target, then returns slash",
			target: "",
			want:   "/",
		},
		{
			name:   "given fragment, then drops it",
			target: "/alerts#top",
			want:   "/alerts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EndpointKey(tt.target))
		})
	}
}

func TestInternalConfig_EndpointKey(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		target  string
		want    string
	}{
		{
			name:    "given base URL with path, then strips base path",
			baseURL: "https://api.solarops.example/api/",
			target:  "https://api.solarops.example/api/plants?x=1",
			want:    "/plants",
		},
		{
			name:    "given base URL without path, then keeps full path",
			baseURL: "https://api.solarops.example",
			target:  "https://api.solarops.example/api/plants",
			want:    "/api/plants",
		},
		{
			name:    "given request to base itself, then returns root",
			baseURL: "https://api.solarops.example/api",
			target:  "https://api.solarops.example/api",
			want:    "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newConfig(WithBaseURL(tt.baseURL))
			u, err := url.Parse(tt.target)
			require.NoError(t, err)

			assert.Equal(t, tt.want, cfg.endpointKey(u))
		})
	}
}

func TestClient_EndpointKey(t *testing.T) {
	client := New(WithBaseURL("https://api.solarops.example/api"))

	assert.Equal(t, "/plants/7", client.EndpointKey("/plants/7?date=2024-01-02"))
	assert.Equal(t, "/plants", client.EndpointKey("https://api.solarops.example/api/plants/"))
}

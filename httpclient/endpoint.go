package httpclient

import (
	"net/url"
	"strings"
)

// EndpointKey reduces a request target to the key used for per-endpoint
// breaker and retry state: the path alone, without scheme, host, query or
// trailing slash.
//
//	EndpointKey("https://api.example/plants/7?date=01-02-2024") // "/plants/7"
//	EndpointKey("plants/")                                      // "/plants"
func EndpointKey(target string) string {
	path := target
	if u, err := url.Parse(target); err == nil {
		path = u.Path
	} else if i := strings.IndexAny(target, "?#"); i >= 0 {
		path = target[:i]
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

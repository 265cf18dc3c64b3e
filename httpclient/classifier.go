package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// RetryClassifier determines if a request should be retried.
// Return true to retry, false to stop immediately.
//
// Example classifier that also retries 409 conflicts:
//
//	client := httpclient.New(
//	    httpclient.WithRetryClassifier(func(resp *http.Response, err error) bool {
//	        if resp != nil && resp.StatusCode == http.StatusConflict {
//	            return true
//	        }
//	        return httpclient.DefaultClassifier(resp, err)
//	    }),
//	)
type RetryClassifier func(resp *http.Response, err error) bool

// DefaultClassifier retries server errors and transport failures.
//
// Retries on:
//   - Any 5xx response
//   - Network errors (connection refused or reset, DNS timeouts, EOF)
//   - An attempt that hit its own timeout
//
// Does NOT retry on:
//   - 4xx responses, including 401 and 429
//   - Cancellation or deadline of the caller's context
//   - Permanent errors (TLS certificate errors, unknown hosts)
//   - Client-side rate limiting
func DefaultClassifier(resp *http.Response, err error) bool {
	if err != nil {
		if errors.Is(err, ErrAttemptTimeout) {
			return true
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		if errors.Is(err, ErrLocalRateLimit) {
			return false
		}
		if isPermanentError(err) {
			return false
		}
		// Anything else failed below HTTP and is worth another attempt.
		return true
	}

	if resp != nil {
		return resp.StatusCode >= http.StatusInternalServerError
	}

	return false
}

// isRetryableNetworkError returns true for network errors that are
// typically transient and may succeed on retry.
func isRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return containsPattern(err, transientPatterns)
}

// isPermanentError returns true for errors that will not succeed
// on retry and should fail immediately.
func isPermanentError(err error) bool {
	if err == nil {
		return false
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return true
	}

	if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EHOSTDOWN) {
		return true
	}

	return containsPattern(err, permanentPatterns)
}

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"network is down",
	"network unreachable",
	"i/o timeout",
	"temporary failure",
	"server closed",
	"broken pipe",
	"eof",
}

var permanentPatterns = []string{
	"x509:",
	"certificate",
	"tls:",
	"no route to host",
	"permission denied",
}

// containsPattern is a fallback for wrapped errors where type checks fail.
func containsPattern(err error, patterns []string) bool {
	errStr := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// retryReason labels a retry for span events.
func retryReason(err error) string {
	var serr *retryableStatusError
	switch {
	case errors.As(err, &serr):
		return "http_" + http.StatusText(serr.statusCode)
	case errors.Is(err, ErrAttemptTimeout):
		return "attempt_timeout"
	case isRetryableNetworkError(err):
		return "network_error"
	default:
		return "unknown"
	}
}

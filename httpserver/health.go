package httpserver

import (
	"context"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"
)

// HealthCheck reports whether one part of the client stack is usable.
// Return nil when healthy, or an error describing the issue.
//
//	func breakersClosed(ctx context.Context) error {
//	    if open := openBreakers(); len(open) > 0 {
//	        return fmt.Errorf("open: %s", strings.Join(open, ", "))
//	    }
//	    return nil
//	}
type HealthCheck func(ctx context.Context) error

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status              string `json:"status"`
	Latency             string `json:"latency"`
	Message             string `json:"message,omitempty"`
	LastChecked         string `json:"lastChecked"`
	ConsecutiveFailures int    `json:"consecutiveFailures,omitempty"`
}

// HealthReport is the data of a /livez or /readyz answer.
type HealthReport struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime,omitempty"`
	Hostname  string                 `json:"hostname,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

type checkState struct {
	check               HealthCheck
	consecutiveFailures int
}

type healthHandler struct {
	serviceName string
	version     string
	startTime   time.Time
	hostname    string

	mu        sync.Mutex
	readiness map[string]*checkState
}

func newHealthHandler(serviceName, version string) *healthHandler {
	hostname, _ := os.Hostname()
	return &healthHandler{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		hostname:    hostname,
		readiness:   make(map[string]*checkState),
	}
}

func (h *healthHandler) addReadinessCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness[name] = &checkState{check: check}
}

// liveHandler answers 200 as long as the process can serve.
func (h *healthHandler) liveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, h.report("ok", nil), "alive")
	})
}

// readyHandler runs every readiness check and answers 503 if any fails.
func (h *healthHandler) readyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results, failures := h.runChecks(r.Context())

		if len(failures) > 0 {
			WriteJSON(w, http.StatusServiceUnavailable, Response[HealthReport]{
				Success: false,
				Data:    h.report("fail", results),
				Message: "one or more checks failed",
				Errors:  failures,
			})
			return
		}
		WriteSuccess(w, http.StatusOK, h.report("ok", results), "all checks passed")
	})
}

// runChecks runs the checks in name order. failures holds "name: message"
// for each failing check.
func (h *healthHandler) runChecks(ctx context.Context) (map[string]CheckResult, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.readiness))
	for name := range h.readiness {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]CheckResult, len(names))
	var failures []string
	for _, name := range names {
		state := h.readiness[name]
		start := time.Now()
		err := state.check(ctx)

		result := CheckResult{
			Status:      "ok",
			Latency:     time.Since(start).String(),
			LastChecked: start.UTC().Format(time.RFC3339),
		}
		if err != nil {
			state.consecutiveFailures++
			result.Status = "fail"
			result.Message = err.Error()
			result.ConsecutiveFailures = state.consecutiveFailures
			failures = append(failures, name+": "+err.Error())
		} else {
			state.consecutiveFailures = 0
		}
		results[name] = result
	}
	return results, failures
}

func (h *healthHandler) report(status string, checks map[string]CheckResult) HealthReport {
	return HealthReport{
		Status:    status,
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Hostname:  h.hostname,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
}

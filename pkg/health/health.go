// Package health provides Kubernetes-style liveness and readiness probes.
//
// Checks run periodically in the background. Thresholds (in the spirit of
// Kubernetes probe configuration) prevent flapping: a check flips to
// unhealthy only after failing consecutively failureThreshold times, and
// back to healthy after succeeding successThreshold times.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes one component. It returns nil when the component is
// healthy.
type CheckFunc func(ctx context.Context) error

const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// check holds one registered probe and its threshold state. All fields
// besides name/timeout/fn are guarded by the owning Health's mu.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy   bool
	lastErr   error
	failures  int
	successes int
}

// probe executes the check function once under its timeout. Called without
// the lock held; the caller applies the result under the lock.
func (c *check) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.fn(ctx)
}

// Health manages the check set and serves the probe endpoints.
type Health struct {
	mu        sync.Mutex
	ready     bool
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New creates a Health in the not-ready state; call SetReady(true) once
// initialization finishes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a liveness probe: is the process alive and
// functioning (goroutine counts, GC pauses, deadlocks).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a readiness probe: can the service take
// traffic (database connectivity, dependency availability).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn))
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	return &check{
		name:    name,
		timeout: timeout,
		fn:      fn,
		healthy: true, // assume healthy until proven otherwise
	}
}

// Start launches the background loop running every registered check at the
// given interval. Checks also run once immediately.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		h.runAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.runAll(ctx)
			}
		}
	}()
}

// runAll probes every check and applies threshold transitions.
func (h *Health) runAll(ctx context.Context) {
	h.mu.Lock()
	checks := make([]*check, 0, len(h.liveness)+len(h.readiness))
	checks = append(checks, h.liveness...)
	checks = append(checks, h.readiness...)
	h.mu.Unlock()

	for _, c := range checks {
		err := c.probe(ctx)

		h.mu.Lock()
		c.lastErr = err
		if err != nil {
			c.successes = 0
			c.failures++
			if c.failures >= defaultFailureThreshold {
				c.healthy = false
			}
		} else {
			c.failures = 0
			c.successes++
			if c.successes >= defaultSuccessThreshold {
				c.healthy = true
			}
		}
		h.mu.Unlock()
	}
}

// SetReady flips the manual readiness gate. Set false during graceful
// shutdown to drain traffic before stopping.
func (h *Health) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady reports whether the manual gate is open and every readiness check
// passes.
func (h *Health) IsReady() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.ready {
		return false
	}
	for _, c := range h.readiness {
		if !c.healthy {
			return false
		}
	}
	return true
}

// Stop cancels the background loop. Safe to call multiple times.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// statusResponse is the JSON body served by the probe endpoints.
type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 when all liveness checks pass, 503 with
// failure details otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	failures := failuresOf(h.liveness)
	h.mu.Unlock()

	writeStatus(w, failures)
}

// ReadyEndpoint serves /readyz: 200 when the service is marked ready and all
// readiness checks pass, 503 with details otherwise.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	failures := failuresOf(h.readiness)
	if !h.ready {
		failures["_readiness"] = "service is not ready"
	}
	h.mu.Unlock()

	writeStatus(w, failures)
}

// failuresOf maps unhealthy check names to their last error message.
// Caller holds mu.
func failuresOf(checks []*check) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		if c.healthy {
			continue
		}
		if c.lastErr != nil {
			failures[c.name] = c.lastErr.Error()
		} else {
			failures[c.name] = "check is unhealthy"
		}
	}
	return failures
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	status := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		status = http.StatusServiceUnavailable
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

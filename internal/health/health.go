// Package health serves liveness and readiness for the ops listener.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/oriys/areca-gateway/internal/metrics"
)

// DefaultProbeTimeout bounds one readiness round.
const DefaultProbeTimeout = 2 * time.Second

// Probe checks one dependency.
type Probe func(ctx context.Context) error

type check struct {
	name  string
	kind  string
	probe Probe
}

// Checker provides health and readiness check endpoints.
type Checker struct {
	ready   atomic.Bool
	timeout time.Duration

	mu     sync.RWMutex
	checks []check
}

// NewChecker creates a new health checker.
func NewChecker() *Checker {
	return &Checker{timeout: DefaultProbeTimeout}
}

// SetReady marks the service as ready to accept traffic.
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

// Ready reports the flag set by SetReady.
func (c *Checker) Ready() bool {
	return c.ready.Load()
}

// Register adds a dependency probe run on every readiness request.
func (c *Checker) Register(name, kind string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check{name: name, kind: kind, probe: probe})
}

// Result is the outcome of one probe.
type Result struct {
	Kind  string `json:"kind"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Check runs every probe concurrently and records store health gauges.
func (c *Checker) Check(ctx context.Context) (map[string]Result, bool) {
	c.mu.RLock()
	checks := append([]check(nil), c.checks...)
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := make([]Result, len(checks))
	var wg sync.WaitGroup
	for i, ch := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := Result{Kind: ch.kind, OK: true}
			if err := ch.probe(ctx); err != nil {
				res.OK = false
				res.Error = err.Error()
			}
			metrics.SetStoreHealth(ch.name, ch.kind, res.OK)
			results[i] = res
		}()
	}
	wg.Wait()

	out := make(map[string]Result, len(checks))
	healthy := true
	for i, ch := range checks {
		out[ch.name] = results[i]
		healthy = healthy && results[i].OK
	}
	return out, healthy
}

// Names lists registered probes in name order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.checks))
	for i, ch := range c.checks {
		names[i] = ch.name
	}
	sort.Strings(names)
	return names
}

// HealthzHandler returns a handler for the /healthz endpoint (liveness).
func (c *Checker) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]Result `json:"checks,omitempty"`
}

// ReadyzHandler returns a handler for the /readyz endpoint (readiness). It
// fails until SetReady(true) and whenever a probe fails.
func (c *Checker) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, readiness{Status: "not ready"})
			return
		}
		results, healthy := c.Check(r.Context())
		if !healthy {
			writeJSON(w, http.StatusServiceUnavailable, readiness{Status: "degraded", Checks: results})
			return
		}
		writeJSON(w, http.StatusOK, readiness{Status: "ready", Checks: results})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
